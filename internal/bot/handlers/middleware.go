package handlers

import (
	"context"
	"fmt"

	"github.com/edgard/ticketbot/internal/chat"
)

// StaffOnly creates a middleware that checks that the invoker holds the
// configured staff role. If not, it replies privately and stops processing.
// action completes the sentence "You do not have permission to ...".
func StaffOnly(deps HandlerDeps, action string) chat.Middleware {
	return func(next chat.InteractionHandler) chat.InteractionHandler {
		return func(ctx context.Context, ix *chat.Interaction) {
			if deps.Tickets.IsStaff(ix.Member) {
				next(ctx, ix)
				return
			}

			log := deps.Logger.With("middleware", "StaffOnly")
			log.WarnContext(ctx, "Unauthorized access attempt",
				"user_id", ix.Member.ID, "channel_id", ix.ChannelID, "name", ix.Name)

			text := deps.Config.Messages.PermissionDenied
			if action != "" {
				text = fmt.Sprintf("You do not have permission to %s.", action)
			}
			if err := deps.Client.Respond(ctx, ix, chat.Reply{Content: text, Ephemeral: true}); err != nil {
				log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "channel_id", ix.ChannelID)
			}
		}
	}
}
