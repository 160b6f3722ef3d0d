package handlers

import (
	"context"
	"fmt"

	"github.com/edgard/ticketbot/internal/chat"
)

const (
	optionNewName = "new_name"
	optionUser    = "user"
)

// NewRenameHandler returns the handler of the rename-ticket command.
func NewRenameHandler(deps HandlerDeps) chat.InteractionHandler {
	return func(ctx context.Context, ix *chat.Interaction) {
		log := deps.Logger.With("handler", "rename_ticket", "channel_id", ix.ChannelID)

		timeoutCtx, cancel := context.WithTimeout(ctx, ticketOpTimeout)
		defer cancel()

		name, err := deps.Channels.Rename(timeoutCtx, ix.ChannelID, ix.Option(optionNewName))
		if err != nil {
			log.WarnContext(ctx, "Failed to rename ticket", "error", err, "requested", ix.Option(optionNewName))
			deps.respond(ctx, ix, chat.Reply{Content: "Failed to rename ticket: " + deps.userMessage(err), Ephemeral: true})
			return
		}
		deps.respond(ctx, ix, chat.Reply{Content: fmt.Sprintf("Ticket renamed to `%s`.", name)})
	}
}

// NewAddUserHandler returns the handler of the add-user command.
func NewAddUserHandler(deps HandlerDeps) chat.InteractionHandler {
	return func(ctx context.Context, ix *chat.Interaction) {
		userID := ix.Option(optionUser)
		log := deps.Logger.With("handler", "add_user", "channel_id", ix.ChannelID, "target_id", userID)

		timeoutCtx, cancel := context.WithTimeout(ctx, ticketOpTimeout)
		defer cancel()

		if err := deps.Channels.GrantAccess(timeoutCtx, ix.ChannelID, userID); err != nil {
			log.WarnContext(ctx, "Failed to add user", "error", err)
			deps.respond(ctx, ix, chat.Reply{Content: "Failed to add user: " + deps.userMessage(err), Ephemeral: true})
			return
		}
		deps.respond(ctx, ix, chat.Reply{Content: fmt.Sprintf("Added %s to the ticket.", chat.MentionUser(userID))})
	}
}

// NewRemoveUserHandler returns the handler of the remove-user command.
func NewRemoveUserHandler(deps HandlerDeps) chat.InteractionHandler {
	return func(ctx context.Context, ix *chat.Interaction) {
		userID := ix.Option(optionUser)
		log := deps.Logger.With("handler", "remove_user", "channel_id", ix.ChannelID, "target_id", userID)

		timeoutCtx, cancel := context.WithTimeout(ctx, ticketOpTimeout)
		defer cancel()

		if err := deps.Channels.RevokeAccess(timeoutCtx, ix.ChannelID, userID); err != nil {
			log.WarnContext(ctx, "Failed to remove user", "error", err)
			deps.respond(ctx, ix, chat.Reply{Content: "Failed to remove user: " + deps.userMessage(err), Ephemeral: true})
			return
		}
		deps.respond(ctx, ix, chat.Reply{Content: fmt.Sprintf("Removed %s from the ticket.", chat.MentionUser(userID))})
	}
}
