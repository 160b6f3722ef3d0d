package handlers

import (
	"context"
	"strings"

	"github.com/edgard/ticketbot/internal/chat"
)

// NewKeywordHandler returns the message handler that answers trigger words.
// Bot-authored and empty messages are ignored.
func NewKeywordHandler(deps HandlerDeps) chat.MessageHandler {
	log := deps.Logger.With("handler", "keyword")

	return func(ctx context.Context, msg *chat.Message) {
		if msg.Author.Bot || strings.TrimSpace(msg.Content) == "" {
			return
		}

		if _, ok := deps.Keywords.Match(msg.Content); !ok {
			return
		}
		if !deps.Keywords.Allow(msg.ChannelID) {
			log.DebugContext(ctx, "Keyword reply suppressed by cooldown", "channel_id", msg.ChannelID)
			return
		}

		out, ok, err := deps.Keywords.Reply(msg.Content)
		if !ok {
			return
		}
		if err != nil {
			log.ErrorContext(ctx, "Failed to build keyword reply", "error", err, "channel_id", msg.ChannelID)
			return
		}

		if _, err := deps.Client.SendMessage(ctx, msg.ChannelID, out); err != nil {
			log.ErrorContext(ctx, "Failed to send keyword reply", "error", err, "channel_id", msg.ChannelID)
			return
		}
		log.DebugContext(ctx, "Sent keyword reply", "channel_id", msg.ChannelID, "user_id", msg.Author.ID)
	}
}
