package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edgard/ticketbot/internal/chat"
)

const recentTranscriptsLimit = 10

// NewTranscriptsHandler returns the handler of the transcripts command, which
// lists the latest entries of the archive ledger.
func NewTranscriptsHandler(deps HandlerDeps) chat.InteractionHandler {
	return transcriptsHandler{deps}.Handle
}

type transcriptsHandler struct {
	deps HandlerDeps
}

func (h transcriptsHandler) Handle(ctx context.Context, ix *chat.Interaction) {
	log := h.deps.Logger.With("handler", "transcripts")
	if h.deps.Store == nil {
		h.deps.respond(ctx, ix, chat.Reply{Content: "No transcripts have been archived yet.", Ephemeral: true})
		return
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	records, err := h.deps.Store.RecentArchives(timeoutCtx, recentTranscriptsLimit)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list archived transcripts", "error", err)
		h.deps.respond(ctx, ix, chat.Reply{Content: h.deps.Config.Messages.GeneralError, Ephemeral: true})
		return
	}
	if len(records) == 0 {
		h.deps.respond(ctx, ix, chat.Reply{Content: "No transcripts have been archived yet.", Ephemeral: true})
		return
	}

	loc := h.deps.Config.Location()
	var sb strings.Builder
	sb.WriteString("Recent transcripts:\n")
	for _, r := range records {
		fmt.Fprintf(&sb, "- `%s` (%s) closed by %s at %s, %d messages",
			r.ChannelName, r.TicketType, chat.MentionUser(r.ClosedByID),
			r.ArchivedAt.In(loc).Format("2006-01-02 15:04"), r.MessageCount)
		if r.Truncated {
			sb.WriteString(", truncated")
		}
		sb.WriteByte('\n')
	}
	h.deps.respond(ctx, ix, chat.Reply{Content: strings.TrimSuffix(sb.String(), "\n"), Ephemeral: true})
}
