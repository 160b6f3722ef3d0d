package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/edgard/ticketbot/internal/chat"
	"github.com/edgard/ticketbot/internal/ticket"
)

// userMessage turns a ticket error into text for the invoker.
func (d HandlerDeps) userMessage(err error) string {
	var platformErr *ticket.PlatformError
	switch {
	case errors.Is(err, ticket.ErrPermissionDenied):
		return d.Config.Messages.PermissionDenied
	case errors.Is(err, ticket.ErrConfiguration):
		detail := strings.TrimPrefix(err.Error(), ticket.ErrConfiguration.Error()+": ")
		return "⚠️ The ticket system is misconfigured: " + detail + "."
	case errors.Is(err, ticket.ErrExpired):
		return "This close request has expired."
	case errors.Is(err, ticket.ErrConfirmationPending):
		return "A close request is already pending for this ticket."
	case errors.Is(err, ticket.ErrUnknownTicketType):
		return "Unknown ticket type."
	case errors.Is(err, ticket.ErrInvalidName):
		return "Channel names must be 1-100 letters, numbers, dashes or underscores."
	case errors.Is(err, ticket.ErrIncompleteTicket):
		return "⚠️ Your ticket channel was created but its controls could not be posted. Please contact staff."
	case errors.Is(err, ticket.ErrArchive):
		return "⚠️ The transcript could not be archived, so the ticket was kept open."
	case errors.As(err, &platformErr):
		return "Discord rejected the request: " + platformErr.Err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	default:
		return d.Config.Messages.GeneralError
	}
}

// followUpError reports err privately after a component was acknowledged.
func (d HandlerDeps) followUpError(ctx context.Context, ix *chat.Interaction, text string) {
	if err := d.Client.FollowUp(ctx, ix, chat.Reply{Content: text, Ephemeral: true}); err != nil {
		d.Logger.ErrorContext(ctx, "Failed to send error follow-up", "error", err, "channel_id", ix.ChannelID)
	}
}

// respond answers a command, logging delivery failures.
func (d HandlerDeps) respond(ctx context.Context, ix *chat.Interaction, reply chat.Reply) {
	if err := d.Client.Respond(ctx, ix, reply); err != nil {
		d.Logger.ErrorContext(ctx, "Failed to respond to interaction", "error", err, "name", ix.Name, "channel_id", ix.ChannelID)
	}
}

// acknowledge defers a component response. It reports false when the
// interaction could not be acknowledged.
func (d HandlerDeps) acknowledge(ctx context.Context, ix *chat.Interaction) bool {
	if err := d.Client.Acknowledge(ctx, ix); err != nil {
		d.Logger.ErrorContext(ctx, "Failed to acknowledge interaction", "error", err, "name", ix.Name, "channel_id", ix.ChannelID)
		return false
	}
	return true
}
