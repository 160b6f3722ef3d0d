package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/edgard/ticketbot/internal/chat"
	"github.com/edgard/ticketbot/internal/ticket"
)

const ticketOpTimeout = 30 * time.Second

// NewOpenTicketHandler returns the handler of a panel button opening a
// ticket of the given type.
func NewOpenTicketHandler(deps HandlerDeps, typeKey string) chat.InteractionHandler {
	return openTicketHandler{deps: deps, typeKey: typeKey}.Handle
}

type openTicketHandler struct {
	deps    HandlerDeps
	typeKey string
}

func (h openTicketHandler) Handle(ctx context.Context, ix *chat.Interaction) {
	log := h.deps.Logger.With("handler", "open_ticket", "type", h.typeKey)
	if !h.deps.acknowledge(ctx, ix) {
		return
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, ticketOpTimeout)
	defer cancel()

	ch, err := h.deps.Tickets.RequestOpen(timeoutCtx, h.typeKey, ix.Member.User)
	if err != nil {
		log.ErrorContext(ctx, "Failed to open ticket", "error", err, "user_id", ix.Member.ID)
		text := h.deps.userMessage(err)
		if ch != nil {
			text += " " + ch.Mention()
		}
		h.deps.followUpError(ctx, ix, text)
		return
	}

	reply := chat.Reply{Content: "Your ticket has been created: " + ch.Mention(), Ephemeral: true}
	if err := h.deps.Client.FollowUp(ctx, ix, reply); err != nil {
		log.ErrorContext(ctx, "Failed to confirm ticket creation", "error", err, "channel_id", ch.ID)
	}
}

// NewCloseHandler returns the handler of the close button posted in every
// ticket.
func NewCloseHandler(deps HandlerDeps) chat.InteractionHandler {
	return closeHandler{deps}.Handle
}

type closeHandler struct {
	deps HandlerDeps
}

func (h closeHandler) Handle(ctx context.Context, ix *chat.Interaction) {
	log := h.deps.Logger.With("handler", "close_ticket")

	err := h.deps.Tickets.RequestClose(ctx, ix.ChannelID, ix.Member)
	if errors.Is(err, ticket.ErrPermissionDenied) {
		h.deps.respond(ctx, ix, chat.Reply{Content: "You do not have permission to close this ticket.", Ephemeral: true})
		return
	}
	if err != nil {
		log.WarnContext(ctx, "Close request failed", "error", err, "channel_id", ix.ChannelID)
		h.deps.respond(ctx, ix, chat.Reply{Content: h.deps.userMessage(err), Ephemeral: true})
		return
	}
	h.deps.acknowledge(ctx, ix)
}

// NewConfirmCloseHandler returns the handler of the confirm button of a close
// prompt.
func NewConfirmCloseHandler(deps HandlerDeps) chat.InteractionHandler {
	return confirmCloseHandler{deps}.Handle
}

type confirmCloseHandler struct {
	deps HandlerDeps
}

func (h confirmCloseHandler) Handle(ctx context.Context, ix *chat.Interaction) {
	log := h.deps.Logger.With("handler", "confirm_close")
	token := strings.TrimPrefix(ix.Name, ticket.ConfirmButtonPrefix)
	if !h.deps.acknowledge(ctx, ix) {
		return
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, h.deps.Config.Ticket.GraceDelay+ticketOpTimeout)
	defer cancel()

	doc, err := h.deps.Tickets.ConfirmClose(timeoutCtx, ix.ChannelID, token, ix.Member.User)
	switch {
	case errors.Is(err, ticket.ErrExpired):
		log.InfoContext(ctx, "Ignoring confirmation of an expired close request", "channel_id", ix.ChannelID)
	case err != nil:
		log.ErrorContext(ctx, "Failed to close ticket", "error", err, "channel_id", ix.ChannelID)
		h.deps.followUpError(ctx, ix, h.deps.userMessage(err))
	default:
		log.InfoContext(ctx, "Ticket closed by staff", "channel", doc.ChannelName, "user_id", ix.Member.ID)
	}
}

// NewCancelCloseHandler returns the handler of the cancel button of a close
// prompt.
func NewCancelCloseHandler(deps HandlerDeps) chat.InteractionHandler {
	return cancelCloseHandler{deps}.Handle
}

type cancelCloseHandler struct {
	deps HandlerDeps
}

func (h cancelCloseHandler) Handle(ctx context.Context, ix *chat.Interaction) {
	token := strings.TrimPrefix(ix.Name, ticket.CancelButtonPrefix)
	if !h.deps.acknowledge(ctx, ix) {
		return
	}

	err := h.deps.Tickets.CancelClose(ctx, ix.ChannelID, token)
	if errors.Is(err, ticket.ErrExpired) {
		h.deps.Logger.InfoContext(ctx, "Ignoring cancel of an expired close request", "channel_id", ix.ChannelID)
		return
	}
	if err != nil {
		h.deps.followUpError(ctx, ix, h.deps.userMessage(err))
		return
	}

	reply := chat.Reply{Content: "Ticket close canceled.", Ephemeral: true}
	if err := h.deps.Client.FollowUp(ctx, ix, reply); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to confirm cancellation", "error", err, "channel_id", ix.ChannelID)
	}
}

// NewSetupHandler returns the handler of the setup-tickets command, which
// posts the ticket panel.
func NewSetupHandler(deps HandlerDeps) chat.InteractionHandler {
	return func(ctx context.Context, ix *chat.Interaction) {
		deps.Logger.InfoContext(ctx, "Posting ticket panel", "channel_id", ix.ChannelID, "user_id", ix.Member.ID)
		deps.respond(ctx, ix, ticket.Panel())
	}
}
