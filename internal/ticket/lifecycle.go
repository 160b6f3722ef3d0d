package ticket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/ticketbot/internal/chat"
	"github.com/edgard/ticketbot/internal/database"
	"github.com/edgard/ticketbot/internal/transcript"
)

// Ledger records delivered transcripts.
type Ledger interface {
	SaveArchive(ctx context.Context, record *database.ArchiveRecord) error
}

// ControllerDeps provides the collaborators of a Controller. Ledger and Clock
// are optional.
type ControllerDeps struct {
	Client     chat.Client
	Manager    *Manager
	Transcript *transcript.Builder
	Ledger     Ledger
	Settings   Settings
	Clock      clockwork.Clock
	Logger     *slog.Logger
}

// Controller drives tickets through open, close confirmation, archival and
// deletion.
type Controller struct {
	client     chat.Client
	manager    *Manager
	transcript *transcript.Builder
	ledger     Ledger
	settings   Settings
	clock      clockwork.Clock
	logger     *slog.Logger
	confirms   *confirmations
}

// NewController creates a lifecycle controller.
func NewController(deps ControllerDeps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{
		client:     deps.Client,
		manager:    deps.Manager,
		transcript: deps.Transcript,
		ledger:     deps.Ledger,
		settings:   deps.Settings,
		clock:      clock,
		logger:     logger.With("component", "ticket_lifecycle"),
		confirms:   newConfirmations(),
	}
}

// State reports the lifecycle state of a channel.
func (c *Controller) State(channelID string) State {
	return c.confirms.state(channelID, c.clock.Now())
}

// IsStaff reports whether the member holds the configured staff role.
func (c *Controller) IsStaff(m chat.Member) bool {
	return m.HasRole(c.settings.StaffRoleID)
}

// RequestOpen creates a ticket of the given type for the requester and posts
// its intro message with the close button.
func (c *Controller) RequestOpen(ctx context.Context, typeKey string, requester chat.User) (*chat.Channel, error) {
	t, ok := LookupType(typeKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTicketType, typeKey)
	}

	ch, err := c.manager.Open(ctx, t, requester)
	if err != nil {
		return nil, err
	}

	intro := chat.OutgoingMessage{
		Embeds: []chat.Embed{{
			Title:       t.Title(),
			Description: fmt.Sprintf("Ticket opened by %s\n\n%s", requester.Mention(), t.Guidance),
			Color:       colorBlue,
		}},
		Buttons: []chat.Button{{Label: "Close Ticket", CustomID: CloseButtonID, Style: chat.ButtonDanger}},
	}
	if _, err := c.client.SendMessage(ctx, ch.ID, intro); err != nil {
		c.logger.ErrorContext(ctx, "Ticket channel created but intro message failed",
			"channel_id", ch.ID, "error", err)
		return ch, fmt.Errorf("%w: channel %s: %w", ErrIncompleteTicket, ch.Name, err)
	}

	c.logger.InfoContext(ctx, "Ticket opened", "channel_id", ch.ID, "type", t.Key, "user_id", requester.ID)
	return ch, nil
}

// RequestClose asks for confirmation before closing the ticket. Only staff
// may request it and only one request per channel may be pending.
func (c *Controller) RequestClose(ctx context.Context, channelID string, requester chat.Member) error {
	log := c.logger.With("channel_id", channelID, "user_id", requester.ID)
	if !c.IsStaff(requester) {
		log.WarnContext(ctx, "Close requested by non-staff member")
		return ErrPermissionDenied
	}

	now := c.clock.Now()
	entry := &confirmation{
		channelID:   channelID,
		token:       uuid.NewString(),
		requestedBy: requester.ID,
		expiresAt:   now.Add(c.settings.ConfirmTimeout),
	}
	stale, err := c.confirms.reserve(entry, now)
	if err != nil {
		log.InfoContext(ctx, "Close request rejected", "reason", err)
		return err
	}
	if stale != nil {
		c.removePrompt(ctx, stale)
	}

	prompt := chat.OutgoingMessage{
		Content: "Are you sure you want to close this ticket?",
		Buttons: []chat.Button{
			{Label: "Confirm Close", CustomID: ConfirmButtonPrefix + entry.token, Style: chat.ButtonDanger},
			{Label: "Cancel", CustomID: CancelButtonPrefix + entry.token, Style: chat.ButtonSecondary},
		},
	}
	msg, err := c.client.SendMessage(ctx, channelID, prompt)
	if err != nil {
		c.confirms.release(channelID, entry.token)
		return platformErr("post close confirmation", err)
	}
	c.confirms.attach(channelID, entry.token, msg.ID)

	log.InfoContext(ctx, "Close confirmation requested", "expires_at", entry.expiresAt)
	return nil
}

// ConfirmClose archives the transcript and deletes the channel. The token must
// belong to the live confirmation of the channel, otherwise ErrExpired is
// returned and nothing happens. If the transcript cannot be delivered the
// channel is kept, the used prompt is removed and the ticket returns to
// StateOpen.
func (c *Controller) ConfirmClose(ctx context.Context, channelID, token string, closer chat.User) (doc *transcript.Document, err error) {
	log := c.logger.With("channel_id", channelID, "user_id", closer.ID)

	entry, err := c.confirms.take(channelID, token, c.clock.Now(), true)
	if err != nil {
		if entry != nil {
			c.removePrompt(ctx, entry)
		}
		log.InfoContext(ctx, "Close confirmation rejected", "reason", err)
		return nil, err
	}
	defer c.confirms.finish(channelID)
	defer func() {
		if err != nil {
			c.removePrompt(context.WithoutCancel(ctx), entry)
		}
	}()

	log.InfoContext(ctx, "Closing ticket", "grace_delay", c.settings.GraceDelay)
	notice := chat.OutgoingMessage{
		Content: fmt.Sprintf("Closing ticket and sending transcript in %d seconds...", int(c.settings.GraceDelay.Seconds())),
	}
	if _, err := c.client.SendMessage(ctx, channelID, notice); err != nil {
		log.WarnContext(ctx, "Failed to announce ticket closure", "error", err)
	}

	if err := c.wait(ctx, c.settings.GraceDelay); err != nil {
		return nil, err
	}

	channel, err := c.client.Channel(ctx, channelID)
	if err != nil {
		return nil, platformErr("look up ticket channel", err)
	}

	doc, err = c.transcript.Build(ctx, *channel)
	if err != nil {
		return nil, &ArchiveError{Err: err}
	}

	archived, err := c.archive(ctx, doc)
	if err != nil {
		log.ErrorContext(ctx, "Transcript not archived, ticket kept", "error", err)
		return nil, err
	}
	c.record(ctx, channel, doc, archived, closer)

	if err := c.manager.Delete(ctx, channelID); err != nil {
		return doc, err
	}

	log.InfoContext(ctx, "Ticket closed", "messages", doc.Messages, "truncated", doc.Truncated)
	return doc, nil
}

// CancelClose drops the pending confirmation and its prompt.
func (c *Controller) CancelClose(ctx context.Context, channelID, token string) error {
	entry, err := c.confirms.take(channelID, token, c.clock.Now(), false)
	if entry != nil {
		c.removePrompt(ctx, entry)
	}
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Close confirmation canceled", "channel_id", channelID)
	return nil
}

// ExpireStale removes confirmations whose window has elapsed, deleting their
// prompts, and returns how many were removed.
func (c *Controller) ExpireStale(ctx context.Context) int {
	expired := c.confirms.sweep(c.clock.Now())
	for _, e := range expired {
		c.removePrompt(ctx, e)
		c.logger.InfoContext(ctx, "Close confirmation expired", "channel_id", e.channelID)
	}
	return len(expired)
}

func (c *Controller) archive(ctx context.Context, doc *transcript.Document) (*chat.Message, error) {
	if c.settings.ArchiveChannelID == "" {
		return nil, configErr("transcript channel is not configured")
	}
	if _, err := c.client.Channel(ctx, c.settings.ArchiveChannelID); err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return nil, configErr("transcript channel %q not found", c.settings.ArchiveChannelID)
		}
		return nil, &ArchiveError{Err: err}
	}

	content := fmt.Sprintf("Transcript from ticket: `%s`", doc.ChannelName)
	if doc.Truncated {
		content += fmt.Sprintf(" (truncated to the first %d messages)", doc.Messages)
	}
	msg, err := c.client.SendMessage(ctx, c.settings.ArchiveChannelID, chat.OutgoingMessage{
		Content: content,
		Files: []chat.File{{
			Name:        doc.FileName(),
			ContentType: "text/plain; charset=utf-8",
			Data:        []byte(doc.Text),
		}},
	})
	if err != nil {
		return nil, &ArchiveError{Err: err}
	}
	return msg, nil
}

func (c *Controller) record(ctx context.Context, channel *chat.Channel, doc *transcript.Document, archived *chat.Message, closer chat.User) {
	if c.ledger == nil {
		return
	}
	typeKey, openerID, _ := ParseTopic(channel.Topic)
	rec := &database.ArchiveRecord{
		ChannelID:        channel.ID,
		ChannelName:      channel.Name,
		TicketType:       typeKey,
		OpenerID:         openerID,
		ClosedByID:       closer.ID,
		MessageCount:     doc.Messages,
		Truncated:        doc.Truncated,
		FileName:         doc.FileName(),
		ArchiveMessageID: archived.ID,
		ArchivedAt:       doc.GeneratedAt,
	}
	if err := c.ledger.SaveArchive(ctx, rec); err != nil {
		c.logger.WarnContext(ctx, "Failed to record archived transcript", "channel_id", channel.ID, "error", err)
	}
}

func (c *Controller) removePrompt(ctx context.Context, e *confirmation) {
	if e.promptMessageID == "" {
		return
	}
	if err := c.client.DeleteMessage(ctx, e.channelID, e.promptMessageID); err != nil && !errors.Is(err, chat.ErrNotFound) {
		c.logger.WarnContext(ctx, "Failed to remove close prompt",
			"channel_id", e.channelID, "message_id", e.promptMessageID, "error", err)
	}
}

func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-c.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
