package ticket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/edgard/ticketbot/internal/chat"
)

// Settings holds the platform identifiers and timings of the ticket system.
type Settings struct {
	GuildID          string
	CategoryID       string
	StaffRoleID      string
	ArchiveChannelID string
	ConfirmTimeout   time.Duration
	GraceDelay       time.Duration
}

// Manager creates and destroys ticket channels and edits who can see them.
type Manager struct {
	client   chat.Client
	settings Settings
	logger   *slog.Logger
}

// NewManager creates a channel manager.
func NewManager(client chat.Client, settings Settings, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		client:   client,
		settings: settings,
		logger:   logger.With("component", "ticket_manager"),
	}
}

// Open creates a hidden channel under the ticket category that only the
// requester and the staff role can see.
func (m *Manager) Open(ctx context.Context, t Type, requester chat.User) (*chat.Channel, error) {
	category, err := m.client.Channel(ctx, m.settings.CategoryID)
	if errors.Is(err, chat.ErrNotFound) {
		return nil, configErr("ticket category %q not found", m.settings.CategoryID)
	}
	if err != nil {
		return nil, platformErr("look up ticket category", err)
	}

	ok, err := m.client.RoleExists(ctx, m.settings.GuildID, m.settings.StaffRoleID)
	if err != nil {
		return nil, platformErr("look up staff role", err)
	}
	if !ok {
		return nil, configErr("staff role %q not found", m.settings.StaffRoleID)
	}

	spec := chat.ChannelSpec{
		Name:     ChannelName(t, requester.Username),
		ParentID: category.ID,
		Topic:    Topic(t, requester.ID),
		Members:  []string{requester.ID},
		Roles:    []string{m.settings.StaffRoleID},
	}
	ch, err := m.client.CreateChannel(ctx, m.settings.GuildID, spec)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to create ticket channel", "name", spec.Name, "error", err)
		return nil, platformErr("create ticket channel", err)
	}

	m.logger.InfoContext(ctx, "Ticket channel created",
		"channel_id", ch.ID, "name", ch.Name, "type", t.Key, "user_id", requester.ID)
	return ch, nil
}

// GrantAccess lets the user view and write in the channel. Granting twice
// leaves the same overwrite in place.
func (m *Manager) GrantAccess(ctx context.Context, channelID, userID string) error {
	if err := m.client.GrantAccess(ctx, channelID, userID); err != nil {
		return platformErr("grant channel access", err)
	}
	m.logger.InfoContext(ctx, "Granted ticket access", "channel_id", channelID, "user_id", userID)
	return nil
}

// RevokeAccess removes the user's overwrite. A user without an overwrite is
// left untouched and the call succeeds.
func (m *Manager) RevokeAccess(ctx context.Context, channelID, userID string) error {
	ch, err := m.client.Channel(ctx, channelID)
	if err != nil {
		return platformErr("look up channel", err)
	}
	if !ch.HasMember(userID) {
		m.logger.DebugContext(ctx, "Revoke skipped, user has no access overwrite", "channel_id", channelID, "user_id", userID)
		return nil
	}
	if err := m.client.RevokeAccess(ctx, channelID, userID); err != nil {
		return platformErr("revoke channel access", err)
	}
	m.logger.InfoContext(ctx, "Revoked ticket access", "channel_id", channelID, "user_id", userID)
	return nil
}

// Rename validates and applies a new channel name, returning the name used.
func (m *Manager) Rename(ctx context.Context, channelID, newName string) (string, error) {
	name, err := NormalizeName(newName)
	if err != nil {
		return "", err
	}
	ch, err := m.client.RenameChannel(ctx, channelID, name)
	if err != nil {
		return "", platformErr("rename channel", err)
	}
	m.logger.InfoContext(ctx, "Ticket renamed", "channel_id", channelID, "name", ch.Name)
	return ch.Name, nil
}

// Delete removes the channel. Callers must archive the transcript first.
func (m *Manager) Delete(ctx context.Context, channelID string) error {
	if err := m.client.DeleteChannel(ctx, channelID); err != nil {
		return platformErr("delete channel", err)
	}
	m.logger.InfoContext(ctx, "Ticket channel deleted", "channel_id", channelID)
	return nil
}
