// Package discord implements chat.Client on top of discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/ticketbot/internal/chat"
)

// Permissions granted to ticket members and staff.
const memberPermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionAttachFiles

// historyPageSize is the maximum page Discord returns for channel messages.
const historyPageSize = 100

// Client is a chat.Client backed by a discordgo session.
type Client struct {
	session *discordgo.Session
	logger  *slog.Logger
}

var _ chat.Client = (*Client)(nil)

// NewSession creates a discordgo session for a bot token with the intents the
// ticket bot needs. The gateway is not opened.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token cannot be empty")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent
	return s, nil
}

// New wraps a session.
func New(session *discordgo.Session, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		session: session,
		logger:  logger.With("component", "discord"),
	}
}

func (c *Client) Channel(ctx context.Context, channelID string) (*chat.Channel, error) {
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	out := toChannel(ch)
	return &out, nil
}

func (c *Client) RoleExists(ctx context.Context, guildID, roleID string) (bool, error) {
	roles, err := c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return false, mapError(err)
	}
	return slices.ContainsFunc(roles, func(r *discordgo.Role) bool { return r.ID == roleID }), nil
}

func (c *Client) CreateChannel(ctx context.Context, guildID string, spec chat.ChannelSpec) (*chat.Channel, error) {
	ch, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             spec.ParentID,
		PermissionOverwrites: overwrites(guildID, spec),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	c.logger.DebugContext(ctx, "Channel created", "channel_id", ch.ID, "name", ch.Name)
	out := toChannel(ch)
	return &out, nil
}

func (c *Client) RenameChannel(ctx context.Context, channelID, name string) (*chat.Channel, error) {
	ch, err := c.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	out := toChannel(ch)
	return &out, nil
}

func (c *Client) GrantAccess(ctx context.Context, channelID, userID string) error {
	err := c.session.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember,
		memberPermissions, 0, discordgo.WithContext(ctx))
	return mapError(err)
}

func (c *Client) RevokeAccess(ctx context.Context, channelID, userID string) error {
	return mapError(c.session.ChannelPermissionDelete(channelID, userID, discordgo.WithContext(ctx)))
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return mapError(err)
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg chat.OutgoingMessage) (*chat.Message, error) {
	sent, err := c.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	out := toMessage(sent)
	return &out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return mapError(c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

// History pages forward from the start of the channel until limit messages
// are collected or the channel is exhausted.
func (c *Client) History(ctx context.Context, channelID string, limit int) ([]chat.Message, error) {
	var out []chat.Message
	after := "0"
	for limit <= 0 || len(out) < limit {
		size := historyPageSize
		if limit > 0 {
			size = min(size, limit-len(out))
		}
		page, err := c.session.ChannelMessages(channelID, size, "", after, "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapError(err)
		}
		if len(page) == 0 {
			break
		}
		sortOldestFirst(page)
		for _, m := range page {
			out = append(out, toMessage(m))
		}
		after = page[len(page)-1].ID
		if len(page) < size {
			break
		}
	}
	return out, nil
}

func (c *Client) Respond(ctx context.Context, ix *chat.Interaction, reply chat.Reply) error {
	err := c.session.InteractionRespond(toInteraction(ix), &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    reply.Content,
			Embeds:     toEmbeds(reply.Embeds),
			Components: toComponents(reply.Buttons),
			Flags:      replyFlags(reply),
		},
	}, discordgo.WithContext(ctx))
	return mapError(err)
}

func (c *Client) Acknowledge(ctx context.Context, ix *chat.Interaction) error {
	err := c.session.InteractionRespond(toInteraction(ix), &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}, discordgo.WithContext(ctx))
	return mapError(err)
}

func (c *Client) FollowUp(ctx context.Context, ix *chat.Interaction, reply chat.Reply) error {
	_, err := c.session.FollowupMessageCreate(toInteraction(ix), false, &discordgo.WebhookParams{
		Content:    reply.Content,
		Embeds:     toEmbeds(reply.Embeds),
		Components: toComponents(reply.Buttons),
		Flags:      replyFlags(reply),
	}, discordgo.WithContext(ctx))
	return mapError(err)
}

// mapError translates 404 responses to chat.ErrNotFound.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", chat.ErrNotFound, err)
	}
	return err
}
