package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/ticketbot/internal/chat"
)

// OnInteraction dispatches command and component interactions to handler.
// Each event runs with ctx as its parent context.
func (c *Client) OnInteraction(ctx context.Context, handler chat.InteractionHandler) {
	c.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.InteractionCreate) {
		ix, ok := toChatInteraction(ev.Interaction)
		if !ok {
			c.logger.DebugContext(ctx, "Ignoring unsupported interaction", "type", ev.Type.String())
			return
		}
		handler(ctx, ix)
	})
}

// OnMessage dispatches guild messages to handler.
func (c *Client) OnMessage(ctx context.Context, handler chat.MessageHandler) {
	c.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageCreate) {
		if ev.Message == nil || ev.GuildID == "" {
			return
		}
		msg := toMessage(ev.Message)
		handler(ctx, &msg)
	})
}

// Open connects to the gateway and logs the bot identity once ready.
func (c *Client) Open(ctx context.Context) error {
	c.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		c.logger.InfoContext(ctx, "Connected to Discord", "user_id", r.User.ID, "username", r.User.Username, "guilds", len(r.Guilds))
	})
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (c *Client) Close() error {
	return c.session.Close()
}

// Self returns the bot user. It is only known after Open.
func (c *Client) Self() chat.User {
	if c.session.State == nil || c.session.State.User == nil {
		return chat.User{}
	}
	return toUser(c.session.State.User)
}

// RegisterCommands replaces the guild's slash commands with cmds.
func (c *Client) RegisterCommands(ctx context.Context, guildID string, cmds []chat.Command) error {
	self := c.Self()
	if self.ID == "" {
		return fmt.Errorf("cannot register commands before the gateway is open")
	}
	registered, err := c.session.ApplicationCommandBulkOverwrite(self.ID, guildID,
		toApplicationCommands(cmds), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", mapError(err))
	}
	c.logger.InfoContext(ctx, "Registered slash commands", "guild_id", guildID, "count", len(registered))
	return nil
}
