// Package bot implements lifecycle management and component orchestration
// for the ticket bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/ticketbot/internal/chat"
)

// Gateway is the live connection to the chat platform.
type Gateway interface {
	Open(ctx context.Context) error
	Close() error
	RegisterCommands(ctx context.Context, guildID string, cmds []chat.Command) error
}

// Server is a component that serves until its context is canceled.
type Server interface {
	Start(ctx context.Context) error
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	gateway   Gateway
	guildID   string
	commands  []chat.Command
	scheduler *Scheduler
	health    Server
}

// NewBot creates the orchestrator. health may be nil when the liveness
// endpoint is disabled.
func NewBot(
	logger *slog.Logger,
	gateway Gateway,
	guildID string,
	commands []chat.Command,
	scheduler *Scheduler,
	health Server,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		gateway:   gateway,
		guildID:   guildID,
		commands:  commands,
		scheduler: scheduler,
		health:    health,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Opening Discord gateway...")
		if err := b.gateway.Open(gCtx); err != nil {
			return err
		}
		defer func() {
			if err := b.gateway.Close(); err != nil {
				b.logger.Error("Error closing Discord gateway", "error", err)
			} else {
				b.logger.Info("Discord gateway closed.")
			}
		}()

		if err := b.gateway.RegisterCommands(gCtx, b.guildID, b.commands); err != nil {
			return fmt.Errorf("failed to register commands: %w", err)
		}
		b.logger.Info("Registered slash commands", "guild_id", b.guildID, "count", len(b.commands))

		<-gCtx.Done()
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	if b.health != nil {
		g.Go(func() error {
			return b.health.Start(gCtx)
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
