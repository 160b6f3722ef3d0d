// Package main contains the entrypoint for the Discord ticket bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/ticketbot/internal/bot"
	"github.com/edgard/ticketbot/internal/bot/handlers"
	"github.com/edgard/ticketbot/internal/bot/tasks"
	"github.com/edgard/ticketbot/internal/config"
	"github.com/edgard/ticketbot/internal/database"
	"github.com/edgard/ticketbot/internal/discord"
	"github.com/edgard/ticketbot/internal/health"
	"github.com/edgard/ticketbot/internal/keyword"
	"github.com/edgard/ticketbot/internal/logger"
	"github.com/edgard/ticketbot/internal/ticket"
	"github.com/edgard/ticketbot/internal/transcript"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires config, logger, ledger, Discord session, ticket lifecycle,
// handlers, scheduler and health server, then blocks until shutdown.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		log.Error("Failed to create Discord session", "error", err)
		return 1
	}
	client := discord.New(session, log)

	clock := clockwork.NewRealClock()
	settings := ticket.Settings{
		GuildID:          cfg.Discord.GuildID,
		CategoryID:       cfg.Discord.CategoryID,
		StaffRoleID:      cfg.Discord.StaffRoleID,
		ArchiveChannelID: cfg.Discord.TranscriptChannelID,
		ConfirmTimeout:   cfg.Ticket.ConfirmTimeout,
		GraceDelay:       cfg.Ticket.GraceDelay,
	}
	manager := ticket.NewManager(client, settings, log)
	builder := transcript.NewBuilder(client, cfg.Ticket.TranscriptLimit, cfg.Location(), clock, log)
	controller := ticket.NewController(ticket.ControllerDeps{
		Client:     client,
		Manager:    manager,
		Transcript: builder,
		Ledger:     store,
		Settings:   settings,
		Clock:      clock,
		Logger:     log,
	})

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Client:   client,
		Tickets:  controller,
		Channels: manager,
		Keywords: keyword.New(cfg.Keywords, keyword.WithCooldown(cfg.KeywordCooldown)),
		Store:    store,
	}
	registered := handlers.RegisterAllHandlers(hDeps)
	router := handlers.NewRouter(log, client, registered, logger.Recover(log), logger.Middleware(log))
	client.OnInteraction(ctx, router.Handle)
	client.OnMessage(ctx, logger.RecoverMessages(log, handlers.NewKeywordHandler(hDeps)))

	tDeps := tasks.TaskDeps{
		Logger:  log,
		Store:   store,
		Tickets: controller,
		Config:  cfg,
		Clock:   clock,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps), clock)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	var healthServer bot.Server
	if cfg.HTTP.Enabled {
		healthServer = health.New(cfg.HTTP.Addr, store, log)
	}

	app := bot.NewBot(log, client, cfg.Discord.GuildID, handlers.Commands(registered), sched, healthServer)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
