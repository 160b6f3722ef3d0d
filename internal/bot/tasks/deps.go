// Package tasks implements the scheduled maintenance tasks of the ticket bot.
package tasks

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/ticketbot/internal/config"
	"github.com/edgard/ticketbot/internal/database"
)

// ConfirmationSweeper expires stale close confirmations.
type ConfirmationSweeper interface {
	ExpireStale(ctx context.Context) int
}

// TaskDeps contains the dependencies of scheduled tasks. Clock defaults to
// the real clock.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   database.Store
	Tickets ConfirmationSweeper
	Config  *config.Config
	Clock   clockwork.Clock
}
