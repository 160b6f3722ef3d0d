package tasks

import (
	"context"

	"github.com/edgard/ticketbot/internal/config"
)

// newConfirmationSweepTask creates the task that removes close confirmations
// whose window has elapsed, along with their prompts.
func newConfirmationSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskConfirmationSweep)

	return func(ctx context.Context) error {
		if n := deps.Tickets.ExpireStale(ctx); n > 0 {
			log.InfoContext(ctx, "Expired close confirmations", "count", n)
		}
		return nil
	}
}
