package tasks

import (
	"context"
	"fmt"

	"github.com/edgard/ticketbot/internal/config"
)

// newSQLMaintenanceTask creates the task that vacuums the ledger database.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskSQLMaintenance)

	return func(ctx context.Context) error {
		startTime := deps.Clock.Now()

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance task failed", "error", err, "duration", deps.Clock.Since(startTime))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "SQL maintenance completed", "duration", deps.Clock.Since(startTime))
		return nil
	}
}
