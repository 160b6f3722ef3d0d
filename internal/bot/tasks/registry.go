package tasks

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/ticketbot/internal/config"
)

// ScheduledTaskFunc defines the signature of all scheduled tasks. The
// context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns every scheduled task keyed by the name used in the
// scheduler section of the configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	tasks := map[string]ScheduledTaskFunc{
		config.TaskConfirmationSweep: newConfirmationSweepTask(deps),
		config.TaskArchiveRetention:  newArchiveRetentionTask(deps),
		config.TaskSQLMaintenance:    newSQLMaintenanceTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
