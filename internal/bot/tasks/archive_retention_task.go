package tasks

import (
	"context"
	"fmt"

	"github.com/edgard/ticketbot/internal/config"
)

// newArchiveRetentionTask creates the task that prunes ledger entries older
// than the configured retention. A zero retention keeps everything.
func newArchiveRetentionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskArchiveRetention)

	return func(ctx context.Context) error {
		retention := deps.Config.Database.ArchiveRetention
		if retention <= 0 {
			log.DebugContext(ctx, "Archive retention disabled, skipping")
			return nil
		}

		cutoff := deps.Clock.Now().Add(-retention).UTC()
		n, err := deps.Store.PruneArchives(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("archive retention failed: %w", err)
		}
		log.InfoContext(ctx, "Archive retention completed", "cutoff", cutoff, "deleted", n)
		return nil
	}
}
