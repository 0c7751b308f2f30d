package tasks

import (
	"context"
	"time"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/mappings"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/scheduler"
)

const MappingPruneTaskID = "mapping-prune"

// RegisterMappingPruneTask registers the stale mapping cleanup task.
// Mappings not used within the retention period are dropped so renamed or
// removed local titles do not pin catalog ids forever.
func RegisterMappingPruneTask(sched *scheduler.Scheduler, store *mappings.Store, cron string, retentionDays int) error {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	retention := time.Duration(retentionDays) * 24 * time.Hour

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          MappingPruneTaskID,
		Name:        "Mapping Prune",
		Description: "Deletes mappings not used within the retention period",
		Cron:        cron,
		RunOnStart:  false,
		Func: func(ctx context.Context) error {
			_, err := store.PruneStale(ctx, time.Now().Add(-retention))
			return err
		},
	})
}
