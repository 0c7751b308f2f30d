package tasks

import (
	"context"

	"github.com/imkylecat/crunchyroll-jellyfin/internal/crunchyroll"
	"github.com/imkylecat/crunchyroll-jellyfin/internal/scheduler"
)

const CacheSweepTaskID = "catalog-cache-sweep"

// RegisterCacheSweepTask registers the catalog cache sweep task, which
// drops expired search and season entries every hour.
func RegisterCacheSweepTask(sched *scheduler.Scheduler, client *crunchyroll.CachedClient) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          CacheSweepTaskID,
		Name:        "Catalog Cache Sweep",
		Description: "Removes expired catalog cache entries",
		Cron:        "0 * * * *",
		RunOnStart:  false,
		Func: func(ctx context.Context) error {
			client.SweepCache()
			return nil
		},
	})
}
