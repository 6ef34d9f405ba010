// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// SnapshotPruner is satisfied by the relationship manager's snapshot cache.
type SnapshotPruner interface {
	Prune(cutoff time.Time) int
}

// SnapshotPruneJob drops relationship snapshots older than maxAge so the
// cache does not grow with every user ever touched.
func SnapshotPruneJob(p SnapshotPruner, maxAge time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "snapshot-prune",
		Interval: maxAge / 2,
		Run: func(ctx context.Context) error {
			if n := p.Prune(time.Now().Add(-maxAge)); n > 0 {
				logger.Debug("pruned relationship snapshots",
					zap.Int("count", n),
					zap.Duration("max_age", maxAge))
			}
			return nil
		},
	}
}
