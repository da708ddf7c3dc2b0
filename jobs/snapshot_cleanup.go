package jobs

import (
	"context"
	"time"

	"github.com/blink-new/ipo-showcase-backend/database"
	"github.com/sirupsen/logrus"
)

// SnapshotCleanupJob prunes persisted batch snapshots that are far past the
// freshness window. Stale snapshots are never served, so this is purely about
// keeping the table from accumulating dead rows.
type SnapshotCleanupJob struct {
	store  *database.PostgresSnapshotStore
	maxAge time.Duration
}

// NewSnapshotCleanupJob creates a cleanup job. A non-positive maxAge falls
// back to 24 hours.
func NewSnapshotCleanupJob(store *database.PostgresSnapshotStore, maxAge time.Duration) *SnapshotCleanupJob {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &SnapshotCleanupJob{store: store, maxAge: maxAge}
}

// Run deletes snapshots older than maxAge.
func (job *SnapshotCleanupJob) Run() {
	logrus.Info("Starting snapshot cleanup job")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pruned, err := job.store.PruneSnapshotsOlderThan(ctx, job.maxAge)
	if err != nil {
		logrus.WithError(err).Error("Snapshot cleanup failed")
		return
	}

	logrus.WithField("pruned", pruned).Info("Snapshot cleanup job completed")
}
