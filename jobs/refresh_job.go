package jobs

import (
	"context"
	"time"

	"github.com/blink-new/ipo-showcase-backend/services"
	"github.com/sirupsen/logrus"
)

// RefreshJob periodically reloads IPO data for the currently selected
// category so the dashboard stays within its freshness window without user
// interaction.
type RefreshJob struct {
	dataService *services.IPODataService
	interval    time.Duration
	stopChannel chan struct{}
	isRunning   bool
}

// NewRefreshJob creates a refresh job. A non-positive interval falls back to
// 5 minutes, matching the cache freshness window.
func NewRefreshJob(dataService *services.IPODataService, interval time.Duration) *RefreshJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RefreshJob{
		dataService: dataService,
		interval:    interval,
		stopChannel: make(chan struct{}),
	}
}

// Run executes one refresh for the currently selected category.
func (job *RefreshJob) Run() error {
	category := job.dataService.Category()
	logrus.WithFields(logrus.Fields{
		"job":      "RefreshJob",
		"category": category,
	}).Info("Starting scheduled IPO data refresh")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := job.dataService.Refresh(ctx, category); err != nil {
		logrus.WithError(err).Error("Scheduled IPO data refresh failed")
		return err
	}

	logrus.WithField("job", "RefreshJob").Info("Scheduled IPO data refresh completed")
	return nil
}

// Start begins periodic refreshes. The first refresh happens after one full
// interval; main does the initial load itself.
func (job *RefreshJob) Start() {
	if job.isRunning {
		logrus.Warn("Refresh job already running")
		return
	}
	job.isRunning = true

	logrus.WithField("interval", job.interval).Info("Starting periodic IPO data refresh")

	go func() {
		ticker := time.NewTicker(job.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := job.Run(); err != nil {
					logrus.WithError(err).Error("Periodic refresh failed")
				}
			case <-job.stopChannel:
				logrus.Info("Refresh job stopped")
				return
			}
		}
	}()
}

// Stop halts periodic refreshes.
func (job *RefreshJob) Stop() {
	if !job.isRunning {
		return
	}
	job.isRunning = false
	close(job.stopChannel)
}
