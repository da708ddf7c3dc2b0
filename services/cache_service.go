package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/blink-new/ipo-showcase-backend/models"
	"github.com/blink-new/ipo-showcase-backend/shared"
	"github.com/sirupsen/logrus"
)

// SnapshotStore persists one opaque batch snapshot per category so cached data
// survives restarts. Implementations must treat the payload as an opaque JSON
// document.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, category string, payload []byte, timestamp time.Time) error
	LoadSnapshot(ctx context.Context, category string) (payload []byte, timestamp time.Time, found bool, err error)
	DeleteSnapshot(ctx context.Context, category string) error
}

// BatchCacheService caches the last materialized batch per category with a
// fixed freshness window. Storage is category-partitioned: mainboard and SME
// entries never overwrite each other. An attached snapshot store gets
// write-through persistence; corrupt stored entries are deleted on detection
// and reported as a miss rather than an error.
type BatchCacheService struct {
	mutex           sync.RWMutex
	entries         map[models.Category]models.CachedBatch
	freshnessWindow time.Duration
	store           SnapshotStore
	nowFunc         func() time.Time
}

// NewBatchCacheService creates a batch cache with the given freshness window.
// A nil store means memory-only caching; a non-positive window falls back to
// the 5 minute default.
func NewBatchCacheService(store SnapshotStore, freshnessWindow time.Duration) *BatchCacheService {
	if freshnessWindow <= 0 {
		freshnessWindow = 5 * time.Minute
	}
	return &BatchCacheService{
		entries:         make(map[models.Category]models.CachedBatch),
		freshnessWindow: freshnessWindow,
		store:           store,
		nowFunc:         time.Now,
	}
}

// FreshnessWindow returns the configured maximum snapshot age.
func (cache *BatchCacheService) FreshnessWindow() time.Duration {
	return cache.freshnessWindow
}

// Get returns the cached batch for the category and its age. The second
// return is false when no entry exists or the entry is older than the
// freshness window.
func (cache *BatchCacheService) Get(ctx context.Context, category models.Category) (models.CachedBatch, time.Duration, bool) {
	now := cache.nowFunc()

	cache.mutex.RLock()
	batch, exists := cache.entries[category]
	cache.mutex.RUnlock()

	if exists {
		if age := batch.Age(now); age <= cache.freshnessWindow {
			return batch, age, true
		}
		cache.mutex.Lock()
		delete(cache.entries, category)
		cache.mutex.Unlock()
		return models.CachedBatch{}, 0, false
	}

	if cache.store == nil {
		return models.CachedBatch{}, 0, false
	}

	return cache.loadFromStore(ctx, category, now)
}

// loadFromStore pulls a persisted snapshot, self-healing corrupt entries.
func (cache *BatchCacheService) loadFromStore(ctx context.Context, category models.Category, now time.Time) (models.CachedBatch, time.Duration, bool) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "BatchCacheService",
		"category":  category,
	})

	payload, timestamp, found, err := cache.store.LoadSnapshot(ctx, string(category))
	if err != nil {
		logger.WithError(err).Warn("Snapshot store read failed, treating as cache miss")
		return models.CachedBatch{}, 0, false
	}
	if !found {
		return models.CachedBatch{}, 0, false
	}

	var ipos []models.IPO
	if err := json.Unmarshal(payload, &ipos); err != nil {
		// Corrupt entry: delete and report a miss instead of surfacing an error.
		shared.NewCacheCorruptError(string(category), err).LogError()
		if deleteErr := cache.store.DeleteSnapshot(ctx, string(category)); deleteErr != nil {
			logger.WithError(deleteErr).Warn("Failed to delete corrupt snapshot")
		}
		return models.CachedBatch{}, 0, false
	}

	batch := models.CachedBatch{Data: ipos, Timestamp: timestamp}
	age := batch.Age(now)
	if age > cache.freshnessWindow {
		return models.CachedBatch{}, 0, false
	}

	cache.mutex.Lock()
	cache.entries[category] = batch
	cache.mutex.Unlock()

	logger.WithFields(logrus.Fields{
		"entities": len(ipos),
		"age":      age,
	}).Debug("Restored batch from snapshot store")

	return batch, age, true
}

// Set stores the batch for the category, stamped with the current time, and
// writes through to the snapshot store when one is attached. A store failure
// is logged but never fails the set: the in-memory entry is authoritative.
func (cache *BatchCacheService) Set(ctx context.Context, category models.Category, ipos []models.IPO) {
	now := cache.nowFunc()
	batch := models.CachedBatch{Data: ipos, Timestamp: now}

	cache.mutex.Lock()
	cache.entries[category] = batch
	cache.mutex.Unlock()

	if cache.store == nil {
		return
	}

	payload, err := json.Marshal(ipos)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "BatchCacheService",
			"category":  category,
		}).WithError(err).Warn("Failed to serialize batch for snapshot store")
		return
	}

	if err := cache.store.SaveSnapshot(ctx, string(category), payload, now); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "BatchCacheService",
			"category":  category,
		}).WithError(err).Warn("Failed to persist batch snapshot")
	}
}

// Clear removes all in-memory entries. Persisted snapshots are untouched;
// the cleanup job prunes those on its own schedule.
func (cache *BatchCacheService) Clear() {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	cache.entries = make(map[models.Category]models.CachedBatch)
}
