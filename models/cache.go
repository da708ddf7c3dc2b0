package models

import "time"

// CachedBatch is the opaque snapshot stored by the cache layer: the last
// successfully materialized batch for one category plus its creation time.
type CachedBatch struct {
	Data      []IPO     `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Age returns how old the snapshot is relative to the given instant.
func (b CachedBatch) Age(now time.Time) time.Duration {
	return now.Sub(b.Timestamp)
}
