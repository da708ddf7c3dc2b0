package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ServiceMetrics tracks operation counters and timings for one service.
// Counters are coarse by design; they feed log summaries, not an external
// metrics backend.
type ServiceMetrics struct {
	serviceName string
	mutex       sync.RWMutex

	operationCounts   map[string]int64
	operationFailures map[string]int64
	totalDurations    map[string]time.Duration
	lastOperationTime map[string]time.Time
}

// NewServiceMetrics creates a metrics tracker for the named service
func NewServiceMetrics(serviceName string) *ServiceMetrics {
	return &ServiceMetrics{
		serviceName:       serviceName,
		operationCounts:   make(map[string]int64),
		operationFailures: make(map[string]int64),
		totalDurations:    make(map[string]time.Duration),
		lastOperationTime: make(map[string]time.Time),
	}
}

// RecordOperation records one completed operation with its outcome and duration
func (m *ServiceMetrics) RecordOperation(operation string, duration time.Duration, success bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.operationCounts[operation]++
	m.totalDurations[operation] += duration
	m.lastOperationTime[operation] = time.Now()
	if !success {
		m.operationFailures[operation]++
	}
}

// OperationCount returns how many times the operation has run
func (m *ServiceMetrics) OperationCount(operation string) int64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.operationCounts[operation]
}

// FailureCount returns how many runs of the operation failed
func (m *ServiceMetrics) FailureCount(operation string) int64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.operationFailures[operation]
}

// AverageDuration returns the mean duration of the operation, zero if it never ran
func (m *ServiceMetrics) AverageDuration(operation string) time.Duration {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	count := m.operationCounts[operation]
	if count == 0 {
		return 0
	}
	return m.totalDurations[operation] / time.Duration(count)
}

// Snapshot returns a flat view of all counters for handlers and log summaries
func (m *ServiceMetrics) Snapshot() map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	operations := make(map[string]interface{}, len(m.operationCounts))
	for operation, count := range m.operationCounts {
		var avg time.Duration
		if count > 0 {
			avg = m.totalDurations[operation] / time.Duration(count)
		}
		operations[operation] = map[string]interface{}{
			"count":            count,
			"failures":         m.operationFailures[operation],
			"average_duration": avg.String(),
			"last_run":         m.lastOperationTime[operation],
		}
	}

	return map[string]interface{}{
		"service":    m.serviceName,
		"operations": operations,
	}
}

// LogSummary emits a structured summary of all tracked operations
func (m *ServiceMetrics) LogSummary() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for operation, count := range m.operationCounts {
		logrus.WithFields(logrus.Fields{
			"service":   m.serviceName,
			"operation": operation,
			"count":     count,
			"failures":  m.operationFailures[operation],
		}).Info("Service metrics summary")
	}
}
