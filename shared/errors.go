package shared

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryConfiguration ErrorCategory = "configuration"
	ErrorCategoryNetwork       ErrorCategory = "network"
	ErrorCategoryDatabase      ErrorCategory = "database"
	ErrorCategoryValidation    ErrorCategory = "validation"
	ErrorCategoryProcessing    ErrorCategory = "processing"
	ErrorCategoryResource      ErrorCategory = "resource"
	ErrorCategoryTimeout       ErrorCategory = "timeout"
)

// Pipeline error codes. These are the only codes the facade inspects when
// deciding between cache fallback and an empty error state.
const (
	CodeFeedUnavailable    = "FEED_UNAVAILABLE"
	CodeEmptyUpstream      = "EMPTY_UPSTREAM"
	CodeCacheCorrupt       = "CACHE_CORRUPT"
	CodeTransformAmbiguous = "TRANSFORM_AMBIGUOUS"
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// NewFeedUnavailableError marks a single upstream feed as down or malformed.
// The fetch layer recovers from these locally by treating the feed as empty.
func NewFeedUnavailableError(feedName, operation string, cause error) *ServiceError {
	return NewServiceError(
		ErrorCategoryNetwork,
		CodeFeedUnavailable,
		fmt.Sprintf("upstream feed %s unavailable", feedName),
		"Feed_Service",
		operation,
		true,
		cause,
	)
}

// NewEmptyUpstreamError signals that no usable entities survived the pipeline.
// Callers must treat this as a fetch failure, not an empty-but-valid result.
func NewEmptyUpstreamError(serviceName, operation string) *ServiceError {
	return NewServiceError(
		ErrorCategoryProcessing,
		CodeEmptyUpstream,
		"no IPO data available from upstream feeds",
		serviceName,
		operation,
		true,
		nil,
	)
}

// NewCacheCorruptError marks a stored snapshot that failed to decode.
// The cache self-heals by deleting the entry and reporting a miss.
func NewCacheCorruptError(key string, cause error) *ServiceError {
	return NewServiceError(
		ErrorCategoryResource,
		CodeCacheCorrupt,
		fmt.Sprintf("cached snapshot %s is corrupt", key),
		"Batch_Cache_Service",
		"Get",
		false,
		cause,
	)
}

// IsEmptyUpstream reports whether err (or anything it wraps) is the
// EmptyUpstream pipeline failure.
func IsEmptyUpstream(err error) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code == CodeEmptyUpstream
	}
	return false
}

// IsRetryable returns whether the error is retryable
func (e *ServiceError) IsRetryable() bool {
	return e.Retryable
}

// GetCategory returns the error category
func (e *ServiceError) GetCategory() ErrorCategory {
	return e.Category
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"error_message":    e.Message,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"timestamp":        e.Timestamp,
		"underlying_error": e.Cause,
	}).Error("Service error occurred")
}
