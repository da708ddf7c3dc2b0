package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/blink-new/ipo-showcase-backend/config"
	"github.com/blink-new/ipo-showcase-backend/models"
	"github.com/blink-new/ipo-showcase-backend/shared"
	"github.com/sirupsen/logrus"
)

// feedDescriptor identifies one upstream endpoint and the wrapper key its
// payload list is usually published under.
type feedDescriptor struct {
	name       string
	path       string
	wrapperKey string
}

var feedDescriptors = []feedDescriptor{
	{name: "performance", path: "ipoperformance-read", wrapperKey: "ipoPerformanceList"},
	{name: "prospectus", path: "ipoprospectus-read", wrapperKey: "ipoProspectusList"},
	{name: "calendar", path: "ipocalendar-read", wrapperKey: "ipoCalendarList"},
}

// FeedService fetches the three upstream feeds for a category. Each feed is
// requested concurrently and evaluated independently: a failed or malformed
// feed degrades to an empty list instead of failing the fetch (all-settled
// semantics). Only all three coming back empty is reported as an error.
type FeedService struct {
	configuration  *config.FeedConfig
	httpClient     *http.Client
	rateLimiter    *shared.HTTPRequestRateLimiter
	serviceMetrics *shared.ServiceMetrics
}

// NewFeedService creates a feed service with the given configuration, falling
// back to defaults when nil or partially filled.
func NewFeedService(cfg *config.FeedConfig) *FeedService {
	if cfg == nil {
		cfg = config.DefaultFeedConfig()
	} else {
		if cfg.BaseURL == "" {
			cfg.BaseURL = config.DefaultFeedConfig().BaseURL
		}
		defaults := config.DefaultFeedConfig()
		if cfg.RequestTimeout <= 0 {
			cfg.RequestTimeout = defaults.RequestTimeout
		}
		if cfg.RequestRateLimit <= 0 {
			cfg.RequestRateLimit = defaults.RequestRateLimit
		}
		if cfg.MaxRetryAttempts < 0 {
			cfg.MaxRetryAttempts = defaults.MaxRetryAttempts
		}
	}

	clientFactory := shared.NewHTTPClientFactory(cfg.RequestTimeout)

	return &FeedService{
		configuration:  cfg,
		httpClient:     clientFactory.CreateOptimizedHTTPClient(cfg.RequestTimeout),
		rateLimiter:    shared.NewHTTPRequestRateLimiter(cfg.RequestRateLimit),
		serviceMetrics: shared.NewServiceMetrics("Feed_Service"),
	}
}

// Metrics exposes the service's operation counters.
func (service *FeedService) Metrics() *shared.ServiceMetrics {
	return service.serviceMetrics
}

// categorySegment maps the API category to the provider's URL segment.
func categorySegment(category models.Category) string {
	if category == models.CategorySME {
		return "sme"
	}
	return "mainline"
}

// FetchFeedBundle issues the three feed requests for the category concurrently
// and joins them with all-settled semantics. The returned bundle always has
// three (possibly empty) lists; the error is non-nil only when every feed came
// back empty, which callers must treat as a fetch failure.
func (service *FeedService) FetchFeedBundle(ctx context.Context, category models.Category) (models.FeedBundle, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "FeedService",
		"method":    "FetchFeedBundle",
		"category":  category,
	})
	logger.Info("Fetching upstream feed bundle")

	startTime := time.Now()
	segment := categorySegment(category)

	var bundle models.FeedBundle
	var waitGroup sync.WaitGroup
	waitGroup.Add(len(feedDescriptors))

	for _, descriptor := range feedDescriptors {
		go func(descriptor feedDescriptor) {
			defer waitGroup.Done()

			endpointURL := fmt.Sprintf("%s/%s/%s", service.configuration.BaseURL, descriptor.path, segment)
			payloadList, err := service.fetchPayloadList(ctx, endpointURL, descriptor.wrapperKey)
			if err != nil {
				// One feed down must not abort the others.
				shared.NewFeedUnavailableError(descriptor.name, "FetchFeedBundle", err).LogError()
				return
			}

			switch descriptor.name {
			case "performance":
				bundle.Performance = decodeRecords[models.PerformanceRecord](descriptor.name, payloadList)
			case "prospectus":
				bundle.Prospectus = decodeRecords[models.ProspectusRecord](descriptor.name, payloadList)
			case "calendar":
				bundle.Calendar = decodeRecords[models.CalendarRecord](descriptor.name, payloadList)
			}
		}(descriptor)
	}

	waitGroup.Wait()

	logger.WithFields(logrus.Fields{
		"performance_records": len(bundle.Performance),
		"prospectus_records":  len(bundle.Prospectus),
		"calendar_records":    len(bundle.Calendar),
		"duration":            time.Since(startTime),
	}).Info("Feed bundle fetched")

	if bundle.IsEmpty() {
		service.serviceMetrics.RecordOperation("FetchFeedBundle", time.Since(startTime), false)
		return bundle, shared.NewEmptyUpstreamError("Feed_Service", "FetchFeedBundle")
	}

	service.serviceMetrics.RecordOperation("FetchFeedBundle", time.Since(startTime), true)
	return bundle, nil
}

// fetchPayloadList performs one feed request and extracts the payload list.
// Callers treat any returned error as that feed being unavailable.
func (service *FeedService) fetchPayloadList(ctx context.Context, endpointURL, wrapperKey string) ([]json.RawMessage, error) {
	service.rateLimiter.EnforceRateLimit()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	shared.SetBrowserLikeHeaders(request, "application/json, text/plain, */*")

	response, err := shared.ExecuteHTTPRequestWithRetry(service.httpClient, request, service.configuration.MaxRetryAttempts)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed response body: %w", err)
	}

	return extractPayloadList(body, wrapperKey)
}

// extractPayloadList pulls the record array out of a feed response body. The
// upstream shape is undocumented and has been seen as a top-level array, a
// {"data": [...]} wrapper, and a feed-specific wrapper key; anything else is a
// malformed response.
func extractPayloadList(body []byte, wrapperKey string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty feed response body")
	}

	if trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to parse top-level feed array: %w", err)
		}
		return list, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse feed response object: %w", err)
	}

	for _, key := range []string{wrapperKey, "data"} {
		raw, exists := envelope[key]
		if !exists {
			continue
		}
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("feed payload key %q is not a list: %w", key, err)
		}
		return list, nil
	}

	return nil, fmt.Errorf("feed response has no payload list under %q or \"data\"", wrapperKey)
}

// decodeRecords unmarshals each raw payload entry into the feed's record type.
// Entries that fail to decode are skipped with a warning rather than failing
// the feed; the upstream occasionally mixes malformed rows into valid lists.
func decodeRecords[T any](feedName string, payloadList []json.RawMessage) []T {
	records := make([]T, 0, len(payloadList))
	for index, raw := range payloadList {
		var record T
		if err := json.Unmarshal(raw, &record); err != nil {
			logrus.WithFields(logrus.Fields{
				"component": "FeedService",
				"feed":      feedName,
				"index":     index,
			}).WithError(err).Warn("Skipping malformed feed record")
			continue
		}
		records = append(records, record)
	}
	return records
}
