package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blink-new/ipo-showcase-backend/models"
	"github.com/blink-new/ipo-showcase-backend/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LoadState is the facade's per-category lifecycle state.
type LoadState int

const (
	LoadStateIdle LoadState = iota
	LoadStateLoading
	LoadStateReady
	LoadStateFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadStateLoading:
		return "loading"
	case LoadStateReady:
		return "ready"
	case LoadStateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// categoryState is the mutable working set for one category.
type categoryState struct {
	state       LoadState
	ipos        []models.IPO
	errMessage  *string
	lastUpdated *time.Time
	isLiveData  bool
}

// BatchDecorator post-processes a freshly built batch before it is published.
// The live GMP overlay and prospectus enrichment plug in here; decorator
// failures must degrade to the undecorated batch, never fail the load.
type BatchDecorator interface {
	Decorate(ctx context.Context, ipos []models.IPO) []models.IPO
}

// IPODataService is the data-access facade the UI layer consumes. It
// orchestrates fetch, transform/reconcile, and cache, and answers the
// per-entity subscription-status query. Overlapping loads are applied in
// completion order: each finished load overwrites the prior working set, so
// results never interleave.
type IPODataService struct {
	feedService     *FeedService
	pipelineService *PipelineService
	cacheService    *BatchCacheService
	synthetic       SyntheticDataGenerator
	decorators      []BatchDecorator
	serviceMetrics  *shared.ServiceMetrics

	mutex           sync.RWMutex
	states          map[models.Category]*categoryState
	currentCategory models.Category
	loadSequence    uint64
	nowFunc         func() time.Time
}

// NewIPODataService wires the facade from its collaborators. Nil collaborators
// fall back to defaults so tests can construct partial facades.
func NewIPODataService(
	feedService *FeedService,
	pipelineService *PipelineService,
	cacheService *BatchCacheService,
	synthetic SyntheticDataGenerator,
	decorators ...BatchDecorator,
) *IPODataService {
	if feedService == nil {
		feedService = NewFeedService(nil)
	}
	if pipelineService == nil {
		pipelineService = NewPipelineService(nil, nil)
	}
	if cacheService == nil {
		cacheService = NewBatchCacheService(nil, 0)
	}
	if synthetic == nil {
		synthetic = NewSyntheticDataGenerator()
	}
	return &IPODataService{
		feedService:     feedService,
		pipelineService: pipelineService,
		cacheService:    cacheService,
		synthetic:       synthetic,
		decorators:      decorators,
		serviceMetrics:  shared.NewServiceMetrics("IPO_Data_Service"),
		states:          make(map[models.Category]*categoryState),
		currentCategory: models.CategoryMainboard,
		nowFunc:         time.Now,
	}
}

// stateFor returns the working state for a category, creating it on first use.
// Caller must hold the mutex.
func (service *IPODataService) stateFor(category models.Category) *categoryState {
	state, exists := service.states[category]
	if !exists {
		state = &categoryState{state: LoadStateIdle}
		service.states[category] = state
	}
	return state
}

// Category returns the currently selected category.
func (service *IPODataService) Category() models.Category {
	service.mutex.RLock()
	defer service.mutex.RUnlock()
	return service.currentCategory
}

// SetCategory switches the category the auto-refresh targets.
func (service *IPODataService) SetCategory(category models.Category) {
	service.mutex.Lock()
	defer service.mutex.Unlock()
	service.currentCategory = category
}

// Load runs the full pipeline for a category: surface a fresh cached batch
// immediately for responsiveness, then always attempt a live fetch. On success
// the working set is replaced and written through to the cache; on failure a
// previously displayed batch is preserved (never blank the screen on a
// transient failure) and the state is marked failed with a readable reason.
// Safe to call while a prior load is in flight.
func (service *IPODataService) Load(ctx context.Context, category models.Category) error {
	sequence := atomic.AddUint64(&service.loadSequence, 1)
	logger := logrus.WithFields(logrus.Fields{
		"component":      "IPODataService",
		"method":         "Load",
		"category":       category,
		"load_sequence":  sequence,
		"correlation_id": uuid.New().String(),
	})
	logger.Info("Starting IPO data load")
	startTime := time.Now()

	service.mutex.Lock()
	state := service.stateFor(category)
	state.state = LoadStateLoading
	service.mutex.Unlock()

	// Cached batch first: the UI gets something to render while the live
	// fetch is in flight. The live fetch still always runs.
	if batch, age, ok := service.cacheService.Get(ctx, category); ok {
		service.mutex.Lock()
		if len(state.ipos) == 0 {
			state.ipos = batch.Data
			timestamp := batch.Timestamp
			state.lastUpdated = &timestamp
			state.isLiveData = true
		}
		service.mutex.Unlock()
		logger.WithFields(logrus.Fields{
			"cached_entities": len(batch.Data),
			"cache_age":       age,
		}).Debug("Surfaced cached batch while fetching live data")
	}

	ipos, err := service.runPipeline(ctx, category)
	if err != nil {
		service.applyFailure(category, err, logger)
		service.serviceMetrics.RecordOperation("Load", time.Since(startTime), false)
		return err
	}

	service.applySuccess(ctx, category, ipos, logger)
	service.serviceMetrics.RecordOperation("Load", time.Since(startTime), true)
	return nil
}

// Refresh is the user/timer-triggered alias for Load.
func (service *IPODataService) Refresh(ctx context.Context, category models.Category) error {
	return service.Load(ctx, category)
}

// runPipeline executes fetch, reconcile, and decoration for one load.
func (service *IPODataService) runPipeline(ctx context.Context, category models.Category) ([]models.IPO, error) {
	bundle, err := service.feedService.FetchFeedBundle(ctx, category)
	if err != nil {
		return nil, err
	}

	ipos, err := service.pipelineService.BuildBatch(bundle, category, service.nowFunc())
	if err != nil {
		return nil, err
	}

	for _, decorator := range service.decorators {
		ipos = decorator.Decorate(ctx, ipos)
	}

	return ipos, nil
}

// applySuccess publishes a completed batch. Publication happens under the
// mutex in completion order, so a slower older load that finishes later
// overwrites a newer one: last-completed wins by design.
func (service *IPODataService) applySuccess(ctx context.Context, category models.Category, ipos []models.IPO, logger *logrus.Entry) {
	now := service.nowFunc()

	service.mutex.Lock()
	state := service.stateFor(category)
	state.state = LoadStateReady
	state.ipos = ipos
	state.errMessage = nil
	state.lastUpdated = &now
	state.isLiveData = true
	service.mutex.Unlock()

	service.cacheService.Set(ctx, category, ipos)

	logger.WithField("entities", len(ipos)).Info("IPO data load succeeded")
}

// applyFailure marks the category failed while preserving any previously
// displayed batch. The reason distinguishes empty upstream data from an
// unreachable upstream so the UI can render the right empty state.
func (service *IPODataService) applyFailure(category models.Category, err error, logger *logrus.Entry) {
	reason := fmt.Sprintf("upstream feeds unreachable: %v", err)
	if shared.IsEmptyUpstream(err) {
		reason = fmt.Sprintf("no %s IPO data available from upstream feeds", category)
	}

	service.mutex.Lock()
	state := service.stateFor(category)
	state.state = LoadStateFailed
	state.errMessage = &reason
	service.mutex.Unlock()

	logger.WithError(err).Warn("IPO data load failed")
}

// Snapshot returns the UI contract for a category: the working set, loading
// flag, last error, and data provenance.
func (service *IPODataService) Snapshot(category models.Category) models.DashboardState {
	service.mutex.RLock()
	defer service.mutex.RUnlock()

	state := service.states[category]
	if state == nil {
		return models.DashboardState{
			IPOs:     []models.IPO{},
			Category: category,
		}
	}

	ipos := make([]models.IPO, len(state.ipos))
	copy(ipos, state.ipos)

	return models.DashboardState{
		IPOs:        ipos,
		Loading:     state.state == LoadStateLoading,
		Error:       state.errMessage,
		LastUpdated: state.lastUpdated,
		IsLiveData:  state.isLiveData,
		Category:    category,
	}
}

// State returns the lifecycle state for a category.
func (service *IPODataService) State(category models.Category) LoadState {
	service.mutex.RLock()
	defer service.mutex.RUnlock()

	if state := service.states[category]; state != nil {
		return state.state
	}
	return LoadStateIdle
}

// FindIPO looks up an entity by ID across all loaded categories.
func (service *IPODataService) FindIPO(ipoID string) (models.IPO, bool) {
	service.mutex.RLock()
	defer service.mutex.RUnlock()

	for _, state := range service.states {
		for _, entity := range state.ipos {
			if entity.ID == ipoID {
				return entity, true
			}
		}
	}
	return models.IPO{}, false
}

// Metrics returns the facade's operation counters for diagnostics.
func (service *IPODataService) Metrics() map[string]interface{} {
	return service.serviceMetrics.Snapshot()
}

// GetSubscriptionStatus synthesizes a fresh subscription snapshot for one
// entity. Deliberately uncached: the detail view polls this every 15-30s
// while an open IPO's modal is visible. Values are placeholders, not live
// exchange data.
func (service *IPODataService) GetSubscriptionStatus(ipoID string) (models.SubscriptionStatus, error) {
	if _, found := service.FindIPO(ipoID); !found {
		return models.SubscriptionStatus{}, shared.NewServiceError(
			shared.ErrorCategoryValidation,
			"IPO_NOT_FOUND",
			fmt.Sprintf("no IPO with id %s in the current working set", ipoID),
			"IPO_Data_Service",
			"GetSubscriptionStatus",
			false,
			nil,
		)
	}

	return service.synthetic.SubscriptionSnapshot(), nil
}
