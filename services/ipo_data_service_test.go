package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blink-new/ipo-showcase-backend/models"
	"github.com/blink-new/ipo-showcase-backend/shared"
)

func newTestFacade(baseURL string, cache *BatchCacheService) *IPODataService {
	utility := NewUtilityService()
	synthetic := NewSeededSyntheticDataGenerator(42)
	feed := newTestFeedService(baseURL)
	pipeline := NewPipelineService(utility, NewTransformService(utility, synthetic))
	if cache == nil {
		cache = NewBatchCacheService(nil, 5*time.Minute)
	}
	return NewIPODataService(feed, pipeline, cache, synthetic)
}

func healthyFeedServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "ipoperformance-read") {
			w.Write([]byte(`{"ipoPerformanceList":[{"ipo_id":1,"ipo_company_name":"Acme Tech Ltd","il_ipo_listing_date":"2020-07-21","ipo_issue_price_final":100,"current_index":135,"ipo_profit_loss":35}]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
}

func failingFeedServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
}

func TestLoadSuccessPublishesBatch(t *testing.T) {
	server := healthyFeedServer()
	defer server.Close()

	facade := newTestFacade(server.URL, nil)

	if facade.State(models.CategoryMainboard) != LoadStateIdle {
		t.Fatal("category should start idle")
	}

	if err := facade.Load(context.Background(), models.CategoryMainboard); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if facade.State(models.CategoryMainboard) != LoadStateReady {
		t.Errorf("state = %v, want ready", facade.State(models.CategoryMainboard))
	}

	snapshot := facade.Snapshot(models.CategoryMainboard)
	if len(snapshot.IPOs) != 1 || snapshot.IPOs[0].CompanyName != "Acme Tech Ltd" {
		t.Fatalf("snapshot missing loaded entity: %+v", snapshot.IPOs)
	}
	if snapshot.Error != nil {
		t.Errorf("successful load should clear the error, got %q", *snapshot.Error)
	}
	if snapshot.LastUpdated == nil {
		t.Error("successful load should stamp LastUpdated")
	}
	if !snapshot.IsLiveData {
		t.Error("successful load should mark data as live")
	}
	if snapshot.Loading {
		t.Error("finished load should not report loading")
	}
}

func TestLoadSuccessWritesThroughToCache(t *testing.T) {
	server := healthyFeedServer()
	defer server.Close()

	cache := NewBatchCacheService(nil, 5*time.Minute)
	facade := newTestFacade(server.URL, cache)

	if err := facade.Load(context.Background(), models.CategoryMainboard); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	batch, _, ok := cache.Get(context.Background(), models.CategoryMainboard)
	if !ok || len(batch.Data) != 1 {
		t.Fatal("successful load should populate the cache")
	}
}

func TestLoadFailureKeepsPreviousBatch(t *testing.T) {
	healthy := healthyFeedServer()
	facade := newTestFacade(healthy.URL, nil)

	if err := facade.Load(context.Background(), models.CategoryMainboard); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}
	healthy.Close()

	// The feed endpoint is now gone; the next load fails but the previously
	// displayed batch must survive.
	err := facade.Load(context.Background(), models.CategoryMainboard)
	if err == nil {
		t.Fatal("load against a dead endpoint should fail")
	}

	if facade.State(models.CategoryMainboard) != LoadStateFailed {
		t.Errorf("state = %v, want failed", facade.State(models.CategoryMainboard))
	}

	snapshot := facade.Snapshot(models.CategoryMainboard)
	if len(snapshot.IPOs) != 1 {
		t.Fatal("failure must not blank the previously displayed batch")
	}
	if snapshot.Error == nil {
		t.Fatal("failed load should expose a readable reason")
	}
}

func TestLoadFailureSurfacesCachedBatch(t *testing.T) {
	server := failingFeedServer()
	defer server.Close()

	// Cache warmed by a previous process: the facade has never loaded.
	cache := NewBatchCacheService(nil, 5*time.Minute)
	cache.Set(context.Background(), models.CategoryMainboard, testBatch("Cached Co Ltd"))

	facade := newTestFacade(server.URL, cache)

	err := facade.Load(context.Background(), models.CategoryMainboard)
	if err == nil {
		t.Fatal("load should fail when all feeds are down")
	}
	if !shared.IsEmptyUpstream(err) {
		t.Errorf("expected EmptyUpstream, got %v", err)
	}

	snapshot := facade.Snapshot(models.CategoryMainboard)
	if len(snapshot.IPOs) != 1 || snapshot.IPOs[0].CompanyName != "Cached Co Ltd" {
		t.Fatalf("cached batch should be surfaced on failure: %+v", snapshot.IPOs)
	}
	if snapshot.Error == nil || !strings.Contains(*snapshot.Error, "no mainboard IPO data") {
		t.Errorf("empty-upstream reason should name the category, got %v", snapshot.Error)
	}
}

func TestLoadFailureWithNothingToShow(t *testing.T) {
	server := failingFeedServer()
	defer server.Close()

	facade := newTestFacade(server.URL, nil)

	if err := facade.Load(context.Background(), models.CategoryMainboard); err == nil {
		t.Fatal("load should fail")
	}

	snapshot := facade.Snapshot(models.CategoryMainboard)
	if len(snapshot.IPOs) != 0 {
		t.Errorf("nothing was ever loaded, IPOs should be empty: %+v", snapshot.IPOs)
	}
	if snapshot.Error == nil {
		t.Error("failure should expose a readable reason")
	}
}

func TestCategoriesAreIndependent(t *testing.T) {
	server := healthyFeedServer()
	defer server.Close()

	facade := newTestFacade(server.URL, nil)

	if err := facade.Load(context.Background(), models.CategoryMainboard); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if facade.State(models.CategorySME) != LoadStateIdle {
		t.Error("loading mainboard must not touch sme state")
	}
	if len(facade.Snapshot(models.CategorySME).IPOs) != 0 {
		t.Error("sme snapshot should be empty")
	}
}

func TestSetCategory(t *testing.T) {
	facade := newTestFacade("http://127.0.0.1:0", nil)

	if facade.Category() != models.CategoryMainboard {
		t.Errorf("default category = %v, want mainboard", facade.Category())
	}
	facade.SetCategory(models.CategorySME)
	if facade.Category() != models.CategorySME {
		t.Errorf("Category() = %v after SetCategory", facade.Category())
	}
}

func TestGetSubscriptionStatus(t *testing.T) {
	server := healthyFeedServer()
	defer server.Close()

	facade := newTestFacade(server.URL, nil)
	if err := facade.Load(context.Background(), models.CategoryMainboard); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	entity := facade.Snapshot(models.CategoryMainboard).IPOs[0]

	first, err := facade.GetSubscriptionStatus(entity.ID)
	if err != nil {
		t.Fatalf("GetSubscriptionStatus failed: %v", err)
	}
	second, err := facade.GetSubscriptionStatus(entity.ID)
	if err != nil {
		t.Fatalf("GetSubscriptionStatus failed: %v", err)
	}

	// Fresh snapshot per call: with a random generator two draws matching
	// exactly would mean the value was cached.
	if first == second {
		t.Error("subscription snapshots should be synthesized per call, not cached")
	}

	if _, err := facade.GetSubscriptionStatus("no-such-id"); err == nil {
		t.Error("unknown ID should return an error")
	}
}

type stubDecorator struct {
	calls int
}

func (d *stubDecorator) Decorate(_ context.Context, ipos []models.IPO) []models.IPO {
	d.calls++
	for i := range ipos {
		ipos[i].Registrar = "Decorated Registrar"
	}
	return ipos
}

func TestDecoratorsRunOnSuccessfulLoad(t *testing.T) {
	server := healthyFeedServer()
	defer server.Close()

	utility := NewUtilityService()
	synthetic := NewSeededSyntheticDataGenerator(42)
	decorator := &stubDecorator{}
	facade := NewIPODataService(
		newTestFeedService(server.URL),
		NewPipelineService(utility, NewTransformService(utility, synthetic)),
		NewBatchCacheService(nil, 5*time.Minute),
		synthetic,
		decorator,
	)

	if err := facade.Load(context.Background(), models.CategoryMainboard); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if decorator.calls != 1 {
		t.Errorf("decorator should run once per load, ran %d times", decorator.calls)
	}
	if facade.Snapshot(models.CategoryMainboard).IPOs[0].Registrar != "Decorated Registrar" {
		t.Error("decorated batch should be the published one")
	}
}

func TestFindIPO(t *testing.T) {
	server := healthyFeedServer()
	defer server.Close()

	facade := newTestFacade(server.URL, nil)
	if err := facade.Load(context.Background(), models.CategoryMainboard); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, found := facade.FindIPO("performance-mainboard-1"); !found {
		t.Error("loaded entity should be findable by ID")
	}
	if _, found := facade.FindIPO("bogus"); found {
		t.Error("unknown ID should not be found")
	}
}
