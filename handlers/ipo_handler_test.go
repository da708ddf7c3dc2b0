package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blink-new/ipo-showcase-backend/config"
	"github.com/blink-new/ipo-showcase-backend/services"
	"github.com/gofiber/fiber/v2"
)

func newTestApp(feedURL string) (*fiber.App, *services.IPODataService) {
	feedService := services.NewFeedService(&config.FeedConfig{
		BaseURL:          feedURL,
		RequestTimeout:   2 * time.Second,
		RequestRateLimit: time.Millisecond,
	})
	dataService := services.NewIPODataService(feedService, nil, nil, nil)

	handler := NewIPOHandler(dataService)
	app := fiber.New()
	api := app.Group("/api/v1")
	api.Get("/ipos", handler.GetDashboard)
	api.Get("/ipos/:id/subscription", handler.GetSubscriptionStatus)
	api.Get("/ipos/:id", handler.GetIPOByID)
	api.Post("/ipos/refresh", handler.Refresh)

	return app, dataService
}

func newHandlerFeedServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "ipoperformance-read") {
			w.Write([]byte(`{"ipoPerformanceList":[{"ipo_id":1,"ipo_company_name":"Acme Tech Ltd","il_ipo_listing_date":"2020-07-21","ipo_issue_price_final":100,"current_index":135,"ipo_profit_loss":35}]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, response *http.Response) apiEnvelope {
	t.Helper()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("response is not the expected envelope: %v\n%s", err, body)
	}
	return envelope
}

func TestGetDashboardLoadsOnFirstRequest(t *testing.T) {
	server := newHandlerFeedServer()
	defer server.Close()

	app, _ := newTestApp(server.URL)

	request := httptest.NewRequest(http.MethodGet, "/api/v1/ipos?category=mainboard", nil)
	response, err := app.Test(request, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", response.StatusCode)
	}

	envelope := decodeEnvelope(t, response)
	if !envelope.Success {
		t.Fatalf("expected success envelope: %s", envelope.Error)
	}

	var state struct {
		IPOs []struct {
			ID          string `json:"id"`
			CompanyName string `json:"companyName"`
		} `json:"ipos"`
		IsLiveData bool `json:"isLiveData"`
	}
	if err := json.Unmarshal(envelope.Data, &state); err != nil {
		t.Fatalf("data is not a dashboard state: %v", err)
	}
	if len(state.IPOs) != 1 || state.IPOs[0].CompanyName != "Acme Tech Ltd" {
		t.Fatalf("unexpected dashboard state: %+v", state)
	}
	if !state.IsLiveData {
		t.Error("first successful load should be marked live")
	}
}

func TestGetIPOByID(t *testing.T) {
	server := newHandlerFeedServer()
	defer server.Close()

	app, _ := newTestApp(server.URL)

	// Prime the working set.
	prime := httptest.NewRequest(http.MethodGet, "/api/v1/ipos", nil)
	if _, err := app.Test(prime, -1); err != nil {
		t.Fatalf("prime request failed: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/api/v1/ipos/performance-mainboard-1", nil)
	response, err := app.Test(request, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", response.StatusCode)
	}

	missing := httptest.NewRequest(http.MethodGet, "/api/v1/ipos/bogus-id", nil)
	response, err = app.Test(missing, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if response.StatusCode != http.StatusNotFound {
		t.Errorf("unknown ID should 404, got %d", response.StatusCode)
	}
	envelope := decodeEnvelope(t, response)
	if envelope.Success {
		t.Error("404 envelope should not report success")
	}
}

func TestGetSubscriptionStatusEndpoint(t *testing.T) {
	server := newHandlerFeedServer()
	defer server.Close()

	app, _ := newTestApp(server.URL)

	prime := httptest.NewRequest(http.MethodGet, "/api/v1/ipos", nil)
	if _, err := app.Test(prime, -1); err != nil {
		t.Fatalf("prime request failed: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/api/v1/ipos/performance-mainboard-1/subscription", nil)
	response, err := app.Test(request, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", response.StatusCode)
	}

	envelope := decodeEnvelope(t, response)
	var status struct {
		Retail  float64 `json:"retail"`
		QIB     float64 `json:"qib"`
		NII     float64 `json:"nii"`
		Overall float64 `json:"overall"`
	}
	if err := json.Unmarshal(envelope.Data, &status); err != nil {
		t.Fatalf("data is not a subscription status: %v", err)
	}
}

func TestRefreshEndpointReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	app, _ := newTestApp(server.URL)

	request := httptest.NewRequest(http.MethodPost, "/api/v1/ipos/refresh", nil)
	response, err := app.Test(request, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if response.StatusCode != http.StatusBadGateway {
		t.Errorf("failed refresh should map to 502, got %d", response.StatusCode)
	}
	envelope := decodeEnvelope(t, response)
	if envelope.Success || envelope.Error == "" {
		t.Error("failure envelope should carry an error message")
	}
}
