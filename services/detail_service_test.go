package services

import (
	"context"
	"errors"
	"testing"

	"github.com/blink-new/ipo-showcase-backend/models"
)

func TestDetailDecorateEnrichesEntitiesWithProspectusURLs(t *testing.T) {
	service := NewDetailEnrichmentService()
	service.fetchFunc = func(url string) (enrichedDetails, error) {
		return enrichedDetails{
			About:        "Real about text",
			Registrar:    "Real Registrar Ltd",
			LeadManagers: []string{"Real Bank One", "Real Bank Two"},
		}, nil
	}

	batch := []models.IPO{
		{
			CompanyName:   "Acme Tech Ltd",
			Status:        models.StatusOpen,
			ProspectusURL: "https://example.com/rhp.html",
			Registrar:     "KFin Technologies Limited",
		},
		{
			CompanyName: "No Prospectus Ltd",
			Status:      models.StatusOpen,
			Registrar:   "KFin Technologies Limited",
		},
	}

	result := service.Decorate(context.Background(), batch)

	if result[0].Registrar != "Real Registrar Ltd" {
		t.Errorf("entity with a prospectus URL should be enriched, got %q", result[0].Registrar)
	}
	if result[0].CompanyDetails.About != "Real about text" {
		t.Errorf("About not enriched: %q", result[0].CompanyDetails.About)
	}
	if len(result[0].LeadManagers) != 2 {
		t.Errorf("LeadManagers not enriched: %v", result[0].LeadManagers)
	}
	if result[1].Registrar != "KFin Technologies Limited" {
		t.Errorf("entity without a URL must keep synthesized values, got %q", result[1].Registrar)
	}
}

func TestDetailDecorateSkipsFailedPages(t *testing.T) {
	service := NewDetailEnrichmentService()
	service.fetchFunc = func(url string) (enrichedDetails, error) {
		return enrichedDetails{}, errors.New("page not found")
	}

	batch := []models.IPO{
		{
			CompanyName:   "Acme Tech Ltd",
			Status:        models.StatusOpen,
			ProspectusURL: "https://example.com/rhp.html",
			Registrar:     "KFin Technologies Limited",
		},
	}

	result := service.Decorate(context.Background(), batch)

	if result[0].Registrar != "KFin Technologies Limited" {
		t.Error("a failed page must leave the entity's synthesized values intact")
	}
}

func TestDetailDecorateRespectsPageBudget(t *testing.T) {
	service := NewDetailEnrichmentService()
	service.maxPagesPerBatch = 2

	fetches := 0
	service.fetchFunc = func(url string) (enrichedDetails, error) {
		fetches++
		return enrichedDetails{Registrar: "Enriched"}, nil
	}

	batch := make([]models.IPO, 5)
	for i := range batch {
		batch[i] = models.IPO{
			CompanyName:   "Company Ltd",
			Status:        models.StatusListed,
			ProspectusURL: "https://example.com/rhp.html",
		}
	}

	service.Decorate(context.Background(), batch)

	if fetches != 2 {
		t.Errorf("budget of 2 pages should cap fetches, got %d", fetches)
	}
}

func TestDetailDecorateVisitsActiveEntitiesFirst(t *testing.T) {
	service := NewDetailEnrichmentService()
	service.maxPagesPerBatch = 1

	var visited []string
	service.fetchFunc = func(url string) (enrichedDetails, error) {
		visited = append(visited, url)
		return enrichedDetails{}, nil
	}

	batch := []models.IPO{
		{CompanyName: "Old Listed Ltd", Status: models.StatusListed, ProspectusURL: "https://example.com/listed.html"},
		{CompanyName: "Hot Open Ltd", Status: models.StatusOpen, ProspectusURL: "https://example.com/open.html"},
	}

	service.Decorate(context.Background(), batch)

	if len(visited) != 1 || visited[0] != "https://example.com/open.html" {
		t.Errorf("the open entity should be visited before listed ones, visited %v", visited)
	}
}

func TestApplyEnrichedDetailsPartialResults(t *testing.T) {
	entity := models.IPO{
		Registrar:    "Synth Registrar",
		LeadManagers: []string{"Synth Bank"},
	}
	entity.CompanyDetails.About = "Synth about"

	changed := applyEnrichedDetails(&entity, enrichedDetails{Registrar: "Real Registrar"})
	if !changed {
		t.Error("a non-empty field should report a change")
	}
	if entity.Registrar != "Real Registrar" {
		t.Errorf("Registrar = %q", entity.Registrar)
	}
	if entity.CompanyDetails.About != "Synth about" || entity.LeadManagers[0] != "Synth Bank" {
		t.Error("empty scraped fields must not clobber synthesized values")
	}

	if applyEnrichedDetails(&entity, enrichedDetails{}) {
		t.Error("all-empty details should report no change")
	}
}
