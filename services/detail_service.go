package services

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/blink-new/ipo-showcase-backend/models"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// enrichedDetails holds whatever a prospectus page yielded. Empty fields mean
// the page did not expose that detail and the synthesized value stands.
type enrichedDetails struct {
	About        string
	Registrar    string
	LeadManagers []string
}

// DetailEnrichmentService replaces synthesized descriptive fields with real
// ones scraped from prospectus pages. Runs after reconciliation as a batch
// decorator; per-page failures skip that entity and leave the synthesized
// values in place. Capped per batch so a large listed backlog does not turn
// every load into a crawl.
type DetailEnrichmentService struct {
	maxPagesPerBatch int
	fetchFunc        func(url string) (enrichedDetails, error)
}

// NewDetailEnrichmentService creates the enrichment decorator.
func NewDetailEnrichmentService() *DetailEnrichmentService {
	service := &DetailEnrichmentService{
		maxPagesPerBatch: 10,
	}
	service.fetchFunc = fetchProspectusDetails
	return service
}

// Decorate enriches entities that carry a prospectus URL. Implements
// BatchDecorator. Open and upcoming entities are visited first since the
// detail view matters most for them.
func (service *DetailEnrichmentService) Decorate(ctx context.Context, ipos []models.IPO) []models.IPO {
	logger := logrus.WithFields(logrus.Fields{
		"component": "DetailEnrichmentService",
		"method":    "Decorate",
	})

	visited := 0
	enriched := 0

	for _, active := range []bool{true, false} {
		for i := range ipos {
			if visited >= service.maxPagesPerBatch {
				break
			}
			if ctx.Err() != nil {
				logger.Debug("Context cancelled, stopping enrichment early")
				return ipos
			}
			if ipos[i].ProspectusURL == "" {
				continue
			}
			isActive := ipos[i].Status == models.StatusOpen || ipos[i].Status == models.StatusUpcoming
			if isActive != active {
				continue
			}

			visited++
			details, err := service.fetchFunc(ipos[i].ProspectusURL)
			if err != nil {
				logger.WithError(err).WithField("company", ipos[i].CompanyName).
					Debug("Prospectus page fetch failed, keeping synthesized details")
				continue
			}

			if applyEnrichedDetails(&ipos[i], details) {
				enriched++
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"visited":  visited,
		"enriched": enriched,
	}).Debug("Applied prospectus enrichment")

	return ipos
}

// applyEnrichedDetails copies non-empty scraped fields onto the entity and
// reports whether anything changed.
func applyEnrichedDetails(entity *models.IPO, details enrichedDetails) bool {
	changed := false
	if details.About != "" {
		entity.CompanyDetails.About = details.About
		changed = true
	}
	if details.Registrar != "" {
		entity.Registrar = details.Registrar
		changed = true
	}
	if len(details.LeadManagers) > 0 {
		entity.LeadManagers = details.LeadManagers
		changed = true
	}
	return changed
}

// fetchProspectusDetails visits one prospectus page and extracts descriptive
// fields with selector cascades: page layouts vary, so each field tries a
// list of selectors and takes the first non-empty hit.
func fetchProspectusDetails(url string) (enrichedDetails, error) {
	var details enrichedDetails

	collector := colly.NewCollector()
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	var visitErr error
	collector.OnError(func(r *colly.Response, err error) {
		visitErr = err
	})

	collector.OnHTML("html", func(e *colly.HTMLElement) {
		details.About = firstSelectorText(e.DOM, []string{
			"div.about-company p",
			"div#about p",
			"section.company-profile p",
			"div.ipo-summary p",
		})
		details.Registrar = firstSelectorText(e.DOM, []string{
			"div.registrar a",
			"td:contains('Registrar') + td",
			"div#registrar",
		})
		details.LeadManagers = selectorTextList(e.DOM, []string{
			"div.lead-managers li",
			"td:contains('Lead Manager') + td a",
			"div#lead-managers li",
		})
	})

	if err := collector.Visit(url); err != nil {
		return enrichedDetails{}, err
	}
	collector.Wait()

	if visitErr != nil {
		return enrichedDetails{}, visitErr
	}
	return details, nil
}

// firstSelectorText returns the trimmed text of the first selector that
// matches a non-empty element.
func firstSelectorText(doc *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// selectorTextList returns the trimmed texts of the first selector that
// matches at least one non-empty element.
func selectorTextList(doc *goquery.Selection, selectors []string) []string {
	for _, selector := range selectors {
		var items []string
		doc.Find(selector).Each(func(_ int, selection *goquery.Selection) {
			if text := strings.TrimSpace(selection.Text()); text != "" {
				items = append(items, text)
			}
		})
		if len(items) > 0 {
			return items
		}
	}
	return nil
}
