package services

import (
	"strings"
	"time"

	"github.com/blink-new/ipo-showcase-backend/models"
	"github.com/blink-new/ipo-showcase-backend/shared"
	"github.com/sirupsen/logrus"
)

// PipelineService reconciles the three raw feed lists into one deduplicated
// batch of canonical entities for a category.
type PipelineService struct {
	utilityService   *UtilityService
	transformService *TransformService
	serviceMetrics   *shared.ServiceMetrics
}

// NewPipelineService creates the reconciliation pipeline.
func NewPipelineService(utilityService *UtilityService, transformService *TransformService) *PipelineService {
	if utilityService == nil {
		utilityService = NewUtilityService()
	}
	if transformService == nil {
		transformService = NewTransformService(utilityService, nil)
	}
	return &PipelineService{
		utilityService:   utilityService,
		transformService: transformService,
		serviceMetrics:   shared.NewServiceMetrics("Pipeline_Service"),
	}
}

// BuildBatch joins performance, prospectus, and calendar records by normalized
// company name, transforms them, deduplicates, and filters invalid entries.
// Returns EmptyUpstream when no valid entity survives, which callers must
// treat as a fetch failure rather than an empty-but-valid result.
func (service *PipelineService) BuildBatch(bundle models.FeedBundle, category models.Category, now time.Time) ([]models.IPO, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "PipelineService",
		"method":    "BuildBatch",
		"category":  category,
	})

	startTime := time.Now()
	utility := service.utilityService

	// Lookup maps keyed by normalized company name. Exact-match only; the
	// looser containment check below handles near-miss calendar titles.
	prospectusByName := make(map[string]*models.ProspectusRecord, len(bundle.Prospectus))
	for i := range bundle.Prospectus {
		record := &bundle.Prospectus[i]
		prospectusByName[utility.NormalizeCompanyName(record.CompanyName)] = record
	}

	calendarByName := make(map[string]*models.CalendarRecord, len(bundle.Calendar))
	for i := range bundle.Calendar {
		record := &bundle.Calendar[i]
		name := utility.ExtractCompanyNameFromTitle(record.CalTitle)
		calendarByName[utility.NormalizeCompanyName(name)] = record
	}

	entities := make([]models.IPO, 0, len(bundle.Performance)+len(bundle.Calendar))

	for index, record := range bundle.Performance {
		normalizedName := utility.NormalizeCompanyName(record.CompanyName)
		entity := service.transformService.TransformPerformanceRecord(
			record,
			prospectusByName[normalizedName],
			calendarByName[normalizedName],
			index,
			category,
			now,
		)
		entities = append(entities, entity)
	}

	for index, record := range bundle.Calendar {
		companyName := utility.ExtractCompanyNameFromTitle(record.CalTitle)
		normalizedName := utility.NormalizeCompanyName(companyName)

		// Skip calendar entries already covered by a produced entity. The
		// containment check is a best-effort heuristic kept for compatibility
		// with the upstream matching behavior; it can merge distinct companies
		// whose names contain each other.
		if coveredByExisting(entities, normalizedName) {
			continue
		}

		entity := service.transformService.TransformCalendarRecord(
			record,
			prospectusByName[normalizedName],
			index,
			category,
			now,
		)
		entities = append(entities, entity)
	}

	deduplicated := service.deduplicateByName(entities)
	valid := service.filterInvalid(deduplicated)

	logger.WithFields(logrus.Fields{
		"transformed": len(entities),
		"after_dedup": len(deduplicated),
		"valid":       len(valid),
		"duration":    time.Since(startTime),
	}).Info("Built IPO batch from feed bundle")

	if len(valid) == 0 {
		service.serviceMetrics.RecordOperation("BuildBatch", time.Since(startTime), false)
		return nil, shared.NewEmptyUpstreamError("Pipeline_Service", "BuildBatch")
	}

	service.serviceMetrics.RecordOperation("BuildBatch", time.Since(startTime), true)
	return valid, nil
}

// coveredByExisting reports whether any produced entity's normalized name
// contains the candidate name or vice versa.
func coveredByExisting(entities []models.IPO, normalizedName string) bool {
	if normalizedName == "" {
		return false
	}
	for _, entity := range entities {
		existing := strings.ToLower(strings.TrimSpace(entity.CompanyName))
		if existing == "" {
			continue
		}
		if strings.Contains(existing, normalizedName) || strings.Contains(normalizedName, existing) {
			return true
		}
	}
	return false
}

// deduplicateByName keeps the first entity seen for each normalized company
// name and drops the rest.
func (service *PipelineService) deduplicateByName(entities []models.IPO) []models.IPO {
	seen := make(map[string]bool, len(entities))
	unique := make([]models.IPO, 0, len(entities))
	for _, entity := range entities {
		key := service.utilityService.NormalizeCompanyName(entity.CompanyName)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, entity)
	}
	return unique
}

// filterInvalid drops placeholder and garbage entities: empty names, the
// "Unknown Company" placeholder, URL-looking names, and names too short to be
// a real company.
func (service *PipelineService) filterInvalid(entities []models.IPO) []models.IPO {
	valid := make([]models.IPO, 0, len(entities))
	for _, entity := range entities {
		name := entity.CompanyName
		if name == "" || name == "Unknown Company" {
			continue
		}
		if strings.Contains(name, "http") {
			continue
		}
		if len(name) <= 2 {
			continue
		}
		valid = append(valid, entity)
	}
	return valid
}
