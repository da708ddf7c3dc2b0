package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/blink-new/ipo-showcase-backend/models"
	"github.com/blink-new/ipo-showcase-backend/shared"
	"github.com/sirupsen/logrus"
)

// TransformService maps raw upstream records into canonical IPO entities.
// The reference instant ("now") is always passed in by the caller so status
// derivation stays a pure function and tests can pin the clock.
type TransformService struct {
	utilityService *UtilityService
	synthetic      SyntheticDataGenerator
	serviceMetrics *shared.ServiceMetrics
}

// NewTransformService creates a transform service. A nil generator falls back
// to the default random placeholder implementation.
func NewTransformService(utilityService *UtilityService, synthetic SyntheticDataGenerator) *TransformService {
	if utilityService == nil {
		utilityService = NewUtilityService()
	}
	if synthetic == nil {
		synthetic = NewSyntheticDataGenerator()
	}
	return &TransformService{
		utilityService: utilityService,
		synthetic:      synthetic,
		serviceMetrics: shared.NewServiceMetrics("Transform_Service"),
	}
}

// MapUpstreamStatus translates free-form upstream status text into a lifecycle
// status. This table is the only path from upstream text to a Status value;
// unknown text reports false and the caller derives status from dates instead.
func MapUpstreamStatus(text string) (models.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "open", "ongoing", "live":
		return models.StatusOpen, true
	case "upcoming", "forthcoming":
		return models.StatusUpcoming, true
	case "closed":
		return models.StatusClosed, true
	case "listed":
		return models.StatusListed, true
	default:
		return "", false
	}
}

// TransformPerformanceRecord produces one canonical entity from a performance
// record plus whatever prospectus/calendar matches reconciliation found.
func (service *TransformService) TransformPerformanceRecord(
	record models.PerformanceRecord,
	prospectus *models.ProspectusRecord,
	calendar *models.CalendarRecord,
	index int,
	category models.Category,
	now time.Time,
) models.IPO {
	companyName := record.CompanyName
	if companyName == "" && prospectus != nil {
		companyName = prospectus.CompanyName
	}
	if companyName == "" {
		companyName = "Unknown Company"
	}

	listingTime := service.utilityService.ParseDate(record.ListingDate)
	if record.ListingDate != "" && listingTime == nil {
		// TransformAmbiguous: an unparseable date must never abort the batch.
		logrus.WithFields(logrus.Fields{
			"component":    "TransformService",
			"error_code":   shared.CodeTransformAmbiguous,
			"company_name": companyName,
			"raw_date":     record.ListingDate,
		}).Warn("Unparseable listing date, deriving dates from current time")
	}

	// Status: an explicit listing date is authoritative (on/before now means
	// listed); otherwise upstream status text goes through the mapping table;
	// otherwise the entry is upcoming.
	status := models.StatusUpcoming
	if listingTime != nil {
		if !listingTime.After(now) {
			status = models.StatusListed
		}
	} else if mapped, recognized := MapUpstreamStatus(record.Status); recognized {
		status = mapped
	}

	// Dates: prefer upstream open/close, synthesize from the listing date
	// (listing-7 / listing-3) or from now when absent.
	openTime := service.utilityService.ParseDate(record.OpenDate)
	closeTime := service.utilityService.ParseDate(record.CloseDate)
	if openTime == nil {
		derived := now
		if listingTime != nil {
			derived = service.utilityService.AddDays(*listingTime, -7)
		}
		openTime = &derived
	}
	if closeTime == nil {
		var derived time.Time
		if listingTime != nil {
			derived = service.utilityService.AddDays(*listingTime, -3)
		} else {
			derived = service.utilityService.AddDays(now, 3)
		}
		closeTime = &derived
	}

	upstreamID := record.IPOID
	if upstreamID == 0 {
		upstreamID = index + 1
	}

	entity := service.buildEntity(entityInputs{
		id:          fmt.Sprintf("performance-%s-%d", category, upstreamID),
		companyName: companyName,
		category:    category,
		status:      status,
		openTime:    *openTime,
		closeTime:   *closeTime,
		listingTime: listingTime,
		aboutVerb:   "has been listed on",
	})
	entity.ProspectusURL = prospectusDocumentURL(prospectus)

	if record.IssuePriceFinal > 0 {
		entity.PriceRange = models.PriceRange{
			Min: math.Round(record.IssuePriceFinal * 0.95),
			Max: record.IssuePriceFinal,
		}
	} else {
		entity.PriceRange = models.PriceRange{Min: 100, Max: 110}
	}

	if record.IssuePriceFinal > 0 && record.CurrentIndex > 0 {
		entity.ListingResult = &models.ListingResult{
			Price:       record.CurrentIndex,
			GainPercent: record.ProfitLoss,
		}
	}

	return entity
}

// TransformCalendarRecord produces one canonical entity from a calendar-only
// record. The calendar title decides open vs upcoming: "closes" means the
// bidding window ends on the calendar date and is open now, "opens" means the
// window starts on the calendar date.
func (service *TransformService) TransformCalendarRecord(
	record models.CalendarRecord,
	prospectus *models.ProspectusRecord,
	index int,
	category models.Category,
	now time.Time,
) models.IPO {
	companyName := service.utilityService.ExtractCompanyNameFromTitle(record.CalTitle)
	if companyName == "" && prospectus != nil {
		companyName = prospectus.CompanyName
	}
	if companyName == "" {
		companyName = "Unknown Company"
	}

	calDate := service.utilityService.ParseCalendarDate(record.CalDate, now.Year(), now)

	status := models.StatusUpcoming
	openTime := calDate
	closeTime := service.utilityService.AddDays(calDate, 3)

	titleLower := strings.ToLower(record.CalTitle)
	if strings.Contains(titleLower, "closes") {
		status = models.StatusOpen
		closeTime = calDate
		openTime = service.utilityService.AddDays(calDate, -3)
	}

	listingTime := service.utilityService.AddDays(calDate, 5)

	upstreamID := record.TopicID
	if upstreamID == 0 {
		upstreamID = index + 1
	}

	entity := service.buildEntity(entityInputs{
		id:          fmt.Sprintf("calendar-%s-%d", category, upstreamID),
		companyName: companyName,
		category:    category,
		status:      status,
		openTime:    openTime,
		closeTime:   closeTime,
		listingTime: &listingTime,
		aboutVerb:   "is preparing for its IPO listing on",
	})
	entity.ProspectusURL = prospectusDocumentURL(prospectus)

	entity.PriceRange = service.synthetic.PriceRange(category)

	return entity
}

// entityInputs carries the per-record values buildEntity composes with the
// synthesized fields common to both transform paths.
type entityInputs struct {
	id          string
	companyName string
	category    models.Category
	status      models.Status
	openTime    time.Time
	closeTime   time.Time
	listingTime *time.Time
	aboutVerb   string
}

func (service *TransformService) buildEntity(inputs entityInputs) models.IPO {
	utility := service.utilityService
	sector := utility.ClassifySector(inputs.companyName)

	openDate := utility.FormatDate(inputs.openTime)
	closeDate := utility.FormatDate(inputs.closeTime)

	listingDate := ""
	keyListingDate := utility.FormatDate(utility.AddDays(inputs.closeTime, 5))
	if inputs.listingTime != nil {
		listingDate = utility.FormatDate(*inputs.listingTime)
		keyListingDate = listingDate
	}

	details := service.synthetic.Financials(inputs.category)
	details.About = buildAboutText(inputs.companyName, inputs.category, sector, inputs.aboutVerb)

	entity := models.IPO{
		ID:          inputs.id,
		CompanyName: inputs.companyName,
		Symbol:      utility.GenerateSymbolFromName(inputs.companyName),
		Category:    inputs.category,
		Sector:      sector,
		Industry:    utility.ClassifyIndustry(inputs.companyName),
		Status:      inputs.status,
		OpenDate:    openDate,
		CloseDate:   closeDate,
		ListingDate: listingDate,
		LotSize:     1,
		IssueSize:   service.synthetic.IssueSize(inputs.category),

		CompanyDetails: details,
		RiskFactors:    service.synthetic.RiskFactors(inputs.category),
		KeyDates: models.KeyDates{
			BiddingStart: openDate,
			BiddingEnd:   closeDate,
			Allotment:    utility.FormatDate(utility.AddDays(inputs.closeTime, 2)),
			Refund:       utility.FormatDate(utility.AddDays(inputs.closeTime, 3)),
			Listing:      keyListingDate,
		},
		LeadManagers: service.synthetic.LeadManagers(),
		Registrar:    service.synthetic.Registrar(),
	}

	// Market signals are present only in the states where they mean something;
	// absent otherwise, never zero-valued.
	if inputs.status == models.StatusOpen {
		snapshot := service.synthetic.SubscriptionSnapshot()
		entity.SubscriptionStatus = &snapshot
	}
	if inputs.status == models.StatusUpcoming {
		premium := service.synthetic.GreyMarketPremium()
		entity.GreyMarketPremium = &premium
	}

	return entity
}

// prospectusDocumentURL prefers the final RHP over the draft DRHP.
func prospectusDocumentURL(prospectus *models.ProspectusRecord) string {
	if prospectus == nil {
		return ""
	}
	if prospectus.RHPURL != "" {
		return prospectus.RHPURL
	}
	return prospectus.ProspectusURL
}

func buildAboutText(companyName string, category models.Category, sector, verb string) string {
	kind := "company"
	board := "main"
	if category == models.CategorySME {
		kind = "Small and Medium Enterprise (SME)"
		board = "SME"
	}
	return fmt.Sprintf("%s is a %s operating in the %s sector. The company %s the %s board of the stock exchange.",
		companyName, kind, sector, verb, board)
}
