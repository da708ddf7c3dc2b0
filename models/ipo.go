package models

import (
	"strings"
	"time"
)

// Category identifies the listing board an IPO belongs to.
type Category string

const (
	CategoryMainboard Category = "mainboard"
	CategorySME       Category = "sme"
)

// ParseCategory maps free-form input to a known category, defaulting to mainboard.
func ParseCategory(s string) Category {
	if strings.EqualFold(strings.TrimSpace(s), string(CategorySME)) {
		return CategorySME
	}
	return CategoryMainboard
}

// Status is the IPO lifecycle state derived from dates at transform time.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusOpen     Status = "open"
	StatusClosed   Status = "closed"
	StatusListed   Status = "listed"
)

// PriceRange is the offer price band in currency-unit-agnostic values.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// SubscriptionStatus holds subscription multipliers per investor category.
// Values are synthesized placeholders, not live exchange data.
type SubscriptionStatus struct {
	Retail  float64 `json:"retail"`
	QIB     float64 `json:"qib"`
	NII     float64 `json:"nii"`
	Overall float64 `json:"overall"`
}

// ListingResult captures post-listing price and gain, present only once listed.
type ListingResult struct {
	Price       float64 `json:"price"`
	GainPercent float64 `json:"gainPercent"`
}

// CompanyDetails is the descriptive block shown in the detail view.
// Financial figures are synthesized placeholders unless enrichment supplied them.
type CompanyDetails struct {
	About     string   `json:"about"`
	MarketCap *float64 `json:"marketCap,omitempty"`
	Revenue   float64  `json:"revenue"`
	Profit    float64  `json:"profit"`
	ROE       float64  `json:"roe"`
	PE        *float64 `json:"pe,omitempty"`
	BookValue float64  `json:"bookValue"`
}

// KeyDates holds the milestone calendar for one IPO. All values are ISO dates.
type KeyDates struct {
	BiddingStart string `json:"biddingStart"`
	BiddingEnd   string `json:"biddingEnd"`
	Allotment    string `json:"allotment"`
	Refund       string `json:"refund"`
	Listing      string `json:"listing"`
}

// IPO is the canonical entity produced by the pipeline. Entities are built
// fresh on every fetch cycle; the ID is stable only within one cycle.
type IPO struct {
	ID          string   `json:"id"`
	CompanyName string   `json:"companyName"`
	Symbol      string   `json:"symbol"`
	Category    Category `json:"category"`

	Sector   string `json:"sector"`
	Industry string `json:"industry"`

	Status      Status `json:"status"`
	OpenDate    string `json:"openDate"`
	CloseDate   string `json:"closeDate"`
	ListingDate string `json:"listingDate,omitempty"`

	PriceRange PriceRange `json:"priceRange"`
	LotSize    int        `json:"lotSize"`
	IssueSize  float64    `json:"issueSize"`

	SubscriptionStatus *SubscriptionStatus `json:"subscriptionStatus,omitempty"`
	GreyMarketPremium  *float64            `json:"greyMarketPremium,omitempty"`
	ListingResult      *ListingResult      `json:"listingResult,omitempty"`

	CompanyDetails CompanyDetails `json:"companyDetails"`
	RiskFactors    []string       `json:"riskFactors"`
	KeyDates       KeyDates       `json:"keyDates"`
	LeadManagers   []string       `json:"leadManagers"`
	Registrar      string         `json:"registrar"`

	// ProspectusURL points at the RHP (or DRHP) document page when the
	// prospectus feed had a match for this company.
	ProspectusURL string `json:"prospectusUrl,omitempty"`
}

// DashboardState is the facade-to-UI contract for one category.
type DashboardState struct {
	IPOs        []IPO      `json:"ipos"`
	Loading     bool       `json:"loading"`
	Error       *string    `json:"error"`
	LastUpdated *time.Time `json:"lastUpdated"`
	IsLiveData  bool       `json:"isLiveData"`
	Category    Category   `json:"category"`
}
