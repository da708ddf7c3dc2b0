package services

import (
	"math/rand"
	"sync"
	"time"

	"github.com/blink-new/ipo-showcase-backend/models"
)

// SyntheticDataGenerator produces the placeholder values the pipeline fills in
// when upstream feeds omit a field. Every value from this interface is a
// stand-in for a real market-data feed, never actual financials; isolating it
// behind an interface lets a real feed replace it without touching the
// pipeline, and lets tests inject deterministic values.
type SyntheticDataGenerator interface {
	Financials(category models.Category) models.CompanyDetails
	SubscriptionSnapshot() models.SubscriptionStatus
	GreyMarketPremium() float64
	PriceRange(category models.Category) models.PriceRange
	IssueSize(category models.Category) float64
	RiskFactors(category models.Category) []string
	LeadManagers() []string
	Registrar() string
}

// randomSyntheticGenerator is the default placeholder implementation. Ranges
// are category-dependent: SME issues are a fraction of mainboard scale.
type randomSyntheticGenerator struct {
	mutex sync.Mutex
	rng   *rand.Rand
}

// NewSyntheticDataGenerator creates the default random placeholder generator.
func NewSyntheticDataGenerator() SyntheticDataGenerator {
	return &randomSyntheticGenerator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSeededSyntheticDataGenerator creates a generator with a fixed seed so
// tests get reproducible values.
func NewSeededSyntheticDataGenerator(seed int64) SyntheticDataGenerator {
	return &randomSyntheticGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (g *randomSyntheticGenerator) float64n(max float64) float64 {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.rng.Float64() * max
}

func (g *randomSyntheticGenerator) rangeValue(min, span float64) float64 {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return min + g.rng.Float64()*span
}

// Financials synthesizes the placeholder financial block for the detail view.
func (g *randomSyntheticGenerator) Financials(category models.Category) models.CompanyDetails {
	revenueMax, revenueBase := 1000.0, 100.0
	profitMax, profitBase := 100.0, 10.0
	if category == models.CategorySME {
		revenueMax, revenueBase = 100.0, 10.0
		profitMax, profitBase = 20.0, 2.0
	}

	return models.CompanyDetails{
		Revenue:   float64(int(g.float64n(revenueMax) + revenueBase)),
		Profit:    float64(int(g.float64n(profitMax) + profitBase)),
		ROE:       float64(int(g.float64n(20) + 5)),
		BookValue: float64(int(g.float64n(200) + 50)),
	}
}

// SubscriptionSnapshot synthesizes one subscription reading. Only meaningful
// while an IPO is open; callers decide eligibility.
func (g *randomSyntheticGenerator) SubscriptionSnapshot() models.SubscriptionStatus {
	return models.SubscriptionStatus{
		Retail:  g.float64n(5),
		QIB:     g.float64n(10),
		NII:     g.float64n(3),
		Overall: g.float64n(4),
	}
}

// GreyMarketPremium synthesizes a placeholder premium value.
func (g *randomSyntheticGenerator) GreyMarketPremium() float64 {
	return float64(int(g.float64n(50)))
}

// PriceRange synthesizes a plausible offer band for calendar-only entries.
// The band is built as min plus a spread so min never exceeds max.
func (g *randomSyntheticGenerator) PriceRange(category models.Category) models.PriceRange {
	min, spread := g.rangeValue(100, 200), g.rangeValue(10, 50)
	if category == models.CategorySME {
		min, spread = g.rangeValue(50, 100), g.rangeValue(5, 25)
	}
	return models.PriceRange{
		Min: float64(int(min)),
		Max: float64(int(min + spread)),
	}
}

// IssueSize synthesizes an issue size in the category's typical range.
func (g *randomSyntheticGenerator) IssueSize(category models.Category) float64 {
	if category == models.CategorySME {
		return float64(int(g.rangeValue(10, 100)))
	}
	return float64(int(g.rangeValue(100, 500)))
}

var baseRiskFactors = []string{
	"Market volatility may affect stock performance",
	"Regulatory changes in the industry",
	"Competition from established players",
	"Economic conditions may impact business operations",
}

var smeRiskFactors = []string{
	"Limited liquidity due to SME platform listing",
	"Higher risk associated with smaller companies",
}

// RiskFactors returns the boilerplate risk list, with the SME-specific
// strings appended for SME issues.
func (g *randomSyntheticGenerator) RiskFactors(category models.Category) []string {
	factors := make([]string, 0, len(baseRiskFactors)+len(smeRiskFactors))
	factors = append(factors, baseRiskFactors...)
	if category == models.CategorySME {
		factors = append(factors, smeRiskFactors...)
	}
	return factors
}

// LeadManagers returns the placeholder lead-manager pair.
func (g *randomSyntheticGenerator) LeadManagers() []string {
	return []string{"Investment Bank 1", "Investment Bank 2"}
}

// Registrar returns the default registrar string.
func (g *randomSyntheticGenerator) Registrar() string {
	return "KFin Technologies Limited"
}
