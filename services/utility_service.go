package services

import (
	"regexp"
	"strings"
	"time"

	"github.com/blink-new/ipo-showcase-backend/shared"
)

// UtilityService provides text processing, normalization, and date utilities
// shared across the pipeline. All methods are pure.
type UtilityService struct {
	serviceMetrics *shared.ServiceMetrics
}

// NewUtilityService creates a new utility service instance
func NewUtilityService() *UtilityService {
	return &UtilityService{
		serviceMetrics: shared.NewServiceMetrics("Utility_Service"),
	}
}

// NormalizeCompanyName produces the canonical dedup key for a company name:
// trimmed and case-folded. This is intentionally the same key the original
// data source uses, so matching behavior stays compatible.
func (s *UtilityService) NormalizeCompanyName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GenerateSymbolFromName derives a ticker-like symbol from a company name:
// first letter of each word longer than 2 characters, uppercased, at most 6.
func (s *UtilityService) GenerateSymbolFromName(name string) string {
	var builder strings.Builder
	for _, word := range strings.Fields(name) {
		if len(word) > 2 {
			builder.WriteString(strings.ToUpper(word[:1]))
		}
	}
	symbol := builder.String()
	if len(symbol) > 6 {
		symbol = symbol[:6]
	}
	return symbol
}

// keywordRule maps name keywords to a classification label. Rules are ordered;
// the first matching rule wins.
type keywordRule struct {
	keywords []string
	label    string
}

var sectorRules = []keywordRule{
	{[]string{"tech", "software", "digital"}, "Technology"},
	{[]string{"pharma", "health", "medical"}, "Healthcare"},
	{[]string{"bank", "financial", "finance"}, "Financial Services"},
	{[]string{"steel", "metal", "iron"}, "Metals & Mining"},
	{[]string{"energy", "power", "electric"}, "Energy"},
	{[]string{"food", "restaurant", "hotel"}, "Consumer Goods"},
	{[]string{"real estate", "property", "construction"}, "Real Estate"},
	{[]string{"auto", "vehicle", "motor"}, "Automotive"},
}

var industryRules = []keywordRule{
	{[]string{"coworking", "workspace"}, "Coworking Spaces"},
	{[]string{"travel", "food services"}, "Travel & Hospitality"},
	{[]string{"steel", "tubes"}, "Steel Manufacturing"},
	{[]string{"cropsciences", "agriculture"}, "Agriculture"},
	{[]string{"electronics"}, "Electronics"},
	{[]string{"spaces", "property"}, "Real Estate"},
	{[]string{"energy"}, "Renewable Energy"},
	{[]string{"pumps"}, "Industrial Equipment"},
	{[]string{"securities", "depository"}, "Financial Services"},
}

// ClassifySector assigns a sector by keyword match against the company name.
// Best-effort heuristic: keeps the upstream-compatible rule order, defaults to
// "Diversified" when nothing matches.
func (s *UtilityService) ClassifySector(name string) string {
	return classifyByKeywords(name, sectorRules, "Diversified")
}

// ClassifyIndustry assigns an industry by keyword match against the company
// name. Best-effort heuristic, defaults to "General Business".
func (s *UtilityService) ClassifyIndustry(name string) string {
	return classifyByKeywords(name, industryRules, "General Business")
}

func classifyByKeywords(name string, rules []keywordRule, fallback string) string {
	nameLower := strings.ToLower(name)
	for _, rule := range rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(nameLower, keyword) {
				return rule.label
			}
		}
	}
	return fallback
}

var calendarTitleRegex = regexp.MustCompile(`(?i)^(.+?)\s+IPO\s+(Opens|Closes)`)

// ExtractCompanyNameFromTitle extracts the company name from calendar titles
// like "PropShare Titania IPO Opens on Jul 21, 2025".
func (s *UtilityService) ExtractCompanyNameFromTitle(title string) string {
	if matches := calendarTitleRegex.FindStringSubmatch(title); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	if before, _, found := strings.Cut(title, " IPO "); found {
		return strings.TrimSpace(before)
	}
	return strings.TrimSpace(title)
}

var calendarMonths = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseCalendarDate parses short calendar dates like "21 Jul" against the
// given year. Unparseable input falls back to the provided reference time so
// one bad record never aborts a batch.
func (s *UtilityService) ParseCalendarDate(dateStr string, year int, fallback time.Time) time.Time {
	parts := strings.Fields(strings.TrimSpace(dateStr))
	if len(parts) == 2 {
		day := 0
		for _, r := range parts[0] {
			if r < '0' || r > '9' {
				day = -1
				break
			}
			day = day*10 + int(r-'0')
		}
		month, known := calendarMonths[strings.ToLower(parts[1])]
		if day >= 1 && day <= 31 && known {
			return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		}
	}
	return fallback
}

// ParseDate parses dates with multiple format support, returning nil when no
// format matches. Covers the formats the upstream feeds have been seen to use.
func (s *UtilityService) ParseDate(dateStr string) *time.Time {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return nil
	}

	formats := []string{
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02",
		"Mon, Jan 2, 2006",
		"Monday, January 2, 2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"02-Jan-06",
		"2-Jan-06",
		"02/01/2006",
		"2/1/2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return &t
		}
	}

	return nil
}

// FormatDate renders a time as the ISO calendar date used throughout the API.
func (s *UtilityService) FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// AddDays returns the time shifted by the given number of calendar days.
func (s *UtilityService) AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}
