package services

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalizeCompanyName(t *testing.T) {
	utility := NewUtilityService()

	cases := []struct {
		input    string
		expected string
	}{
		{"Acme Ltd", "acme ltd"},
		{"  Acme Ltd  ", "acme ltd"},
		{"ACME LTD", "acme ltd"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := utility.NormalizeCompanyName(tc.input); got != tc.expected {
			t.Errorf("NormalizeCompanyName(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestGenerateSymbolFromName(t *testing.T) {
	utility := NewUtilityService()

	cases := []struct {
		name     string
		expected string
	}{
		{"Acme Tech Ltd", "ATL"},
		{"Tata Consultancy Services", "TCS"},
		{"A B C", ""},
		{"One Two Three Four Five Six Seven Eight", "OTTFFS"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := utility.GenerateSymbolFromName(tc.name); got != tc.expected {
			t.Errorf("GenerateSymbolFromName(%q) = %q, want %q", tc.name, got, tc.expected)
		}
	}
}

func TestGenerateSymbolProperties(t *testing.T) {
	utility := NewUtilityService()
	properties := gopter.NewProperties(nil)

	properties.Property("symbol is at most 6 uppercase letters", prop.ForAll(
		func(name string) bool {
			symbol := utility.GenerateSymbolFromName(name)
			if len(symbol) > 6 {
				return false
			}
			return symbol == strings.ToUpper(symbol)
		},
		gen.AlphaString(),
	))

	properties.Property("normalization is idempotent", prop.ForAll(
		func(name string) bool {
			once := utility.NormalizeCompanyName(name)
			return utility.NormalizeCompanyName(once) == once
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestClassifySector(t *testing.T) {
	utility := NewUtilityService()

	cases := []struct {
		name     string
		expected string
	}{
		{"Acme Tech Ltd", "Technology"},
		{"Sunrise Pharma Ltd", "Healthcare"},
		{"National Steel Tubes", "Metals & Mining"},
		{"Plain Widgets Ltd", "Diversified"},
	}

	for _, tc := range cases {
		if got := utility.ClassifySector(tc.name); got != tc.expected {
			t.Errorf("ClassifySector(%q) = %q, want %q", tc.name, got, tc.expected)
		}
	}
}

func TestClassifySectorRuleOrder(t *testing.T) {
	utility := NewUtilityService()

	// "Fintech Power" matches both "tech" and "power"; the first rule wins.
	if got := utility.ClassifySector("Fintech Power Ltd"); got != "Technology" {
		t.Errorf("expected first matching rule to win, got %q", got)
	}
}

func TestClassifyIndustry(t *testing.T) {
	utility := NewUtilityService()

	if got := utility.ClassifyIndustry("Metro Coworking Spaces"); got != "Coworking Spaces" {
		t.Errorf("ClassifyIndustry = %q, want Coworking Spaces", got)
	}
	if got := utility.ClassifyIndustry("Plain Widgets Ltd"); got != "General Business" {
		t.Errorf("ClassifyIndustry fallback = %q, want General Business", got)
	}
}

func TestExtractCompanyNameFromTitle(t *testing.T) {
	utility := NewUtilityService()

	cases := []struct {
		title    string
		expected string
	}{
		{"PropShare Titania IPO Opens on Jul 21, 2025", "PropShare Titania"},
		{"Acme Tech IPO Closes on Jul 24, 2025", "Acme Tech"},
		{"Acme Tech IPO Allotment on Jul 26, 2025", "Acme Tech"},
		{"Something without the keyword", "Something without the keyword"},
	}

	for _, tc := range cases {
		if got := utility.ExtractCompanyNameFromTitle(tc.title); got != tc.expected {
			t.Errorf("ExtractCompanyNameFromTitle(%q) = %q, want %q", tc.title, got, tc.expected)
		}
	}
}

func TestParseCalendarDate(t *testing.T) {
	utility := NewUtilityService()
	fallback := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	got := utility.ParseCalendarDate("21 Jul", 2025, fallback)
	want := time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseCalendarDate(21 Jul) = %v, want %v", got, want)
	}

	if got := utility.ParseCalendarDate("garbage", 2025, fallback); !got.Equal(fallback) {
		t.Errorf("unparseable date should return fallback, got %v", got)
	}
	if got := utility.ParseCalendarDate("", 2025, fallback); !got.Equal(fallback) {
		t.Errorf("empty date should return fallback, got %v", got)
	}
}

func TestParseDateFormats(t *testing.T) {
	utility := NewUtilityService()

	for _, input := range []string{
		"2025-07-21",
		"Jul 21, 2025",
		"Mon, Jul 21, 2025",
		"21-Jul-25",
	} {
		parsed := utility.ParseDate(input)
		if parsed == nil {
			t.Errorf("ParseDate(%q) returned nil", input)
			continue
		}
		if parsed.Year() != 2025 || parsed.Month() != time.July || parsed.Day() != 21 {
			t.Errorf("ParseDate(%q) = %v, want 2025-07-21", input, parsed)
		}
	}

	if parsed := utility.ParseDate("not a date"); parsed != nil {
		t.Errorf("ParseDate on garbage should return nil, got %v", parsed)
	}
	if parsed := utility.ParseDate(""); parsed != nil {
		t.Errorf("ParseDate on empty string should return nil, got %v", parsed)
	}
}
