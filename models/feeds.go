package models

// Raw upstream records. Field names mirror the provider payloads; none of the
// feeds guarantee a schema, so every field is optional in practice and the
// transformer treats zero values as absent.

// PerformanceRecord is one row of the performance feed (mostly listed IPOs).
type PerformanceRecord struct {
	IPOID           int     `json:"ipo_id"`
	CompanyName     string  `json:"ipo_company_name"`
	IssueType       string  `json:"ipo_issue_type"`
	FolderName      string  `json:"ipo_urlrewrite_folder_name"`
	ListingDate     string  `json:"il_ipo_listing_date"`
	IssuePriceFinal float64 `json:"ipo_issue_price_final"`
	BSEClose        float64 `json:"bse_close"`
	NSEClose        float64 `json:"nse_close"`
	ProfitLoss      float64 `json:"ipo_profit_loss"`
	CurrentIndex    float64 `json:"current_index"`
	Status          string  `json:"status"`
	OpenDate        string  `json:"open_date"`
	CloseDate       string  `json:"close_date"`
}

// ProspectusRecord is one row of the prospectus feed.
type ProspectusRecord struct {
	ID            int    `json:"id"`
	CompanyName   string `json:"company_name"`
	ProspectusURL string `json:"prospectus_drhp"`
	RHPURL        string `json:"prospectus_rhp"`
	FolderName    string `json:"urlrewrite_folder_name"`
}

// CalendarRecord is one row of the calendar feed. The title carries both the
// company name and the event ("X IPO Opens on Jul 21, 2025"); the date is a
// short day-month string without a year.
type CalendarRecord struct {
	TopicID    int    `json:"topic_id"`
	CalID      int    `json:"cal_id"`
	CalDate    string `json:"cal_date"`
	CalTitle   string `json:"cal_title"`
	FolderName string `json:"urlrewrite_folder_name"`
}

// FeedBundle groups the three feed results for one category. Any list may be
// empty; the fetch layer degrades failed feeds to empty rather than aborting.
type FeedBundle struct {
	Performance []PerformanceRecord
	Prospectus  []ProspectusRecord
	Calendar    []CalendarRecord
}

// IsEmpty reports whether all three feeds came back empty.
func (b FeedBundle) IsEmpty() bool {
	return len(b.Performance) == 0 && len(b.Prospectus) == 0 && len(b.Calendar) == 0
}
