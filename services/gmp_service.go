package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blink-new/ipo-showcase-backend/models"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// gmpQuote is one scraped row from the live GMP table.
type gmpQuote struct {
	CompanyName string  `json:"company_name"`
	GMPValue    float64 `json:"gmp_value"`
	GMPPercent  float64 `json:"gmp_percent"`
}

// LiveGMPService overlays live grey market premium quotes onto upcoming
// entities. The source table is rendered by JavaScript, so extraction goes
// through a headless browser. Scrape results are cached for a short window so
// repeated loads do not launch a browser each time. Any failure degrades to
// the synthesized GMP already on the batch; the overlay never fails a load.
type LiveGMPService struct {
	utilityService *UtilityService
	scrapeFunc     func(ctx context.Context) ([]gmpQuote, error)

	mutex     sync.Mutex
	quotes    map[string]gmpQuote
	fetchedAt time.Time
	cacheTTL  time.Duration
}

// NewLiveGMPService creates the overlay decorator.
func NewLiveGMPService(utilityService *UtilityService) *LiveGMPService {
	if utilityService == nil {
		utilityService = NewUtilityService()
	}
	service := &LiveGMPService{
		utilityService: utilityService,
		cacheTTL:       10 * time.Minute,
	}
	service.scrapeFunc = service.scrapeLiveGMPTable
	return service
}

// Decorate replaces synthesized grey market premium values with live quotes
// where a name match exists. Implements BatchDecorator.
func (service *LiveGMPService) Decorate(ctx context.Context, ipos []models.IPO) []models.IPO {
	logger := logrus.WithFields(logrus.Fields{
		"component": "LiveGMPService",
		"method":    "Decorate",
	})

	quotes, err := service.currentQuotes(ctx)
	if err != nil {
		logger.WithError(err).Warn("Live GMP scrape failed, keeping synthesized premiums")
		return ipos
	}

	matched := 0
	for i := range ipos {
		if ipos[i].GreyMarketPremium == nil {
			continue
		}
		key := service.utilityService.NormalizeCompanyName(ipos[i].CompanyName)
		quote, found := quotes[key]
		if !found {
			continue
		}
		premium := quote.GMPValue
		ipos[i].GreyMarketPremium = &premium
		matched++
	}

	logger.WithFields(logrus.Fields{
		"quotes":  len(quotes),
		"matched": matched,
	}).Debug("Applied live GMP overlay")

	return ipos
}

// currentQuotes returns the quote map, scraping when the cached set is stale.
func (service *LiveGMPService) currentQuotes(ctx context.Context) (map[string]gmpQuote, error) {
	service.mutex.Lock()
	defer service.mutex.Unlock()

	if service.quotes != nil && time.Since(service.fetchedAt) < service.cacheTTL {
		return service.quotes, nil
	}

	rows, err := service.scrapeFunc(ctx)
	if err != nil {
		// Stale quotes beat no quotes.
		if service.quotes != nil {
			return service.quotes, nil
		}
		return nil, err
	}

	quotes := make(map[string]gmpQuote, len(rows))
	for _, row := range rows {
		name := cleanScrapedCompanyName(row.CompanyName)
		if name == "" {
			continue
		}
		quotes[service.utilityService.NormalizeCompanyName(name)] = row
	}

	service.quotes = quotes
	service.fetchedAt = time.Now()
	return quotes, nil
}

// scrapeLiveGMPTable drives a headless browser over the live GMP report table.
func (service *LiveGMPService) scrapeLiveGMPTable(ctx context.Context) ([]gmpQuote, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-images", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, 30*time.Second)
	defer cancel()

	var rawRows []map[string]interface{}

	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate("https://www.investorgain.com/report/live-ipo-gmp/331/all/"),
		chromedp.WaitVisible("table tbody tr", chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
		chromedp.Evaluate(`
			(function() {
				const dataTable = document.getElementById('report_table');
				if (!dataTable) return [];
				const tbody = dataTable.querySelector('tbody');
				if (!tbody) return [];
				return Array.from(tbody.querySelectorAll('tr')).map(row => {
					const cells = Array.from(row.querySelectorAll('td'));
					if (cells.length < 2) return null;
					return {
						name: cells[0].textContent.trim(),
						gmp: cells[1].textContent.trim()
					};
				}).filter(item => item && item.name && item.name.length > 2);
			})();
		`, &rawRows),
	)
	if err != nil {
		return nil, err
	}

	quotes := make([]gmpQuote, 0, len(rawRows))
	for _, row := range rawRows {
		name, _ := row["name"].(string)
		gmpText, _ := row["gmp"].(string)
		value, percent := parseGMPText(gmpText)
		quotes = append(quotes, gmpQuote{
			CompanyName: name,
			GMPValue:    value,
			GMPPercent:  percent,
		})
	}

	return quotes, nil
}

var (
	gmpValuePercentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*\((\d+(?:\.\d+)?)%\)`)
	gmpValuePattern        = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	whitespacePattern      = regexp.MustCompile(`\s+`)
)

// parseGMPText extracts the premium value and percentage from cell text like
// "₹25 (30.86%)" or a bare "25".
func parseGMPText(text string) (float64, float64) {
	text = strings.ReplaceAll(text, "₹", "")
	text = strings.ReplaceAll(text, ",", "")
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, 0
	}

	if matches := gmpValuePercentPattern.FindStringSubmatch(text); len(matches) >= 3 {
		value, _ := strconv.ParseFloat(matches[1], 64)
		percent, _ := strconv.ParseFloat(matches[2], 64)
		return value, percent
	}

	if matches := gmpValuePattern.FindStringSubmatch(text); len(matches) >= 2 {
		value, _ := strconv.ParseFloat(matches[1], 64)
		return value, 0
	}

	return 0, 0
}

// cleanScrapedCompanyName strips the exchange and status decorations the site
// appends to names in the first column.
func cleanScrapedCompanyName(name string) string {
	name = whitespacePattern.ReplaceAllString(strings.TrimSpace(name), " ")
	for _, suffix := range []string{"BSE SME", "NSE SME", "BSE", "NSE", "IPO"} {
		name = strings.TrimSuffix(name, " "+suffix)
	}
	return strings.TrimSpace(name)
}
