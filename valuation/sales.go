package valuation

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"flip-analyzer/models"
	"flip-analyzer/scraper"
	"flip-analyzer/utils"
)

const recentlySoldURL = "https://www.realestate.co.nz/recently-sold"

var (
	moneyRe     = regexp.MustCompile(`\$\s*([0-9]{1,3}(?:,[0-9]{3})+|[0-9]{6,})`)
	floorAreaRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*m(?:²|2)`)
	soldDateRe  = regexp.MustCompile(`(?i)sold[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)

	soldCardSelectors = []string{
		`div[class*="listing"]`,
		`div[class*="property"]`,
		`div[class*="result"]`,
		`article`,
	}
)

// SalesSource supplies recent comparable sales for a suburb/bedroom
// bucket. Implementations may return an empty slice; the caller then
// falls back to a capital-value heuristic.
type SalesSource interface {
	Fetch(ctx context.Context, suburb string, bedrooms int) ([]models.ComparableSale, error)
}

// SalesFetcher scrapes a recently-sold search page through the worker
// pool and parses the sold cards into ComparableSale records.
type SalesFetcher struct {
	pool   *scraper.Pool
	logger *utils.Logger
}

// NewSalesFetcher creates a SalesFetcher over the shared pool.
func NewSalesFetcher(pool *scraper.Pool, logger *utils.Logger) *SalesFetcher {
	return &SalesFetcher{pool: pool, logger: logger}
}

// Fetch loads the recently-sold page for the given suburb and bedroom
// count. A failed fetch is not an error; it returns no sales.
func (f *SalesFetcher) Fetch(ctx context.Context, suburb string, bedrooms int) ([]models.ComparableSale, error) {
	searchURL := fmt.Sprintf("%s?suburb=%s&bedrooms=%d",
		recentlySoldURL, url.QueryEscape(suburb), bedrooms)

	html, ok := f.pool.Fetch(ctx, suburb, searchURL, "realestate.co.nz")
	if !ok {
		f.logger.Warn("[sales] Could not fetch sold listings for %s/%d br", suburb, bedrooms)
		return nil, nil
	}

	sales := ParseSoldListings(html, suburb, bedrooms)
	f.logger.Info("[sales] Parsed %d sold listings for %s/%d br", len(sales), suburb, bedrooms)
	return sales, nil
}

// ParseSoldListings extracts comparable sales from a sold-search results
// page. Cards without a plausible sale price are dropped.
func ParseSoldListings(html, suburb string, bedrooms int) []models.ComparableSale {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var cards *goquery.Selection
	for _, sel := range soldCardSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil
	}

	var sales []models.ComparableSale
	seen := make(map[string]struct{})

	cards.Each(func(_ int, card *goquery.Selection) {
		text := card.Text()

		price, ok := firstPlausiblePrice(text)
		if !ok {
			return
		}

		lines := nonEmptyLines(text)
		address := ""
		if len(lines) > 0 {
			address = lines[0]
		}
		if address != "" {
			if _, dup := seen[address]; dup {
				return
			}
			seen[address] = struct{}{}
		}

		sale := models.ComparableSale{
			Address:   address,
			Suburb:    suburb,
			Bedrooms:  bedrooms,
			SalePrice: price,
		}
		if m := floorAreaRe.FindStringSubmatch(text); m != nil {
			if area, err := strconv.ParseFloat(m[1], 64); err == nil {
				sale.FloorArea = area
			}
		}
		if m := soldDateRe.FindStringSubmatch(text); m != nil {
			sale.SaleDate = m[1]
		}
		sales = append(sales, sale)
	})

	return sales
}

func firstPlausiblePrice(text string) (float64, bool) {
	for _, m := range moneyRe.FindAllStringSubmatch(text, -1) {
		raw := strings.ReplaceAll(m[1], ",", "")
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if price > minPlausiblePrice && price < maxPlausiblePrice {
			return price, true
		}
	}
	return 0, false
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
