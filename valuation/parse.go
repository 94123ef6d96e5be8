package valuation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"flip-analyzer/models"
)

// Plausible bounds for a residential property price. Range matches
// outside these are treated as extraction misses.
const (
	minPlausiblePrice = 100_000
	maxPlausiblePrice = 10_000_000
)

// Window, in characters, carved around the first anchor phrase before
// searching for currency figures.
const (
	windowBefore = 4000
	windowAfter  = 8000
)

// anchorPhrases are tried in priority order; the first one present in
// the document anchors the search window.
var anchorPhrases = []string{
	"homesestimate",
	"homes estimate",
	"estimate",
	"valuation",
	"value",
}

var (
	// $1,200,000 - $1,400,000 with optional K/M/B suffixes. The dollar
	// signs are optional; implausible matches (years, ranges of small
	// numbers) are filtered by the price bounds.
	priceRangeRe = regexp.MustCompile(
		`\$?\s*([\d,]+(?:\.\d+)?[KMBkmb]?)\s*-\s*\$?\s*([\d,]+(?:\.\d+)?[KMBkmb]?)`)

	// A single dollar amount: $850,000 or $850000.
	singlePriceRe = regexp.MustCompile(
		`\$\s*([0-9]{1,3}(?:,[0-9]{3})+|[0-9]+)(?:\.[0-9]{1,2})?`)

	listingDateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)listed[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
		regexp.MustCompile(`(?i)date[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
		regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
	}

	methodOfSaleRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<strong[^>]*>\s*([^<]*sold by[^<]*)\s*</strong>`),
		regexp.MustCompile(`(?i)<strong[^>]*>\s*([^<]*auction[^<]*)\s*</strong>`),
		regexp.MustCompile(`(?i)<strong[^>]*>\s*([^<]*tender[^<]*)\s*</strong>`),
		regexp.MustCompile(`(?i)<strong[^>]*>\s*([^<]*negotiation[^<]*)\s*</strong>`),
		regexp.MustCompile(`(?i)<strong[^>]*>\s*([^<]*price[^<]*)\s*</strong>`),
		regexp.MustCompile(`(?i)to be sold by ([^<]+)`),
		regexp.MustCompile(`(?i)sold by ([^<]+)`),
		regexp.MustCompile(`(?i)auction:\s*([^<\n]+)`),
		regexp.MustCompile(`(?i)method[:\s]+([^<\n]+)`),
		regexp.MustCompile(`(?i)sale[:\s]+([^<\n]+)`),
	}

	methodKeywords = []string{"date", "auction", "tender", "negotiation", "price"}

	// Site-specific estimate widgets tried before the regex window pass.
	estimateSelectors = []string{
		`[class*="homes-estimate__range"]`,
		`[class*="estimate__range"]`,
		`p[class*="p-h1"]`,
	}
)

// ParseValuation runs the anchored-window and method-of-sale tiers over
// a fetched document. ok is false when no plausible price was found;
// the method of sale and listing date are extracted independently and
// may be present even on a miss.
func ParseValuation(html, address, siteLabel string) (*models.ValuationEstimate, bool) {
	low, high, found := extractRangeFromSelectors(html)
	if !found {
		window := anchorWindow(html)
		low, high, found = extractRange(window)
		if !found {
			if mid, ok := extractSinglePrice(window); ok {
				low, high, found = mid*0.85, mid*1.15, true
			}
		}
	}
	if !found {
		return nil, false
	}

	mid := (low + high) / 2
	return &models.ValuationEstimate{
		Address:       address,
		Low:           round0(low),
		Mid:           round0(mid),
		High:          round0(high),
		LastSalePrice: round0(mid),
		LastSaleDate:  ExtractListingDate(html),
		MethodOfSale:  ExtractMethodOfSale(html),
		Source:        siteLabel + " (Live)",
		FetchedAt:     time.Now(),
	}, true
}

// anchorWindow returns the slice of the document surrounding the first
// anchor phrase, or the whole document when no anchor is present.
func anchorWindow(html string) string {
	lower := strings.ToLower(html)
	pos := -1
	for _, phrase := range anchorPhrases {
		if pos = strings.Index(lower, phrase); pos != -1 {
			break
		}
	}
	if pos == -1 {
		return html
	}
	start := pos - windowBefore
	if start < 0 {
		start = 0
	}
	end := pos + windowAfter
	if end > len(html) {
		end = len(html)
	}
	return html[start:end]
}

// extractRangeFromSelectors looks for known estimate-widget elements and
// parses their text for a price range.
func extractRangeFromSelectors(html string) (low, high float64, ok bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, 0, false
	}
	for _, sel := range estimateSelectors {
		var found bool
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if l, h, rangeOK := extractRange(s.Text()); rangeOK {
				low, high, found = l, h, true
				return false
			}
			return true
		})
		if found {
			return low, high, true
		}
	}
	return 0, 0, false
}

// extractRange scans text for a plausible $X - $Y range.
func extractRange(text string) (float64, float64, bool) {
	for _, m := range priceRangeRe.FindAllStringSubmatch(text, -1) {
		low, okLow := convertPrice(m[1])
		high, okHigh := convertPrice(m[2])
		if !okLow || !okHigh {
			continue
		}
		if low > minPlausiblePrice && high > low &&
			low < maxPlausiblePrice && high < maxPlausiblePrice {
			return low, high, true
		}
	}
	return 0, 0, false
}

// extractSinglePrice returns the first lone dollar figure inside the
// plausible property band.
func extractSinglePrice(text string) (float64, bool) {
	for _, m := range singlePriceRe.FindAllStringSubmatch(text, -1) {
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

// convertPrice parses a currency token with an optional K/M/B suffix.
func convertPrice(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, false
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'K', 'k':
		mult, s = 1_000, s[:len(s)-1]
	case 'M', 'm':
		mult, s = 1_000_000, s[:len(s)-1]
	case 'B', 'b':
		mult, s = 1_000_000_000, s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v * mult, true
}

// ExtractMethodOfSale finds a sale-method phrase ("sold by auction",
// "tender", price-by-date labels) near emphasis markup or label:value
// text. Absence is not an error; the field simply stays empty.
func ExtractMethodOfSale(html string) string {
	for _, re := range methodOfSaleRes {
		for _, m := range re.FindAllStringSubmatch(html, -1) {
			method := strings.TrimSpace(m[1])
			if len(method) <= 3 {
				continue
			}
			lower := strings.ToLower(method)
			for _, kw := range methodKeywords {
				if strings.Contains(lower, kw) {
					return method
				}
			}
		}
	}
	return ""
}

// ExtractListingDate pulls the first d/m/y style date from the document.
func ExtractListingDate(html string) string {
	for _, re := range listingDateRes {
		if m := re.FindStringSubmatch(html); m != nil {
			return m[1]
		}
	}
	return ""
}

func round0(v float64) float64 {
	return math.Round(v)
}
