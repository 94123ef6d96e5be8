package valuation

import (
	"strings"
	"testing"
)

func TestParseValuationRange(t *testing.T) {
	html := `<html><body>
		<h2>HomesEstimate</h2>
		<p>$1,200,000 - $1,400,000</p>
	</body></html>`

	est, ok := ParseValuation(html, "12 King St, Auckland", "homes.co.nz")
	if !ok {
		t.Fatal("expected a parsed estimate")
	}
	if est.Low != 1_200_000 || est.High != 1_400_000 {
		t.Errorf("range = %.0f-%.0f, want 1200000-1400000", est.Low, est.High)
	}
	if est.Mid != 1_300_000 {
		t.Errorf("mid = %.0f, want 1300000", est.Mid)
	}
	if est.Source != "homes.co.nz (Live)" {
		t.Errorf("source = %q, want %q", est.Source, "homes.co.nz (Live)")
	}
}

func TestParseValuationSuffixedRange(t *testing.T) {
	html := `<div>Estimate: $1.2M - $1.45M</div>`

	est, ok := ParseValuation(html, "addr", "homes.co.nz")
	if !ok {
		t.Fatal("expected a parsed estimate")
	}
	if est.Low != 1_200_000 || est.High != 1_450_000 {
		t.Errorf("range = %.0f-%.0f, want 1200000-1450000", est.Low, est.High)
	}
}

func TestParseValuationSkipsImplausibleRanges(t *testing.T) {
	// The year range must be rejected, the price range accepted.
	html := `<div>Built 1995 - 2003. Estimate $650,000 - $750,000</div>`

	est, ok := ParseValuation(html, "addr", "homes.co.nz")
	if !ok {
		t.Fatal("expected a parsed estimate")
	}
	if est.Low != 650_000 || est.High != 750_000 {
		t.Errorf("range = %.0f-%.0f, want 650000-750000", est.Low, est.High)
	}
}

func TestParseValuationSinglePriceFallback(t *testing.T) {
	html := `<div>Asking price $850,000 for this charming villa</div>`

	est, ok := ParseValuation(html, "addr", "trademe.co.nz")
	if !ok {
		t.Fatal("expected a parsed estimate")
	}
	if est.Mid != 850_000 {
		t.Errorf("mid = %.0f, want 850000", est.Mid)
	}
	if est.Low != 722_500 || est.High != 977_500 {
		t.Errorf("range = %.0f-%.0f, want 722500-977500 (±15%%)", est.Low, est.High)
	}
}

func TestParseValuationEstimateWidget(t *testing.T) {
	html := `<html><body>
		<span class="homes-estimate__range">$900K - $1.1M</span>
		<p>Somewhere far below: $2,000,000 - $3,000,000</p>
	</body></html>`

	est, ok := ParseValuation(html, "addr", "homes.co.nz")
	if !ok {
		t.Fatal("expected a parsed estimate")
	}
	// The widget wins over the free-text range.
	if est.Low != 900_000 || est.High != 1_100_000 {
		t.Errorf("range = %.0f-%.0f, want widget range 900000-1100000", est.Low, est.High)
	}
}

func TestParseValuationNoPrice(t *testing.T) {
	html := `<div>Contact the agent for a valuation.</div>`

	if _, ok := ParseValuation(html, "addr", "homes.co.nz"); ok {
		t.Error("expected a miss on a document without prices")
	}
}

func TestExtractMethodOfSale(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"strong auction", `<strong>To be sold by auction</strong>`, "To be sold by auction"},
		{"strong negotiation", `<strong> Price by negotiation </strong>`, "Price by negotiation"},
		{"auction label", `Auction: 14 March, in the auction rooms`, "auction rooms"},
		{"no keyword", `<strong>Lovely home</strong>`, ""},
		{"too short", `<strong>TBA</strong>`, ""},
		{"none", `plain text`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractMethodOfSale(tt.html)
			if tt.want == "" && got != "" {
				t.Errorf("got %q, want empty", got)
			}
			if tt.want != "" && !strings.Contains(got, strings.TrimSpace(tt.want)) {
				t.Errorf("got %q, want to contain %q", got, tt.want)
			}
		})
	}
}

func TestExtractListingDate(t *testing.T) {
	if got := ExtractListingDate(`<p>Listed: 12/03/2024</p>`); got != "12/03/2024" {
		t.Errorf("got %q, want 12/03/2024", got)
	}
	if got := ExtractListingDate(`no dates here`); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestConvertPrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,200,000", 1_200_000, true},
		{"1.2M", 1_200_000, true},
		{"850K", 850_000, true},
		{"1.5b", 1_500_000_000, true},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := convertPrice(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("convertPrice(%q) = %.0f, %v; want %.0f, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAnchorWindowBoundsSearch(t *testing.T) {
	// A plausible price placed well outside the anchor window must not be
	// picked up; the window around "estimate" contains none.
	padding := strings.Repeat("x", 20_000)
	html := `$700,000 - $800,000` + padding + `estimate` + strings.Repeat("y", 100)

	window := anchorWindow(html)
	if strings.Contains(window, "$700,000") {
		t.Fatal("window should exclude text beyond its leading bound")
	}
	if _, ok := ParseValuation(html, "addr", "homes.co.nz"); ok {
		t.Error("expected a miss when the only price lies outside the anchor window")
	}
}
