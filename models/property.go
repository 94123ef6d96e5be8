package models

import (
	"strings"
	"time"
)

// ValuationEstimate is the priced output of the extraction chain.
// Low/Mid/High are currency amounts in NZD with no implied scaling.
// Source is always non-empty and encodes provenance: a live site label,
// "<site> URL analysis (blocked)" or "Estimated (scraping unavailable)".
type ValuationEstimate struct {
	Address       string    `json:"address"`
	Low           float64   `json:"low"`
	Mid           float64   `json:"mid"`
	High          float64   `json:"high"`
	LastSalePrice float64   `json:"last_sale_price,omitempty"`
	LastSaleDate  string    `json:"last_sale_date,omitempty"`
	MethodOfSale  string    `json:"method_of_sale,omitempty"`
	Source        string    `json:"source"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// ComparableSale is a recently sold property used to estimate target value.
type ComparableSale struct {
	Address   string  `json:"address"`
	Suburb    string  `json:"suburb"`
	Bedrooms  int     `json:"bedrooms"`
	FloorArea float64 `json:"floor_area,omitempty"`
	SalePrice float64 `json:"sale_price"`
	SaleDate  string  `json:"sale_date,omitempty"`
}

// FlipScenario holds the inputs to a profit calculation. Zero-valued
// optional fields are replaced with configured defaults by the scorer.
type FlipScenario struct {
	PurchasePrice    float64
	TargetValue      float64
	RateableValue    float64
	CapitalValue     float64
	Insurance        float64
	RenovationBudget float64
	LegalExpenses    float64
	CouncilRates     float64
	CommissionRate   float64
	InterestRate     float64
	RenovationMonths int
}

// ProfitResult is the full cost/GST/tax breakdown for a scenario.
// All currency fields are rounded to 2 decimals; InterestRate is a
// percentage figure (7.5, not 0.075).
type ProfitResult struct {
	PurchasePrice        float64 `json:"pp"`
	TargetValue          float64 `json:"tv"`
	RateableValue        float64 `json:"rv,omitempty"`
	CapitalValue         float64 `json:"cv,omitempty"`
	Insurance            float64 `json:"ins"`
	RenovationBudget     float64 `json:"rb"`
	LegalExpenses        float64 `json:"le"`
	CouncilRates         float64 `json:"cr"`
	Commission           float64 `json:"com"`
	InterestCost         float64 `json:"int_cost"`
	InterestRate         float64 `json:"int_rate"`
	RenovationMonths     int     `json:"renovation_months"`
	GSTClaimable         float64 `json:"gst_claimable"`
	GSTPayable           float64 `json:"gst_payable"`
	NetGST               float64 `json:"net_gst"`
	GrossProfit          float64 `json:"gross_profit"`
	PreTaxProfit         float64 `json:"pre_tax_profit"`
	PostTaxProfit        float64 `json:"post_tax_profit"`
	IsViable             bool    `json:"is_viable"`
	RecommendedPurchase  float64 `json:"recommended_pp,omitempty"`
}

// ScoreBreakdown explains how a viability score was assembled.
type ScoreBreakdown struct {
	MarginScore  float64 `json:"margin_score"`
	MarginDetail string  `json:"margin_detail"`
	DOMScore     float64 `json:"dom_score"`
	DOMDetail    string  `json:"dom_detail"`
}

// AddressRequest is one row of work for the analyzer: an address plus an
// optional listing URL and purchase-price override.
type AddressRequest struct {
	Address       string
	ListingURL    string
	Suburb        string
	Bedrooms      int
	FloorArea     float64
	PurchasePrice float64
}

// AddressScore is the analyzer's result for a single request.
type AddressScore struct {
	Address   string             `json:"address"`
	Score     float64            `json:"score"`
	Notes     string             `json:"notes,omitempty"`
	Breakdown ScoreBreakdown     `json:"breakdown"`
	Estimate  *ValuationEstimate `json:"estimate"`
	Profit    *ProfitResult      `json:"profit,omitempty"`
}

// NormalizeAddress trims and case-folds an address so it can be used as
// a cache key. Addresses are free text; no validation happens here.
func NormalizeAddress(address string) string {
	fields := strings.Fields(strings.ToLower(address))
	return strings.Join(fields, " ")
}
