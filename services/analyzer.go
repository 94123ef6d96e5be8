package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"flip-analyzer/cache"
	"flip-analyzer/config"
	"flip-analyzer/models"
	"flip-analyzer/utils"
	"flip-analyzer/valuation"
)

// capitalValueFallback is applied when no comparable sales are
// available: target value = 90% of capital value.
const capitalValueFallback = 0.90

// rateableValueRatio approximates RV from CV; RVs sit slightly below.
const rateableValueRatio = 0.95

// Analyzer drives the whole pipeline for a batch of addresses: cached
// valuation acquisition, comparable-based target refinement, profit
// calculation and scoring.
type Analyzer struct {
	cfg     *config.Config
	logger  *utils.Logger
	chain   *valuation.Chain
	sales   valuation.SalesSource
	cache   *cache.Cache
	matcher *Matcher
	scorer  *Scorer
}

// NewAnalyzer wires an Analyzer from its collaborators.
func NewAnalyzer(cfg *config.Config, logger *utils.Logger, chain *valuation.Chain, sales valuation.SalesSource, c *cache.Cache, matcher *Matcher, scorer *Scorer) *Analyzer {
	return &Analyzer{
		cfg:     cfg,
		logger:  logger,
		chain:   chain,
		sales:   sales,
		cache:   c,
		matcher: matcher,
		scorer:  scorer,
	}
}

// AnalyzeAll scores every request concurrently. Results are aligned to
// input order regardless of completion order; the pool bounds actual
// fetch parallelism. Every request gets a result. The returned error is
// the first cache-store failure encountered, if any; degraded scraping
// never surfaces as an error.
func (a *Analyzer) AnalyzeAll(ctx context.Context, reqs []models.AddressRequest) ([]models.AddressScore, error) {
	results := make([]models.AddressScore, len(reqs))
	errs := make([]error, len(reqs))

	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int, req models.AddressRequest) {
			defer wg.Done()
			results[i], errs[i] = a.analyzeOne(ctx, req)
		}(i, reqs[i])
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (a *Analyzer) analyzeOne(ctx context.Context, req models.AddressRequest) (models.AddressScore, error) {
	var storeErr error

	est, _, err := cache.GetOrFetch(a.cache, cache.AddressKey(req.Address),
		func() (*models.ValuationEstimate, error) {
			return a.chain.Fetch(ctx, req), nil
		})
	if err != nil {
		if !errors.Is(err, cache.ErrStore) || est == nil {
			// Store unreadable and nothing fetched: keep the availability
			// contract with a synthetic estimate, but surface the error.
			est = valuation.EstimateFromAddress(req.Address)
		}
		storeErr = err
		a.logger.Error("[analyzer] Cache failure for %s: %v", req.Address, err)
	}

	capitalValue := est.Mid
	rateableValue := capitalValue * rateableValueRatio

	targetValue, compNote, compErr := a.targetValue(ctx, req, capitalValue)
	if compErr != nil && storeErr == nil {
		storeErr = compErr
	}

	purchasePrice := req.PurchasePrice
	if purchasePrice == 0 {
		purchasePrice = est.LastSalePrice
	}
	if purchasePrice == 0 {
		purchasePrice = est.Mid
	}

	profit := a.scorer.CalculateProfit(models.FlipScenario{
		PurchasePrice: purchasePrice,
		TargetValue:   targetValue,
		RateableValue: rateableValue,
		CapitalValue:  capitalValue,
	})

	dom := a.daysOnMarket(est)
	ratio, hasMargin := MarginRatio(purchasePrice, profit.RenovationBudget, targetValue)
	if !hasMargin {
		ratio = 0
	}
	score, breakdown := a.scorer.Score(ratio, dom)

	notes := fmt.Sprintf("%s; %s", breakdown.MarginDetail, breakdown.DOMDetail)
	if compNote != "" {
		notes += "; " + compNote
	}

	a.logger.Info("[analyzer] %s scored %.1f (source: %s)", req.Address, score, est.Source)

	return models.AddressScore{
		Address:   req.Address,
		Score:     score,
		Notes:     notes,
		Breakdown: breakdown,
		Estimate:  est,
		Profit:    &profit,
	}, storeErr
}

// targetValue refines the expected sale price from cached comparable
// sales when the request identifies a suburb/bedroom bucket, falling
// back to a fraction of capital value. Fetch problems degrade to the
// fallback silently; cache-store failures degrade too but are returned
// so the batch reports them.
func (a *Analyzer) targetValue(ctx context.Context, req models.AddressRequest, capitalValue float64) (float64, string, error) {
	if req.Suburb == "" || req.Bedrooms <= 0 || a.sales == nil {
		return capitalValue * capitalValueFallback, "", nil
	}

	sales, _, err := cache.GetOrFetch(a.cache, cache.SalesKey(req.Suburb, req.Bedrooms),
		func() ([]models.ComparableSale, error) {
			return a.sales.Fetch(ctx, req.Suburb, req.Bedrooms)
		})
	if err != nil {
		a.logger.Warn("[analyzer] Comparable sales unavailable for %s/%d br: %v",
			req.Suburb, req.Bedrooms, err)
		if errors.Is(err, cache.ErrStore) {
			return capitalValue * capitalValueFallback, "", err
		}
		return capitalValue * capitalValueFallback, "", nil
	}

	comps := a.matcher.FindComparables(sales, req.Suburb, req.Bedrooms, req.FloorArea)
	avg, ok := a.matcher.AveragePrice(comps)
	if !ok {
		return capitalValue * capitalValueFallback, "", nil
	}
	return avg, fmt.Sprintf("Target from %d comparable sales", len(comps)), nil
}

// daysOnMarket derives a DOM signal from the estimate's listing/sale
// date, defaulting when the date is absent or unparseable.
func (a *Analyzer) daysOnMarket(est *models.ValuationEstimate) int {
	if est.LastSaleDate == "" {
		return a.cfg.DefaultDaysOnMarket
	}

	normalized := strings.ReplaceAll(est.LastSaleDate, "-", "/")
	for _, layout := range []string{"02/01/2006", "2/1/2006", "02/01/06", "2/1/06"} {
		t, err := time.Parse(layout, normalized)
		if err != nil {
			continue
		}
		days := int(time.Since(t).Hours() / 24)
		if days < 0 {
			days = 0
		}
		// Sales older than the listing window carry no speed signal.
		if days > 365 {
			return a.cfg.DefaultDaysOnMarket
		}
		return days
	}
	return a.cfg.DefaultDaysOnMarket
}
