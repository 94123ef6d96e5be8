package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"flip-analyzer/cache"
	"flip-analyzer/models"
	"flip-analyzer/utils"
	"flip-analyzer/valuation"
)

type fakeSales struct {
	sales []models.ComparableSale
	calls int32
}

func (f *fakeSales) Fetch(_ context.Context, _ string, _ int) ([]models.ComparableSale, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.sales, nil
}

type countingProvider struct {
	inner valuation.Provider
	calls int32
}

func (c *countingProvider) Name() string { return c.inner.Name() }

func (c *countingProvider) Fetch(ctx context.Context, req models.AddressRequest) (*models.ValuationEstimate, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.inner.Fetch(ctx, req)
}

func newTestAnalyzer(sales valuation.SalesSource, provider valuation.Provider) *Analyzer {
	logger := utils.NewLogger()
	cfg := testConfig()
	chain := valuation.NewChain(logger, provider)
	c := cache.New(cache.NewMemoryStore(), 7, logger)
	return NewAnalyzer(cfg, logger, chain, sales, c, NewMatcher(logger), NewScorer(cfg))
}

func TestAnalyzeAllPreservesInputOrder(t *testing.T) {
	provider := &countingProvider{inner: valuation.NewSyntheticProvider(utils.NewLogger())}
	a := newTestAnalyzer(&fakeSales{}, provider)

	reqs := []models.AddressRequest{
		{Address: "1 Alpha Rd, Auckland"},
		{Address: "2 Bravo St, Wellington"},
		{Address: "3 Charlie Ave, Dunedin"},
		{Address: "4 Delta Ln, Hamilton"},
	}

	scores, err := a.AnalyzeAll(context.Background(), reqs)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != len(reqs) {
		t.Fatalf("got %d results, want %d", len(scores), len(reqs))
	}
	for i, s := range scores {
		if s.Address != reqs[i].Address {
			t.Errorf("result %d is %q, want %q", i, s.Address, reqs[i].Address)
		}
	}
}

func TestAnalyzeAllAlwaysProducesEstimate(t *testing.T) {
	a := newTestAnalyzer(&fakeSales{},
		valuation.NewSyntheticProvider(utils.NewLogger()))

	scores, err := a.AnalyzeAll(context.Background(), []models.AddressRequest{
		{Address: "99 Nowhere Pl"},
	})
	if err != nil {
		t.Fatal(err)
	}

	s := scores[0]
	if s.Estimate == nil {
		t.Fatal("estimate must never be nil")
	}
	if !strings.Contains(s.Estimate.Source, "Estimated") {
		t.Errorf("source = %q, want an estimated label for a URL-less request", s.Estimate.Source)
	}
	if s.Profit == nil {
		t.Fatal("profit breakdown must be present")
	}
	if s.Profit.TargetValue <= 0 {
		t.Errorf("target value = %.0f, want positive fallback from capital value", s.Profit.TargetValue)
	}
}

func TestAnalyzeAllCachesRepeatedAddresses(t *testing.T) {
	provider := &countingProvider{inner: valuation.NewSyntheticProvider(utils.NewLogger())}
	a := newTestAnalyzer(&fakeSales{}, provider)

	reqs := []models.AddressRequest{
		{Address: "5 Echo St, Tauranga"},
		{Address: "5 Echo St, Tauranga"},
		{Address: "5 echo st,  tauranga"},
	}
	if _, err := a.AnalyzeAll(context.Background(), reqs); err != nil {
		t.Fatal(err)
	}

	if n := atomic.LoadInt32(&provider.calls); n != 1 {
		t.Errorf("provider fetched %d times for one normalized address, want 1", n)
	}
}

func TestAnalyzeAllUsesComparablesForTarget(t *testing.T) {
	sales := &fakeSales{sales: []models.ComparableSale{
		{Address: "a", Suburb: "Ponsonby", Bedrooms: 3, SalePrice: 900_000},
		{Address: "b", Suburb: "Ponsonby", Bedrooms: 3, SalePrice: 1_100_000},
		{Address: "c", Suburb: "Ponsonby", Bedrooms: 4, SalePrice: 2_000_000},
	}}
	a := newTestAnalyzer(sales, valuation.NewSyntheticProvider(utils.NewLogger()))

	scores, err := a.AnalyzeAll(context.Background(), []models.AddressRequest{
		{Address: "10 Foxtrot Rd, Ponsonby, Auckland", Suburb: "Ponsonby", Bedrooms: 3, PurchasePrice: 700_000},
	})
	if err != nil {
		t.Fatal(err)
	}

	s := scores[0]
	if s.Profit.TargetValue != 1_000_000 {
		t.Errorf("target value = %.0f, want comparable average 1000000", s.Profit.TargetValue)
	}
	if s.Profit.PurchasePrice != 700_000 {
		t.Errorf("purchase price = %.0f, want request override 700000", s.Profit.PurchasePrice)
	}
	if !strings.Contains(s.Notes, "comparable sales") {
		t.Errorf("notes = %q, want a comparable-sales note", s.Notes)
	}

	if n := atomic.LoadInt32(&sales.calls); n != 1 {
		t.Errorf("sales fetched %d times, want 1", n)
	}
}

// salesKeyFailingStore breaks reads for comparable-sales keys only, so
// address estimates still cache normally.
type salesKeyFailingStore struct {
	inner cache.Store
}

func (s salesKeyFailingStore) Get(key string) (*cache.Entry, error) {
	if strings.HasPrefix(key, "sales:") {
		return nil, errors.New("disk gone")
	}
	return s.inner.Get(key)
}

func (s salesKeyFailingStore) Put(key string, value []byte, storedAt time.Time) error {
	return s.inner.Put(key, value, storedAt)
}

func TestAnalyzeAllSurfacesSalesStoreFailure(t *testing.T) {
	logger := utils.NewLogger()
	cfg := testConfig()
	chain := valuation.NewChain(logger, valuation.NewSyntheticProvider(logger))
	c := cache.New(salesKeyFailingStore{inner: cache.NewMemoryStore()}, 7, logger)
	a := NewAnalyzer(cfg, logger, chain, &fakeSales{}, c, NewMatcher(logger), NewScorer(cfg))

	scores, err := a.AnalyzeAll(context.Background(), []models.AddressRequest{
		{Address: "14 Hotel Cres, Ponsonby, Auckland", Suburb: "Ponsonby", Bedrooms: 3},
	})
	if !errors.Is(err, cache.ErrStore) {
		t.Errorf("err = %v, want a cache.ErrStore from the sales key", err)
	}

	// The result still degrades to the capital-value fallback.
	s := scores[0]
	if s.Estimate == nil || s.Profit == nil {
		t.Fatal("degraded result must still carry estimate and profit")
	}
	want := s.Estimate.Mid * 0.90
	if diff := s.Profit.TargetValue - want; diff > 0.01 || diff < -0.01 {
		t.Errorf("target value = %.2f, want fallback %.2f", s.Profit.TargetValue, want)
	}
}

func TestAnalyzeAllFallsBackWithoutComparables(t *testing.T) {
	a := newTestAnalyzer(&fakeSales{}, valuation.NewSyntheticProvider(utils.NewLogger()))

	scores, err := a.AnalyzeAll(context.Background(), []models.AddressRequest{
		{Address: "11 Golf St, Rotorua", Suburb: "Rotorua", Bedrooms: 3},
	})
	if err != nil {
		t.Fatal(err)
	}

	s := scores[0]
	want := s.Estimate.Mid * 0.90
	if diff := s.Profit.TargetValue - want; diff > 0.01 || diff < -0.01 {
		t.Errorf("target value = %.2f, want 90%% of capital value (%.2f)", s.Profit.TargetValue, want)
	}
}
