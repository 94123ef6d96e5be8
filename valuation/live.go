package valuation

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"flip-analyzer/models"
	"flip-analyzer/scraper"
	"flip-analyzer/utils"
)

var errFetchFailed = errors.New("page fetch failed")

// LiveExtractionProvider fetches the listing page through the worker
// pool and runs the parsing tiers over it. It defers to the next tier
// when the request has no usable URL or the page cannot be fetched; a
// fetched page that yields no plausible price falls back to a
// URL-derived estimate that keeps whatever method-of-sale text the page
// did contain.
type LiveExtractionProvider struct {
	pool           *scraper.Pool
	retry          *utils.RetryConfig
	allowedDomains []string
	logger         *utils.Logger
}

// NewLiveExtractionProvider creates the live tier.
func NewLiveExtractionProvider(pool *scraper.Pool, retry *utils.RetryConfig, allowedDomains []string, logger *utils.Logger) *LiveExtractionProvider {
	return &LiveExtractionProvider{
		pool:           pool,
		retry:          retry,
		allowedDomains: allowedDomains,
		logger:         logger,
	}
}

func (p *LiveExtractionProvider) Name() string { return "live" }

func (p *LiveExtractionProvider) Fetch(ctx context.Context, req models.AddressRequest) (*models.ValuationEstimate, error) {
	if req.ListingURL == "" {
		return nil, nil
	}
	if !URLAllowed(req.ListingURL, p.allowedDomains) {
		p.logger.Warn("[live] URL not on allow-list, skipping fetch: %s", req.ListingURL)
		return nil, nil
	}

	site := SiteLabel(req.ListingURL)

	var html string
	err := p.retry.Do("fetch "+site, func() error {
		h, ok := p.pool.Fetch(ctx, req.Address, req.ListingURL, site)
		if !ok {
			return errFetchFailed
		}
		html = h
		return nil
	})
	if err != nil {
		// Transient fetch failure: absorbed here, the synthetic tier
		// takes over with a blocked-source estimate.
		p.logger.Warn("[live] Giving up on %s: %v", req.ListingURL, err)
		return nil, nil
	}

	if est, ok := ParseValuation(html, req.Address, site); ok {
		return est, nil
	}

	p.logger.Debug("[live] No plausible price on %s, estimating from URL", req.ListingURL)
	est := EstimateFromURL(req.Address, req.ListingURL)
	if method := ExtractMethodOfSale(html); method != "" {
		est.MethodOfSale = method
	}
	return est, nil
}

// URLAllowed reports whether rawURL points at one of the allow-listed
// listing domains.
func URLAllowed(rawURL string, allowed []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range allowed {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// SiteLabel extracts a short provenance label from a listing URL.
func SiteLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "listing site"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
