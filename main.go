package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"flip-analyzer/cache"
	"flip-analyzer/config"
	"flip-analyzer/models"
	"flip-analyzer/scraper"
	"flip-analyzer/services"
	"flip-analyzer/storage"
	"flip-analyzer/utils"
	"flip-analyzer/valuation"
)

func main() {
	logger := utils.NewLogger()
	logger.Info("=== Property Flip Analyzer starting ===")

	cfg := config.Load()
	logger.SetDebug(cfg.Debug)

	requests, err := readRequests(cfg.InputCSVPath)
	if err != nil {
		logger.Error("Failed to read input addresses: %v", err)
		os.Exit(1)
	}
	if len(requests) == 0 {
		logger.Error("No addresses in %s, nothing to do", cfg.InputCSVPath)
		os.Exit(1)
	}
	logger.Info("Loaded %d addresses from %s", len(requests), cfg.InputCSVPath)

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Error("Failed to initialize PostgreSQL store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	if pruned, err := store.Prune(time.Now().AddDate(0, 0, -2*cfg.CacheTTLDays)); err != nil {
		logger.Warn("Cache prune failed: %v", err)
	} else if pruned > 0 {
		logger.Info("Pruned %d expired cache entries", pruned)
	}

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	jsonWriter, err := storage.NewJSONWriter(cfg.JSONOutputPath)
	if err != nil {
		logger.Error("Failed to create JSON writer: %v", err)
		os.Exit(1)
	}
	defer jsonWriter.Close()

	renderOpts := scraper.RenderOptions{
		SettleMs:            cfg.SettleMs,
		ScrollStepPx:        cfg.ScrollStepPx,
		ScrollPauseMs:       cfg.ScrollPauseMs,
		MaxScrollIterations: cfg.MaxScrollIterations,
	}

	var source scraper.Source
	if scraper.ChromeAvailable(cfg.ChromeBin) {
		source = scraper.NewChromeSource(cfg.ChromeBin, renderOpts, logger)
	} else {
		logger.Warn("No Chrome binary found, using plain HTTP fetches (scripted pages will be incomplete)")
		source = scraper.NewHTTPSource()
	}

	limiter := scraper.NewRateLimiter(cfg.RateLimitMs)
	pool := scraper.NewPool(source, limiter, cfg.MaxConcurrency,
		time.Duration(cfg.PerURLTimeoutSecs)*time.Second, logger)
	defer pool.Shutdown()

	retry := &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		MaxDelay:    time.Duration(cfg.PerURLTimeoutSecs) * time.Second,
		Logger:      logger,
	}

	chain := valuation.NewChain(logger,
		valuation.NewLiveExtractionProvider(pool, retry, cfg.AllowedDomains, logger),
		valuation.NewSyntheticProvider(logger),
	)
	sales := valuation.NewSalesFetcher(pool, logger)

	valuationCache := cache.New(store, cfg.CacheTTLDays, logger)
	matcher := services.NewMatcher(logger)
	scorer := services.NewScorer(cfg)
	analyzer := services.NewAnalyzer(cfg, logger, chain, sales, valuationCache, matcher, scorer)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	scores, err := analyzer.AnalyzeAll(ctx, requests)
	if err != nil {
		logger.Error("Analysis completed with cache-store errors: %v", err)
	}

	if err := csvWriter.Write(scores); err != nil {
		logger.Error("Failed to write CSV report: %v", err)
	}
	if err := jsonWriter.Write(scores); err != nil {
		logger.Error("Failed to write JSON report: %v", err)
	}

	viable := 0
	for _, s := range scores {
		if s.Profit != nil && s.Profit.IsViable {
			viable++
		}
	}

	logger.Info("=== Done: %d addresses scored in %s (%d viable flips) ===",
		len(scores), time.Since(start).Round(time.Second), viable)
	logger.Info("Reports: %s, %s", cfg.CSVOutputPath, cfg.JSONOutputPath)
}

// readRequests parses the input CSV. Expected columns:
// address,listing_url,suburb,bedrooms,floor_area,purchase_price. Only
// address is required; a header row is detected and skipped.
func readRequests(path string) ([]models.AddressRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var requests []models.AddressRequest
	for line := 1; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %q line %d: %w", path, line, err)
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "address") {
			continue
		}

		req := models.AddressRequest{Address: strings.TrimSpace(record[0])}
		if len(record) > 1 {
			req.ListingURL = strings.TrimSpace(record[1])
		}
		if len(record) > 2 {
			req.Suburb = strings.TrimSpace(record[2])
		}
		if len(record) > 3 {
			req.Bedrooms, _ = strconv.Atoi(strings.TrimSpace(record[3]))
		}
		if len(record) > 4 {
			req.FloorArea, _ = strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
		}
		if len(record) > 5 {
			req.PurchasePrice, _ = strconv.ParseFloat(strings.TrimSpace(record[5]), 64)
		}
		requests = append(requests, req)
	}
	return requests, nil
}
