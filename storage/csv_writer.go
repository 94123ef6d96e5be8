package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"flip-analyzer/models"
)

// CSVWriter writes scored addresses to a CSV file. It is safe for
// concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"address", "score", "valuation_low", "valuation_mid", "valuation_high",
		"source", "method_of_sale", "post_tax_profit", "is_viable", "recommended_pp",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per scored address.
func (c *CSVWriter) Write(scores []models.AddressScore) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range scores {
		row := []string{
			s.Address,
			strconv.FormatFloat(s.Score, 'f', 1, 64),
			money(s.Estimate.Low),
			money(s.Estimate.Mid),
			money(s.Estimate.High),
			s.Estimate.Source,
			s.Estimate.MethodOfSale,
			"", "", "",
		}
		if s.Profit != nil {
			row[7] = money(s.Profit.PostTaxProfit)
			row[8] = strconv.FormatBool(s.Profit.IsViable)
			if s.Profit.RecommendedPurchase > 0 {
				row[9] = money(s.Profit.RecommendedPurchase)
			}
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
