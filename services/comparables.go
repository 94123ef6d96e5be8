package services

import (
	"math"
	"strings"

	"flip-analyzer/models"
	"flip-analyzer/utils"
)

// floorAreaTolerance is the maximum relative floor-area difference for
// a sale to count as comparable.
const floorAreaTolerance = 0.20

// Matcher filters cached sales down to true comparables and aggregates
// them into a target-value estimate.
type Matcher struct {
	logger *utils.Logger
}

// NewMatcher creates a Matcher with the given logger.
func NewMatcher(logger *utils.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// FindComparables keeps sales in the same suburb (case-insensitive,
// exact) with the same bedroom count and, when both floor areas are
// known, within ±20% of the target floor area.
func (m *Matcher) FindComparables(sales []models.ComparableSale, targetSuburb string, targetBedrooms int, targetFloorArea float64) []models.ComparableSale {
	var comparables []models.ComparableSale

	for _, sale := range sales {
		if !suburbsMatch(sale.Suburb, targetSuburb) {
			continue
		}
		if sale.Bedrooms != targetBedrooms {
			continue
		}
		if sale.FloorArea > 0 && targetFloorArea > 0 {
			diff := math.Abs(sale.FloorArea-targetFloorArea) / targetFloorArea
			if diff > floorAreaTolerance {
				continue
			}
		}
		comparables = append(comparables, sale)
	}

	m.logger.Debug("[comparables] %d of %d sales comparable to %s/%d br",
		len(comparables), len(sales), targetSuburb, targetBedrooms)
	return comparables
}

// AveragePrice returns the arithmetic mean sale price of the
// comparables. ok is false for an empty set; the caller then falls back
// to a fraction of capital value.
func (m *Matcher) AveragePrice(comparables []models.ComparableSale) (float64, bool) {
	total := 0.0
	count := 0
	for _, sale := range comparables {
		if sale.SalePrice > 0 {
			total += sale.SalePrice
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return total / float64(count), true
}

func suburbsMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	return a != "" && a == b
}
