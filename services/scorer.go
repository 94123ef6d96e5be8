package services

import (
	"fmt"
	"math"

	"flip-analyzer/config"
	"flip-analyzer/models"
)

// Score weights and thresholds. The two sub-scores naturally sum to at
// most 7.5; the final clamp to [0, 10] is kept so that the scale stays
// stable if more criteria are added.
const (
	marginWeight     = 6.0
	marginFullRatio  = 0.20
	domWeight        = 1.5
	domFastDays      = 15
	domSlowDays      = 90
	maxScore         = 10.0
	netSaleFactor    = 0.94 // flat transaction-cost haircut on ARV
	solverTolerance  = 100  // dollars
	solverMaxRounds  = 100
	solverDamping    = 0.8
	solverStartRatio = 0.5
)

// Scorer computes flip viability scores and full profit breakdowns.
// Both operations are pure functions of their inputs; missing inputs
// are defaulted, never rejected.
type Scorer struct {
	cfg *config.Config
}

// NewScorer creates a Scorer bound to the configured financial rates.
func NewScorer(cfg *config.Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// MarginRatio returns profit over total cost for a flip: net sale
// proceeds (ARV less transaction costs) minus purchase and rehab, over
// purchase plus rehab. ok is false when there is no cost basis.
func MarginRatio(purchasePrice, rehabCost, afterRepairValue float64) (float64, bool) {
	totalCost := purchasePrice + rehabCost
	if totalCost <= 0 {
		return 0, false
	}
	netSale := afterRepairValue * netSaleFactor
	return (netSale - totalCost) / totalCost, true
}

// Score rates a flip on margin (weight 6.0) and days on market
// (weight 1.5), clamped to [0, 10].
func (s *Scorer) Score(marginRatio float64, daysOnMarket int) (float64, models.ScoreBreakdown) {
	var breakdown models.ScoreBreakdown

	switch {
	case marginRatio <= 0:
		breakdown.MarginScore = 0
	case marginRatio >= marginFullRatio:
		breakdown.MarginScore = marginWeight
	default:
		breakdown.MarginScore = marginWeight * (marginRatio / marginFullRatio)
	}
	breakdown.MarginDetail = fmt.Sprintf("Margin %.1f%% -> %.1f/%.1f",
		marginRatio*100, breakdown.MarginScore, marginWeight)

	var domSub float64
	switch {
	case daysOnMarket <= domFastDays:
		domSub = domWeight
	case daysOnMarket >= domSlowDays:
		domSub = 0
	default:
		domSub = domWeight * (1 - float64(daysOnMarket-domFastDays)/float64(domSlowDays-domFastDays))
	}
	breakdown.DOMScore = clamp(domSub, 0, domWeight)
	breakdown.DOMDetail = fmt.Sprintf("DOM %d days -> %.1f/%.1f",
		daysOnMarket, breakdown.DOMScore, domWeight)

	total := clamp(breakdown.MarginScore+breakdown.DOMScore, 0, maxScore)
	return math.Round(total*10) / 10, breakdown
}

// CalculateProfit runs the full cost/GST/tax breakdown for a scenario.
// Zero-valued optional fields take configured defaults. When the
// post-tax profit misses the viability threshold, a recommended purchase
// price is solved for the middle of the target profit range.
func (s *Scorer) CalculateProfit(sc models.FlipScenario) models.ProfitResult {
	s.applyDefaults(&sc)

	commission := sc.TargetValue * sc.CommissionRate
	interestCost := s.interestCost(sc.PurchasePrice, sc)

	gstClaimable := s.gstPortion(sc.PurchasePrice + sc.RenovationBudget + sc.LegalExpenses)
	gstPayable := s.gstPortion(sc.TargetValue)
	netGST := gstPayable - gstClaimable

	grossProfit := sc.TargetValue - sc.PurchasePrice - sc.RenovationBudget -
		sc.LegalExpenses - sc.CouncilRates - sc.Insurance - commission - interestCost
	preTaxProfit := grossProfit - netGST
	postTaxProfit := preTaxProfit * (1 - s.cfg.TaxRate)

	result := models.ProfitResult{
		PurchasePrice:    round2(sc.PurchasePrice),
		TargetValue:      round2(sc.TargetValue),
		RateableValue:    round2(sc.RateableValue),
		CapitalValue:     round2(sc.CapitalValue),
		Insurance:        round2(sc.Insurance),
		RenovationBudget: round2(sc.RenovationBudget),
		LegalExpenses:    round2(sc.LegalExpenses),
		CouncilRates:     round2(sc.CouncilRates),
		Commission:       round2(commission),
		InterestCost:     round2(interestCost),
		InterestRate:     round2(sc.InterestRate * 100),
		RenovationMonths: sc.RenovationMonths,
		GSTClaimable:     round2(gstClaimable),
		GSTPayable:       round2(gstPayable),
		NetGST:           round2(netGST),
		GrossProfit:      round2(grossProfit),
		PreTaxProfit:     round2(preTaxProfit),
		PostTaxProfit:    round2(postTaxProfit),
		IsViable:         postTaxProfit >= s.cfg.MinProfitThreshold,
	}

	if !result.IsViable {
		target := (s.cfg.TargetProfitMin + s.cfg.TargetProfitMax) / 2
		result.RecommendedPurchase = round2(s.recommendedPurchasePrice(sc, target))
	}

	return result
}

// recommendedPurchasePrice solves for the purchase price that yields the
// target post-tax profit by damped fixed-point iteration. Interest and
// claimable GST both depend on the purchase price, so the equation is
// not rearranged analytically; the iteration converges geometrically and
// the best available guess is returned even without convergence.
func (s *Scorer) recommendedPurchasePrice(sc models.FlipScenario, targetPostTax float64) float64 {
	guess := sc.TargetValue * solverStartRatio

	for i := 0; i < solverMaxRounds; i++ {
		postTax := s.postTaxProfitAt(guess, sc)

		diff := postTax - targetPostTax
		if math.Abs(diff) < solverTolerance {
			return guess
		}

		guess += diff * solverDamping

		if guess < 0 {
			guess = sc.TargetValue * 0.1
		} else if guess > sc.TargetValue {
			guess = sc.TargetValue * 0.9
		}
	}

	return guess
}

// postTaxProfitAt recomputes the post-tax profit for a candidate
// purchase price with all other scenario inputs fixed.
func (s *Scorer) postTaxProfitAt(purchasePrice float64, sc models.FlipScenario) float64 {
	commission := sc.TargetValue * sc.CommissionRate
	interestCost := s.interestCost(purchasePrice, sc)

	gstClaimable := s.gstPortion(purchasePrice + sc.RenovationBudget + sc.LegalExpenses)
	gstPayable := s.gstPortion(sc.TargetValue)
	netGST := gstPayable - gstClaimable

	grossProfit := sc.TargetValue - purchasePrice - sc.RenovationBudget -
		sc.LegalExpenses - sc.CouncilRates - sc.Insurance - commission - interestCost
	return (grossProfit - netGST) * (1 - s.cfg.TaxRate)
}

// interestCost is the financing cost of purchase plus renovation over
// the renovation period.
func (s *Scorer) interestCost(purchasePrice float64, sc models.FlipScenario) float64 {
	monthlyRate := sc.InterestRate / 12
	return (purchasePrice + sc.RenovationBudget) * monthlyRate * float64(sc.RenovationMonths)
}

// gstPortion extracts the GST component embedded in a GST-inclusive amount.
func (s *Scorer) gstPortion(amount float64) float64 {
	return amount * (s.cfg.GSTRate / (1 + s.cfg.GSTRate))
}

func (s *Scorer) applyDefaults(sc *models.FlipScenario) {
	if sc.Insurance == 0 {
		sc.Insurance = s.cfg.DefaultInsurance
	}
	if sc.RenovationBudget == 0 {
		sc.RenovationBudget = s.cfg.DefaultRenovationBudget
	}
	if sc.LegalExpenses == 0 {
		sc.LegalExpenses = s.cfg.DefaultLegalExpenses
	}
	if sc.CouncilRates == 0 {
		sc.CouncilRates = s.cfg.DefaultCouncilRates
	}
	if sc.CommissionRate == 0 {
		sc.CommissionRate = s.cfg.CommissionRate
	}
	if sc.InterestRate == 0 {
		sc.InterestRate = s.cfg.DefaultInterestRate
	}
	if sc.RenovationMonths == 0 {
		sc.RenovationMonths = s.cfg.DefaultRenovationMonths
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
