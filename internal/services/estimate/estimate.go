package estimate

import (
	"github.com/bobmcallan/navwatch/internal/models"
)

// Estimate computes the weighted change of a fund from its holdings, their
// quotes, the asset allocation and the bond index quote. Baseline and NAV
// fields of the result are left for the caller.
//
// Holdings without a usable quote are skipped. The stock rate is averaged over
// the weight that actually resolved, then scaled by the stock allocation.
// It fails with ErrNoQuotes when neither a holding nor the bond index resolved.
func Estimate(holdings []models.Holding, quotes map[string]models.Quote, weights models.AssetWeights, bondSymbol string) (*models.EstimateResult, error) {
	var stockChange, matchedWeight float64
	used := 0

	for _, h := range holdings {
		q, ok := quotes[h.Symbol]
		if !ok {
			continue
		}
		r, ok := q.ChangeRate()
		if !ok {
			continue
		}
		stockChange += r * h.WeightPercent
		matchedWeight += h.WeightPercent
		used++
	}

	var avgStockRate float64
	if matchedWeight > 0 {
		avgStockRate = stockChange / matchedWeight
	}

	var bondRate float64
	bondResolved := false
	if q, ok := quotes[bondSymbol]; ok {
		bondRate, bondResolved = q.ChangeRate()
	}

	if used == 0 && !bondResolved {
		return nil, models.ErrNoQuotes
	}

	rate := avgStockRate*weights.StockPercent/100 + bondRate*weights.BondPercent/100

	return &models.EstimateResult{
		Rate:          rate,
		StockRate:     avgStockRate,
		BondRate:      bondRate,
		MatchedWeight: matchedWeight,
		HoldingsUsed:  used,
	}, nil
}

// ApplyRate returns baseline * (1 + rate). A non-positive baseline counts as 1.0.
func ApplyRate(baseline, rate float64) float64 {
	if baseline <= 0 {
		baseline = 1.0
	}
	return baseline * (1 + rate)
}
