package estimate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/navwatch/internal/models"
)

func TestEstimate_WorkedExample(t *testing.T) {
	holdings := []models.Holding{{Symbol: "sh600519", WeightPercent: 60}}
	quotes := map[string]models.Quote{
		"sh600519": {Symbol: "sh600519", PriorClose: 10, Current: 10.2},
		"sh000012": {Symbol: "sh000012", PriorClose: 200, Current: 200},
	}
	weights := models.AssetWeights{StockPercent: 88, BondPercent: 0}

	r, err := Estimate(holdings, quotes, weights, "sh000012")
	require.NoError(t, err)

	assert.InDelta(t, 60.0, r.MatchedWeight, 1e-9)
	assert.InDelta(t, 0.02, r.StockRate, 1e-9)
	assert.InDelta(t, 0.0, r.BondRate, 1e-9)
	assert.InDelta(t, 0.0176, r.Rate, 1e-9)
	assert.Equal(t, 1, r.HoldingsUsed)
	assert.InDelta(t, 1.5264, ApplyRate(1.5, r.Rate), 1e-9)
}

func TestEstimate_Table(t *testing.T) {
	tests := []struct {
		name      string
		holdings  []models.Holding
		quotes    map[string]models.Quote
		weights   models.AssetWeights
		wantRate  float64
		wantUsed  int
		wantError error
	}{
		{
			name: "averages over matched weight only",
			holdings: []models.Holding{
				{Symbol: "sh600519", WeightPercent: 10},
				{Symbol: "sz000858", WeightPercent: 30},
				{Symbol: "sz300750", WeightPercent: 20}, // no quote
			},
			quotes: map[string]models.Quote{
				"sh600519": {PriorClose: 100, Current: 110}, // +10%
				"sz000858": {PriorClose: 50, Current: 49},   // -2%
			},
			weights:  models.AssetWeights{StockPercent: 100},
			wantRate: (0.10*10 + -0.02*30) / 40,
			wantUsed: 2,
		},
		{
			name:     "zero prior close skipped",
			holdings: []models.Holding{{Symbol: "sh600519", WeightPercent: 50}, {Symbol: "sh601318", WeightPercent: 50}},
			quotes: map[string]models.Quote{
				"sh600519": {PriorClose: 0, Current: 12},
				"sh601318": {PriorClose: 40, Current: 41},
				"sh000012": {PriorClose: 100, Current: 100},
			},
			weights:  models.AssetWeights{StockPercent: 80},
			wantRate: 0.025 * 0.8,
			wantUsed: 1,
		},
		{
			name:     "bond only when no holding resolves",
			holdings: []models.Holding{{Symbol: "sh600519", WeightPercent: 50}},
			quotes: map[string]models.Quote{
				"sh000012": {PriorClose: 200, Current: 202},
			},
			weights:  models.AssetWeights{StockPercent: 60, BondPercent: 30},
			wantRate: 0.01 * 0.3,
			wantUsed: 0,
		},
		{
			name:     "stock and bond blend",
			holdings: []models.Holding{{Symbol: "sh600519", WeightPercent: 20}},
			quotes: map[string]models.Quote{
				"sh600519": {PriorClose: 10, Current: 9},   // -10%
				"sh000012": {PriorClose: 100, Current: 101}, // +1%
			},
			weights:  models.AssetWeights{StockPercent: 50, BondPercent: 40},
			wantRate: -0.10*0.5 + 0.01*0.4,
			wantUsed: 1,
		},
		{
			name:      "nothing resolves",
			holdings:  []models.Holding{{Symbol: "sh600519", WeightPercent: 50}},
			quotes:    map[string]models.Quote{},
			weights:   models.AssetWeights{StockPercent: 88},
			wantError: models.ErrNoQuotes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Estimate(tt.holdings, tt.quotes, tt.weights, "sh000012")
			if tt.wantError != nil {
				assert.True(t, errors.Is(err, tt.wantError), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantRate, r.Rate, 1e-12)
			assert.Equal(t, tt.wantUsed, r.HoldingsUsed)
		})
	}
}

func TestApplyRate_NonPositiveBaseline(t *testing.T) {
	assert.InDelta(t, 1.01, ApplyRate(0, 0.01), 1e-12)
	assert.InDelta(t, 0.99, ApplyRate(-3, -0.01), 1e-12)
	assert.InDelta(t, 2.2, ApplyRate(2, 0.1), 1e-12)
}
