package models

import "time"

// FundSnapshot is the current valuation state of one fund, keyed by code.
// BaselineNAV is only ever replaced by calibration or the first-seen bootstrap.
type FundSnapshot struct {
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	BaselineNAV   float64   `json:"last_nav"`
	BaselineDate  string    `json:"last_date"`
	EstimatedNAV  float64   `json:"est_nav"`
	EstimatedRate float64   `json:"est_rate"` // percent
	UpdatedAt     time.Time `json:"update_time"`
}

// HistoryPoint is one per-minute estimate. At most one exists per (Code, DateStr, TimeStr).
type HistoryPoint struct {
	Code         string  `json:"code"`
	EstimatedNAV float64 `json:"est_nav"`
	TimeStr      string  `json:"time_str"` // HH:mm
	DateStr      string  `json:"date_str"` // YYYY-MM-DD
}

// Holding is one disclosed top holding of a fund.
type Holding struct {
	Symbol        string  `json:"symbol"` // exchange-prefixed, e.g. sh600519
	WeightPercent float64 `json:"weight_percent"`
}

// AssetWeights is the stock/bond split of a fund's net assets, in percent.
type AssetWeights struct {
	StockPercent float64 `json:"stock_percent"`
	BondPercent  float64 `json:"bond_percent"`
	StockDefault bool    `json:"stock_default"` // true when the page had no stock row
	BondDefault  bool    `json:"bond_default"`
}

// Quote is a prior close and live price for one symbol.
type Quote struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	PriorClose float64 `json:"prior_close"`
	Current    float64 `json:"current"`
}

// ChangeRate returns the fractional move since the prior close, and false when
// the prior close is unusable.
func (q Quote) ChangeRate() (float64, bool) {
	if q.PriorClose <= 0 {
		return 0, false
	}
	return (q.Current - q.PriorClose) / q.PriorClose, true
}

// ReferenceSnapshot is the authoritative view of a fund published upstream.
type ReferenceSnapshot struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	BaselineNAV   float64 `json:"baseline_nav"`
	BaselineDate  string  `json:"baseline_date"`
	ReferenceNAV  float64 `json:"reference_nav"`
	ReferenceRate float64 `json:"reference_rate"` // percent
	Timestamp     string  `json:"timestamp"`
}

// EstimateResult is the outcome of one successful computation.
type EstimateResult struct {
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	BaselineNAV   float64   `json:"baseline_nav"`
	EstimatedNAV  float64   `json:"estimated_nav"`
	Rate          float64   `json:"rate"` // fraction, 0.0176 == 1.76%
	StockRate     float64   `json:"stock_rate"`
	BondRate      float64   `json:"bond_rate"`
	MatchedWeight float64   `json:"matched_weight"`
	HoldingsUsed  int       `json:"holdings_used"`
	ComputedAt    time.Time `json:"computed_at"`
}

// RatePercent returns Rate expressed in percent.
func (r *EstimateResult) RatePercent() float64 {
	return r.Rate * 100
}
