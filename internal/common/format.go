package common

import (
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeTimeLayout is the update_time format shown to clients.
const ExchangeTimeLayout = "2006-01-02 15:04:05"

// FormatNAV renders a NAV with four decimal places, rounding half away from zero.
func FormatNAV(v float64) string {
	return fixed(v, 4)
}

// FormatRate renders a percentage with two decimal places.
func FormatRate(pct float64) string {
	return fixed(pct, 2)
}

// fixed rounds through decimal. Non-finite values, which decimal cannot
// represent, render as "NaN", "+Inf" or "-Inf".
func fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', int(places), 64)
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FormatExchangeTime renders t in loc, or "" for the zero time.
func FormatExchangeTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(ExchangeTimeLayout)
}
