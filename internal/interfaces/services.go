package interfaces

import (
	"context"

	"github.com/bobmcallan/navwatch/internal/models"
)

// Estimator runs one valuation computation for a fund and persists its result.
type Estimator interface {
	Compute(ctx context.Context, code string, baselineNAV float64, name string) (*models.EstimateResult, error)
}

// ValuationService is the read path used by HTTP and MCP handlers.
type ValuationService interface {
	GetValuation(ctx context.Context, code string) (*models.FundSnapshot, error)
	GetHistory(ctx context.Context, code string) ([]*models.HistoryPoint, error)
	// HistoryChart renders today's series as PNG. Fewer than two points
	// yields ErrInsufficientHistory.
	HistoryChart(ctx context.Context, code string) ([]byte, error)
	IsTradingTime() bool
	ActiveCodes() []string
}

// Calibrator overwrites snapshots with authoritative values once per day.
type Calibrator interface {
	// RunIfDue performs the sweep when the target hour is reached and today has
	// not been calibrated yet. It reports whether a sweep ran.
	RunIfDue(ctx context.Context) bool
}

// EstimatePublisher receives every freshly computed estimate. Publish must not block.
type EstimatePublisher interface {
	Publish(result models.EstimateResult)
}
