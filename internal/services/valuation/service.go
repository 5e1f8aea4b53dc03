// Package valuation is the read path behind the HTTP and MCP surfaces.
package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/interfaces"
	"github.com/bobmcallan/navwatch/internal/models"
	"github.com/bobmcallan/navwatch/internal/services/calendar"
	"github.com/bobmcallan/navwatch/internal/services/monitor"
)

// PlaceholderName is used for a first-seen fund whose reference lookup failed.
const PlaceholderName = "未命名"

// Service implements interfaces.ValuationService.
type Service struct {
	estimator interfaces.Estimator
	reference interfaces.ReferenceSource
	storage   interfaces.StorageManager
	registry  *monitor.Registry
	calendar  *calendar.Calendar
	logger    *common.Logger
	now       func() time.Time // injectable clock for testing
}

// NewService creates a new valuation service
func NewService(
	estimator interfaces.Estimator,
	reference interfaces.ReferenceSource,
	storage interfaces.StorageManager,
	registry *monitor.Registry,
	cal *calendar.Calendar,
	logger *common.Logger,
) *Service {
	return &Service{
		estimator: estimator,
		reference: reference,
		storage:   storage,
		registry:  registry,
		calendar:  cal,
		logger:    logger,
		now:       cal.Now,
	}
}

// GetValuation returns the current view of code. During trading the code is
// registered as active and a snapshot older than the current minute is
// recomputed. Outside trading the stored snapshot is returned as is.
// A nil snapshot with a nil error means nothing is known about code.
func (s *Service) GetValuation(ctx context.Context, code string) (*models.FundSnapshot, error) {
	now := s.now()
	trading := s.calendar.IsTradingTime(now)
	if trading {
		s.registry.Add(code)
	}

	snap, err := s.storage.FundStore().GetFund(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load fund %s: %w", code, err)
	}

	if !trading {
		return snap, nil
	}
	if snap != nil && s.calendar.SameMinute(snap.UpdatedAt, now) {
		return snap, nil
	}

	base := snap
	if base == nil {
		base = s.bootstrap(ctx, code, now)
	}

	result, err := s.estimator.Compute(ctx, code, base.BaselineNAV, base.Name)
	if err != nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("Estimate failed, serving last known snapshot")
		if snap != nil {
			return snap, nil
		}
		// Only a persisted bootstrap counts as known data.
		persisted, gerr := s.storage.FundStore().GetFund(ctx, code)
		if gerr != nil {
			return nil, fmt.Errorf("load fund %s: %w", code, gerr)
		}
		return persisted, nil
	}

	merged := *base
	merged.Code = code
	merged.BaselineNAV = result.BaselineNAV
	merged.EstimatedNAV = result.EstimatedNAV
	merged.EstimatedRate = result.RatePercent()
	merged.UpdatedAt = result.ComputedAt
	return &merged, nil
}

// bootstrap builds the first snapshot of an unseen code from the reference
// feed and persists it. When the feed fails the snapshot is a placeholder
// with baseline 1.0 that is not persisted.
func (s *Service) bootstrap(ctx context.Context, code string, now time.Time) *models.FundSnapshot {
	ref, err := s.reference.FetchReferenceSnapshot(ctx, code)
	if err != nil || ref == nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("Bootstrap reference unavailable, using placeholder")
		return &models.FundSnapshot{
			Code:        code,
			Name:        PlaceholderName,
			BaselineNAV: 1.0,
		}
	}

	snap := &models.FundSnapshot{
		Code:          code,
		Name:          ref.Name,
		BaselineNAV:   ref.BaselineNAV,
		BaselineDate:  ref.BaselineDate,
		EstimatedNAV:  ref.BaselineNAV,
		EstimatedRate: 0,
		UpdatedAt:     now,
	}
	if snap.Name == "" {
		snap.Name = PlaceholderName
	}
	if err := s.storage.FundStore().SaveFund(ctx, snap); err != nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("Failed to persist bootstrap snapshot")
	} else {
		s.logger.Info().Str("code", code).Str("name", snap.Name).Float64("baseline", snap.BaselineNAV).Msg("Fund bootstrapped")
	}
	return snap
}

// GetHistory returns today's per-minute points for code, oldest first.
func (s *Service) GetHistory(ctx context.Context, code string) ([]*models.HistoryPoint, error) {
	date := s.calendar.DateBucket(s.now())
	points, err := s.storage.HistoryStore().ListHistory(ctx, code, date)
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", code, err)
	}
	return points, nil
}

// HistoryChart renders today's series for code as a PNG.
func (s *Service) HistoryChart(ctx context.Context, code string) ([]byte, error) {
	points, err := s.GetHistory(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("%s: %w", code, models.ErrInsufficientHistory)
	}

	title := code
	if snap, err := s.storage.FundStore().GetFund(ctx, code); err == nil && snap != nil && snap.Name != "" {
		title = snap.Name + " (" + code + ")"
	}

	return RenderHistoryChart(points, title, s.now().In(s.calendar.Location()))
}

// IsTradingTime reports whether the exchange is in session now.
func (s *Service) IsTradingTime() bool {
	return s.calendar.IsTradingTime(s.now())
}

// ActiveCodes lists the codes currently being monitored.
func (s *Service) ActiveCodes() []string {
	return s.registry.Snapshot()
}

var _ interfaces.ValuationService = (*Service)(nil)
