package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/interfaces"
	"github.com/bobmcallan/navwatch/internal/services/calendar"
	"github.com/bobmcallan/navwatch/internal/services/monitor"
)

// hotConcurrency bounds parallel recomputes per hot tick.
const hotConcurrency = 4

// Scheduler drives the hot recompute loop over active codes and the
// calibration trigger. Both run until their context is cancelled.
type Scheduler struct {
	calendar   *calendar.Calendar
	registry   *monitor.Registry
	estimator  interfaces.Estimator
	storage    interfaces.StorageManager
	calibrator interfaces.Calibrator
	logger     *common.Logger
	now        func() time.Time // injectable clock for testing
}

// NewScheduler creates a scheduler over the given collaborators.
func NewScheduler(
	cal *calendar.Calendar,
	registry *monitor.Registry,
	estimator interfaces.Estimator,
	storage interfaces.StorageManager,
	calibrator interfaces.Calibrator,
	logger *common.Logger,
) *Scheduler {
	return &Scheduler{
		calendar:   cal,
		registry:   registry,
		estimator:  estimator,
		storage:    storage,
		calibrator: calibrator,
		logger:     logger,
		now:        cal.Now,
	}
}

// Start launches both loops in the background.
func (s *Scheduler) Start(ctx context.Context, hotInterval, calibrationInterval time.Duration) {
	go s.runHotLoop(ctx, hotInterval)
	go s.runCalibrationLoop(ctx, calibrationInterval)
}

func (s *Scheduler) runHotLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Hot loop: stopped")
			return
		case <-ticker.C:
			s.HotTick(ctx)
		}
	}
}

func (s *Scheduler) runCalibrationLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Calibration loop: stopped")
			return
		case <-ticker.C:
			s.CalibrationTick(ctx)
		}
	}
}

// HotTick recomputes every active code that already has a snapshot. Outside
// trading hours it empties the registry instead. Returns the number of
// successful recomputes.
func (s *Scheduler) HotTick(ctx context.Context) (computed int) {
	defer s.recoverTick("hot")

	if !s.calendar.IsTradingTime(s.now()) {
		if n := s.registry.Clear(); n > 0 {
			s.logger.Info().Int("cleared", n).Msg("Hot loop: market closed, monitors cleared")
		}
		return 0
	}

	codes := s.registry.Snapshot()
	if len(codes) == 0 {
		return 0
	}

	start := time.Now()
	var ok atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hotConcurrency)

	for _, code := range codes {
		g.Go(func() error {
			// errgroup does not propagate panics to Wait
			defer s.recoverTick("hot " + code)
			snap, err := s.storage.FundStore().GetFund(gctx, code)
			if err != nil {
				s.logger.Warn().Err(err).Str("code", code).Msg("Hot loop: failed to load snapshot")
				return nil
			}
			if snap == nil {
				return nil
			}
			if _, err := s.estimator.Compute(gctx, code, snap.BaselineNAV, snap.Name); err != nil {
				s.logger.Debug().Err(err).Str("code", code).Msg("Hot loop: recompute failed")
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	computed = int(ok.Load())
	s.logger.Debug().
		Int("active", len(codes)).
		Int("computed", computed).
		Dur("elapsed", time.Since(start)).
		Msg("Hot loop: tick complete")
	return computed
}

// CalibrationTick runs the calibration sweep when it is due.
func (s *Scheduler) CalibrationTick(ctx context.Context) (ran bool) {
	defer s.recoverTick("calibration")
	return s.calibrator.RunIfDue(ctx)
}

func (s *Scheduler) recoverTick(loop string) {
	if r := recover(); r != nil {
		s.logger.Error().Str("loop", loop).Str("panic", fmt.Sprint(r)).Msg("Scheduler tick panicked")
	}
}
