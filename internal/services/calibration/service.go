// Package calibration overwrites every known fund with the authoritative
// published values once per day.
package calibration

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/interfaces"
	"github.com/bobmcallan/navwatch/internal/models"
	"github.com/bobmcallan/navwatch/internal/services/calendar"
)

// Result summarises one sweep.
type Result struct {
	Date    string
	Codes   int
	Updated int
	Failed  int
	Elapsed time.Duration
}

// Service implements interfaces.Calibrator. It is idle until the configured
// hour, runs one sweep, then stays idle until the next calendar day.
type Service struct {
	reference interfaces.ReferenceSource
	storage   interfaces.StorageManager
	calendar  *calendar.Calendar
	hour      int
	limiter   *rate.Limiter
	logger    *common.Logger
	now       func() time.Time // injectable clock for testing

	mu      sync.Mutex
	lastRun string // date bucket of the last started sweep
	last    *Result
}

// NewService creates a calibration service firing at hour (exchange time),
// spacing reference requests by delay.
func NewService(
	reference interfaces.ReferenceSource,
	storage interfaces.StorageManager,
	cal *calendar.Calendar,
	hour int,
	delay time.Duration,
	logger *common.Logger,
) *Service {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Service{
		reference: reference,
		storage:   storage,
		calendar:  cal,
		hour:      hour,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
		now:       cal.Now,
	}
}

// RunIfDue starts a sweep when the target hour has been reached and today has
// not been calibrated. The marker is recorded before the sweep so a slow sweep
// cannot be started twice.
func (s *Service) RunIfDue(ctx context.Context) bool {
	now := s.now().In(s.calendar.Location())
	date := s.calendar.DateBucket(now)

	s.mu.Lock()
	if now.Hour() != s.hour || s.lastRun == date {
		s.mu.Unlock()
		return false
	}
	s.lastRun = date
	s.mu.Unlock()

	s.Sweep(ctx)
	return true
}

// Sweep overwrites every stored fund with its reference snapshot. A code whose
// fetch fails keeps its previous values.
func (s *Service) Sweep(ctx context.Context) Result {
	start := time.Now()
	now := s.now().In(s.calendar.Location())
	res := Result{Date: s.calendar.DateBucket(now)}

	s.logger.Info().Str("date", res.Date).Msg("Calibration: starting")

	funds := s.storage.FundStore()
	codes, err := funds.ListCodes(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Calibration: failed to list codes")
		return s.finish(res, start)
	}
	res.Codes = len(codes)

	for _, code := range codes {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Calibration: interrupted")
			break
		}

		ref, err := s.reference.FetchReferenceSnapshot(ctx, code)
		if err != nil || ref == nil {
			res.Failed++
			s.logger.Warn().Err(err).Str("code", code).Msg("Calibration: reference unavailable, keeping prior values")
			continue
		}

		snap := &models.FundSnapshot{
			Code:          code,
			Name:          ref.Name,
			BaselineNAV:   ref.BaselineNAV,
			BaselineDate:  ref.BaselineDate,
			EstimatedNAV:  ref.BaselineNAV,
			EstimatedRate: ref.ReferenceRate,
			UpdatedAt:     now,
		}
		if err := funds.SaveFund(ctx, snap); err != nil {
			res.Failed++
			s.logger.Warn().Err(err).Str("code", code).Msg("Calibration: save failed")
			continue
		}
		res.Updated++
	}

	return s.finish(res, start)
}

func (s *Service) finish(res Result, start time.Time) Result {
	res.Elapsed = time.Since(start)
	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()

	s.logger.Info().
		Str("date", res.Date).
		Int("codes", res.Codes).
		Int("updated", res.Updated).
		Int("failed", res.Failed).
		Dur("elapsed", res.Elapsed).
		Msg("Calibration: complete")
	return res
}

// LastRun returns the date of the last started sweep, empty if none.
func (s *Service) LastRun() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// LastResult returns the summary of the most recent completed sweep.
func (s *Service) LastResult() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

var _ interfaces.Calibrator = (*Service)(nil)
