// Package estimate runs the intraday NAV estimation for a fund and records
// the result as the fund's snapshot and a per-minute history point.
package estimate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/interfaces"
	"github.com/bobmcallan/navwatch/internal/models"
	"github.com/bobmcallan/navwatch/internal/services/calendar"
)

// Config holds the weighting inputs that do not come from upstream pages.
type Config struct {
	BondIndexSymbol    string
	DefaultStockWeight float64 // percent
	DefaultBondWeight  float64 // percent
}

// ConfigFrom maps the estimation section of the app config.
func ConfigFrom(c common.EstimationConfig) Config {
	return Config{
		BondIndexSymbol:    c.BondIndexSymbol,
		DefaultStockWeight: c.DefaultStockWeight,
		DefaultBondWeight:  c.DefaultBondWeight,
	}
}

// Service implements interfaces.Estimator.
type Service struct {
	holdings interfaces.HoldingsSource
	weights  interfaces.WeightsSource
	quotes   interfaces.QuoteSource
	storage  interfaces.StorageManager
	calendar *calendar.Calendar
	config   Config
	logger   *common.Logger
	now      func() time.Time // injectable clock for testing

	publisher interfaces.EstimatePublisher

	group singleflight.Group

	mu          sync.Mutex
	cacheMinute string
	cache       map[string]models.EstimateResult
}

// NewService creates a new estimation service
func NewService(
	holdings interfaces.HoldingsSource,
	weights interfaces.WeightsSource,
	quotes interfaces.QuoteSource,
	storage interfaces.StorageManager,
	cal *calendar.Calendar,
	config Config,
	logger *common.Logger,
) *Service {
	if config.BondIndexSymbol == "" {
		config.BondIndexSymbol = "sh000012"
	}
	return &Service{
		holdings: holdings,
		weights:  weights,
		quotes:   quotes,
		storage:  storage,
		calendar: cal,
		config:   config,
		logger:   logger,
		now:      cal.Now,
		cache:    make(map[string]models.EstimateResult),
	}
}

// SetPublisher registers a receiver for newly computed estimates. Cache hits
// and coalesced callers are not republished.
func (s *Service) SetPublisher(p interfaces.EstimatePublisher) {
	s.publisher = p
}

// Compute estimates code against baselineNAV, saves the snapshot and records
// a history point for the current minute if none exists yet.
//
// Calls for the same code within the same exchange minute share one
// computation, which is not cancelled when any one caller goes away; the
// source clients' timeouts bound it. On error nothing is written and the
// prior snapshot stands.
func (s *Service) Compute(ctx context.Context, code string, baselineNAV float64, name string) (*models.EstimateResult, error) {
	now := s.now().In(s.calendar.Location())
	minute := s.calendar.DateBucket(now) + " " + s.calendar.MinuteBucket(now)

	if r, ok := s.cached(code, minute); ok {
		return r, nil
	}

	shared := context.WithoutCancel(ctx)
	v, err, joined := s.group.Do(code+"|"+minute, func() (interface{}, error) {
		if r, ok := s.cached(code, minute); ok {
			return r, nil
		}
		r, err := s.compute(shared, code, baselineNAV, name, now)
		if err != nil {
			return nil, err
		}
		s.store(code, minute, r)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	if joined {
		s.logger.Debug().Str("code", code).Str("minute", minute).Msg("Shared in-flight estimate")
	}

	out := *v.(*models.EstimateResult)
	return &out, nil
}

func (s *Service) compute(ctx context.Context, code string, baselineNAV float64, name string, now time.Time) (*models.EstimateResult, error) {
	holdings, err := s.holdings.FetchHoldings(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("fetch holdings: %w", err)
	}
	if len(holdings) == 0 {
		return nil, fmt.Errorf("%s: %w", code, models.ErrEmptyComposition)
	}

	weights, err := s.weights.FetchAssetWeights(ctx, code)
	if err != nil || weights == nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("Asset weights unavailable, using defaults")
		weights = &models.AssetWeights{
			StockPercent: s.config.DefaultStockWeight,
			BondPercent:  s.config.DefaultBondWeight,
			StockDefault: true,
			BondDefault:  true,
		}
	}

	symbols := make([]string, 0, len(holdings)+1)
	for _, h := range holdings {
		symbols = append(symbols, h.Symbol)
	}
	symbols = append(symbols, s.config.BondIndexSymbol)

	quotes, err := s.quotes.FetchQuotes(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}

	result, err := Estimate(holdings, quotes, *weights, s.config.BondIndexSymbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", code, err)
	}

	if baselineNAV <= 0 {
		baselineNAV = 1.0
	}
	result.Code = code
	result.Name = name
	result.BaselineNAV = baselineNAV
	result.EstimatedNAV = ApplyRate(baselineNAV, result.Rate)
	result.ComputedAt = now

	s.persist(ctx, result, now)
	if s.publisher != nil {
		s.publisher.Publish(*result)
	}

	s.logger.Info().
		Str("code", code).
		Float64("est_nav", result.EstimatedNAV).
		Float64("rate_pct", result.RatePercent()).
		Int("holdings_used", result.HoldingsUsed).
		Float64("matched_weight", result.MatchedWeight).
		Msg("Estimate computed")

	return result, nil
}

// persist writes the snapshot and the minute's history point. Each write
// stands alone; a failure is logged and does not undo the other.
func (s *Service) persist(ctx context.Context, r *models.EstimateResult, now time.Time) {
	snap := &models.FundSnapshot{
		Code:          r.Code,
		Name:          r.Name,
		EstimatedNAV:  r.EstimatedNAV,
		EstimatedRate: r.RatePercent(),
		UpdatedAt:     now,
	}
	if err := s.storage.FundStore().SaveEstimate(ctx, snap); err != nil {
		s.logger.Warn().Err(err).Str("code", r.Code).Msg("Failed to save estimate")
	}

	date := s.calendar.DateBucket(now)
	minute := s.calendar.MinuteBucket(now)
	history := s.storage.HistoryStore()

	exists, err := history.HistoryExists(ctx, r.Code, date, minute)
	if err != nil {
		s.logger.Warn().Err(err).Str("code", r.Code).Msg("History existence check failed")
		return
	}
	if exists {
		return
	}
	if err := history.AppendHistory(ctx, &models.HistoryPoint{
		Code:         r.Code,
		EstimatedNAV: r.EstimatedNAV,
		TimeStr:      minute,
		DateStr:      date,
	}); err != nil {
		s.logger.Warn().Err(err).Str("code", r.Code).Msg("Failed to append history")
	}
}

func (s *Service) cached(code, minute string) (*models.EstimateResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cacheMinute != minute {
		return nil, false
	}
	r, ok := s.cache[code]
	if !ok {
		return nil, false
	}
	return &r, true
}

func (s *Service) store(code, minute string, r *models.EstimateResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if minute < s.cacheMinute {
		return
	}
	if s.cacheMinute != minute {
		// Minute rolled over; drop everything from the previous one.
		s.cache = make(map[string]models.EstimateResult)
		s.cacheMinute = minute
	}
	s.cache[code] = *r
}

// IsDegraded reports whether err is one of the expected upstream failures
// after which callers fall back to the last persisted snapshot.
func IsDegraded(err error) bool {
	return errors.Is(err, models.ErrSourceUnavailable) ||
		errors.Is(err, models.ErrParseMismatch) ||
		errors.Is(err, models.ErrEmptyComposition) ||
		errors.Is(err, models.ErrNoQuotes)
}

var _ interfaces.Estimator = (*Service)(nil)
