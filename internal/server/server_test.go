package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/models"
	"github.com/bobmcallan/navwatch/internal/services/calendar"
	"github.com/bobmcallan/navwatch/internal/services/monitor"
	"github.com/bobmcallan/navwatch/internal/services/valuation"
	"github.com/bobmcallan/navwatch/internal/storage/memory"
)

var cst = calendar.LoadLocation("Asia/Shanghai")

type stubEstimator struct {
	rate  float64
	err   error
	now   func() time.Time
	calls int
}

func (e *stubEstimator) Compute(_ context.Context, code string, baselineNAV float64, name string) (*models.EstimateResult, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return &models.EstimateResult{
		Code:         code,
		Name:         name,
		BaselineNAV:  baselineNAV,
		EstimatedNAV: baselineNAV * (1 + e.rate),
		Rate:         e.rate,
		ComputedAt:   e.now(),
	}, nil
}

type stubReference struct {
	err error
}

func (r *stubReference) FetchReferenceSnapshot(_ context.Context, code string) (*models.ReferenceSnapshot, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &models.ReferenceSnapshot{Code: code, Name: "白酒指数", BaselineNAV: 1.5, BaselineDate: "2026-10-09"}, nil
}

type testEnv struct {
	handler   http.Handler
	store     *memory.Manager
	registry  *monitor.Registry
	estimator *stubEstimator
	reference *stubReference
	clock     time.Time
}

// newTestEnv wires the REST routes over the in-memory store and stub
// upstream sources, with the exchange clock fixed at clock.
func newTestEnv(t *testing.T, clock time.Time) *testEnv {
	t.Helper()
	env := &testEnv{
		store:     memory.NewManager(),
		registry:  monitor.NewRegistry(),
		reference: &stubReference{},
		clock:     clock,
	}
	env.estimator = &stubEstimator{rate: 0.0176, now: func() time.Time { return env.clock }}

	logger := common.NewSilentLogger()
	cal := calendar.MustDefault(calendar.WithClock(func() time.Time { return env.clock }))
	svc := valuation.NewService(env.estimator, env.reference, env.store, env.registry, cal, logger)

	s := newServer(svc, env.store.FeedbackStore(), cal.Location(), logger)
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	env.handler = applyMiddleware(mux, logger)
	return env
}

func (env *testEnv) do(method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, stringsReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}
