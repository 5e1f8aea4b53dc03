package calibration

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/models"
	"github.com/bobmcallan/navwatch/internal/services/calendar"
	"github.com/bobmcallan/navwatch/internal/storage/memory"
)

type mockReference struct {
	snaps map[string]*models.ReferenceSnapshot
	calls atomic.Int32
}

func (m *mockReference) FetchReferenceSnapshot(_ context.Context, code string) (*models.ReferenceSnapshot, error) {
	m.calls.Add(1)
	if s, ok := m.snaps[code]; ok {
		return s, nil
	}
	return nil, models.ErrSourceUnavailable
}

var cst = calendar.LoadLocation("Asia/Shanghai")

func newTestService(t *testing.T, ref *mockReference, clock *time.Time) (*Service, *memory.Manager) {
	t.Helper()
	store := memory.NewManager()
	ctx := context.Background()
	for _, code := range []string{"161725", "005827", "000001"} {
		require.NoError(t, store.FundStore().SaveFund(ctx, &models.FundSnapshot{
			Code: code, Name: "old", BaselineNAV: 1.0, BaselineDate: "2026-10-11", EstimatedNAV: 1.03, EstimatedRate: 3,
		}))
	}
	svc := NewService(ref, store, calendar.MustDefault(), 21, 0, common.NewSilentLogger())
	svc.now = func() time.Time { return *clock }
	return svc, store
}

func testReference() *mockReference {
	return &mockReference{snaps: map[string]*models.ReferenceSnapshot{
		"161725": {Code: "161725", Name: "白酒指数", BaselineNAV: 1.5, BaselineDate: "2026-10-12", ReferenceRate: 1.21},
		"005827": {Code: "005827", Name: "蓝筹精选", BaselineNAV: 2.1, BaselineDate: "2026-10-12", ReferenceRate: -0.4},
	}}
}

func TestRunIfDue_OncePerDay(t *testing.T) {
	clock := time.Date(2026, 10, 12, 21, 0, 10, 0, cst)
	ref := testReference()
	svc, store := newTestService(t, ref, &clock)
	ctx := context.Background()

	assert.True(t, svc.RunIfDue(ctx))
	assert.Equal(t, "2026-10-12", svc.LastRun())
	assert.Equal(t, 2, store.Funds().FundWrites()-3)

	clock = clock.Add(30 * time.Second)
	assert.False(t, svc.RunIfDue(ctx))
	clock = time.Date(2026, 10, 12, 21, 59, 0, 0, cst)
	assert.False(t, svc.RunIfDue(ctx))
	assert.Equal(t, int32(3), ref.calls.Load())

	clock = time.Date(2026, 10, 13, 21, 0, 0, 0, cst)
	assert.True(t, svc.RunIfDue(ctx))
	assert.Equal(t, int32(6), ref.calls.Load())
}

func TestRunIfDue_WrongHour(t *testing.T) {
	clock := time.Date(2026, 10, 12, 20, 59, 59, 0, cst)
	svc, _ := newTestService(t, testReference(), &clock)

	assert.False(t, svc.RunIfDue(context.Background()))
	assert.Empty(t, svc.LastRun())

	clock = time.Date(2026, 10, 12, 22, 0, 0, 0, cst)
	assert.False(t, svc.RunIfDue(context.Background()))
}

func TestSweep_OverwritesFromReference(t *testing.T) {
	clock := time.Date(2026, 10, 12, 21, 0, 0, 0, cst)
	svc, store := newTestService(t, testReference(), &clock)
	ctx := context.Background()

	res := svc.Sweep(ctx)
	assert.Equal(t, 3, res.Codes)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Failed)

	got, err := store.FundStore().GetFund(ctx, "161725")
	require.NoError(t, err)
	assert.Equal(t, "白酒指数", got.Name)
	assert.Equal(t, 1.5, got.BaselineNAV)
	assert.Equal(t, "2026-10-12", got.BaselineDate)
	assert.Equal(t, 1.5, got.EstimatedNAV)
	assert.Equal(t, 1.21, got.EstimatedRate)
	assert.True(t, got.UpdatedAt.Equal(clock))

	// Failed code keeps prior values.
	kept, err := store.FundStore().GetFund(ctx, "000001")
	require.NoError(t, err)
	assert.Equal(t, "old", kept.Name)
	assert.Equal(t, 1.03, kept.EstimatedNAV)

	require.NotNil(t, svc.LastResult())
	assert.Equal(t, 2, svc.LastResult().Updated)
}

func TestSweep_ThrottlesRequests(t *testing.T) {
	clock := time.Date(2026, 10, 12, 21, 0, 0, 0, cst)
	ref := testReference()
	svc, _ := newTestService(t, ref, &clock)
	svc.limiter = NewService(ref, nil, calendar.MustDefault(), 21, 40*time.Millisecond, common.NewSilentLogger()).limiter

	start := time.Now()
	svc.Sweep(context.Background())
	// Burst of one, then two waits.
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestSweep_StopsOnCancel(t *testing.T) {
	clock := time.Date(2026, 10, 12, 21, 0, 0, 0, cst)
	ref := testReference()
	svc, _ := newTestService(t, ref, &clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := svc.Sweep(ctx)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, int32(0), ref.calls.Load())
}
