// Package memory is a process-local StorageManager for development runs and tests.
// Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bobmcallan/navwatch/internal/interfaces"
	"github.com/bobmcallan/navwatch/internal/models"
)

// Manager implements interfaces.StorageManager in memory.
type Manager struct {
	funds    *FundStore
	history  *HistoryStore
	feedback *FeedbackStore
}

// NewManager creates an empty in-memory storage manager.
func NewManager() *Manager {
	return &Manager{
		funds:    &FundStore{rows: make(map[string]models.FundSnapshot)},
		history:  &HistoryStore{rows: make(map[string]models.HistoryPoint)},
		feedback: &FeedbackStore{rows: make(map[string]models.Feedback)},
	}
}

func (m *Manager) FundStore() interfaces.FundStore         { return m.funds }
func (m *Manager) HistoryStore() interfaces.HistoryStore   { return m.history }
func (m *Manager) FeedbackStore() interfaces.FeedbackStore { return m.feedback }
func (m *Manager) Close() error                            { return nil }

// Funds exposes the concrete fund store so tests can count writes.
func (m *Manager) Funds() *FundStore { return m.funds }

// History exposes the concrete history store.
func (m *Manager) History() *HistoryStore { return m.history }

// FundStore keeps one snapshot per code.
type FundStore struct {
	mu          sync.RWMutex
	rows        map[string]models.FundSnapshot
	estimateOps int
	fundOps     int
}

func (s *FundStore) GetFund(_ context.Context, code string) (*models.FundSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[code]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *FundStore) SaveEstimate(_ context.Context, snap *models.FundSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimateOps++

	row := s.rows[snap.Code]
	row.Code = snap.Code
	if snap.Name != "" {
		row.Name = snap.Name
	}
	row.EstimatedNAV = snap.EstimatedNAV
	row.EstimatedRate = snap.EstimatedRate
	row.UpdatedAt = snap.UpdatedAt
	s.rows[snap.Code] = row
	return nil
}

func (s *FundStore) SaveFund(_ context.Context, snap *models.FundSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fundOps++
	s.rows[snap.Code] = *snap
	return nil
}

func (s *FundStore) ListCodes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.rows))
	for code := range s.rows {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

// EstimateWrites returns how many SaveEstimate calls were made.
func (s *FundStore) EstimateWrites() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.estimateOps
}

// FundWrites returns how many SaveFund calls were made.
func (s *FundStore) FundWrites() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fundOps
}

// HistoryStore keeps at most one point per (code, date, minute).
type HistoryStore struct {
	mu   sync.RWMutex
	rows map[string]models.HistoryPoint
}

func historyKey(code, date, minute string) string {
	return code + "_" + date + "_" + minute
}

func (s *HistoryStore) HistoryExists(_ context.Context, code, date, minute string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rows[historyKey(code, date, minute)]
	return ok, nil
}

func (s *HistoryStore) AppendHistory(_ context.Context, p *models.HistoryPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := historyKey(p.Code, p.DateStr, p.TimeStr)
	if _, ok := s.rows[key]; ok {
		return nil
	}
	s.rows[key] = *p
	return nil
}

func (s *HistoryStore) ListHistory(_ context.Context, code, date string) ([]*models.HistoryPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.HistoryPoint
	for _, p := range s.rows {
		if p.Code == code && p.DateStr == date {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeStr < out[j].TimeStr })
	return out, nil
}

// Len returns the total number of stored points.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// FeedbackStore keeps feedback entries by ID.
type FeedbackStore struct {
	mu   sync.RWMutex
	rows map[string]models.Feedback
}

func (s *FeedbackStore) Create(_ context.Context, fb *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[fb.ID] = *fb
	return nil
}

func (s *FeedbackStore) Get(_ context.Context, id string) (*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fb, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return &fb, nil
}

func (s *FeedbackStore) List(_ context.Context, limit int) ([]*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Feedback, 0, len(s.rows))
	for _, fb := range s.rows {
		fb := fb
		out = append(out, &fb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *FeedbackStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

var _ interfaces.StorageManager = (*Manager)(nil)
