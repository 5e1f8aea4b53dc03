package surrealdb

import (
	"context"
	"fmt"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/interfaces"
	"github.com/bobmcallan/navwatch/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// HistoryStore implements interfaces.HistoryStore using SurrealDB.
// The record ID is derived from (code, date, minute), so a second point for
// the same minute can never be stored.
type HistoryStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(db *surrealdb.DB, logger *common.Logger) *HistoryStore {
	return &HistoryStore{db: db, logger: logger}
}

func historyRecordID(code, date, minute string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(tableHistory, code+"_"+date+"_"+minute)
}

func (s *HistoryStore) HistoryExists(ctx context.Context, code, date, minute string) (bool, error) {
	type idRow struct {
		Code string `json:"code"`
	}

	results, err := surrealdb.Query[[]idRow](ctx, s.db, "SELECT code FROM $rid", map[string]any{
		"rid": historyRecordID(code, date, minute),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check history: %w", err)
	}
	return len(firstRows(results)) > 0, nil
}

// AppendHistory inserts the point unless one already exists for its minute.
func (s *HistoryStore) AppendHistory(ctx context.Context, p *models.HistoryPoint) error {
	sql := "INSERT IGNORE INTO " + tableHistory + " $point"
	vars := map[string]any{
		"point": map[string]any{
			"id":       historyRecordID(p.Code, p.DateStr, p.TimeStr),
			"code":     p.Code,
			"est_nav":  p.EstimatedNAV,
			"time_str": p.TimeStr,
			"date_str": p.DateStr,
		},
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *HistoryStore) ListHistory(ctx context.Context, code, date string) ([]*models.HistoryPoint, error) {
	sql := "SELECT code, est_nav, time_str, date_str FROM " + tableHistory +
		" WHERE code = $code AND date_str = $date ORDER BY time_str ASC"
	vars := map[string]any{"code": code, "date": date}

	results, err := surrealdb.Query[[]models.HistoryPoint](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	return pointers(firstRows(results)), nil
}

var _ interfaces.HistoryStore = (*HistoryStore)(nil)
