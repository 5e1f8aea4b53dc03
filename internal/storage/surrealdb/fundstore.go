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

const fundSelectFields = "code, name, last_nav, last_date, est_nav, est_rate, update_time"

// FundStore implements interfaces.FundStore using SurrealDB.
// Each fund is one record, fund:⟨code⟩.
type FundStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewFundStore creates a new FundStore.
func NewFundStore(db *surrealdb.DB, logger *common.Logger) *FundStore {
	return &FundStore{db: db, logger: logger}
}

func (s *FundStore) GetFund(ctx context.Context, code string) (*models.FundSnapshot, error) {
	sql := "SELECT " + fundSelectFields + " FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID(tableFund, code),
	}

	results, err := surrealdb.Query[[]models.FundSnapshot](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get fund: %w", err)
	}

	rows := firstRows(results)
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// SaveEstimate sets the estimate fields only, so the baseline written by
// calibration or bootstrap survives. An empty name is not written.
func (s *FundStore) SaveEstimate(ctx context.Context, snap *models.FundSnapshot) error {
	sql := "UPSERT $rid SET code = $code, est_nav = $est_nav, est_rate = $est_rate, update_time = $update_time"
	vars := map[string]any{
		"rid":         surrealmodels.NewRecordID(tableFund, snap.Code),
		"code":        snap.Code,
		"est_nav":     snap.EstimatedNAV,
		"est_rate":    snap.EstimatedRate,
		"update_time": snap.UpdatedAt,
	}
	if snap.Name != "" {
		sql += ", name = $name"
		vars["name"] = snap.Name
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save estimate: %w", err)
	}
	return nil
}

// SaveFund overwrites every field of the record.
func (s *FundStore) SaveFund(ctx context.Context, snap *models.FundSnapshot) error {
	sql := `UPSERT $rid SET
		code = $code, name = $name, last_nav = $last_nav, last_date = $last_date,
		est_nav = $est_nav, est_rate = $est_rate, update_time = $update_time`
	vars := map[string]any{
		"rid":         surrealmodels.NewRecordID(tableFund, snap.Code),
		"code":        snap.Code,
		"name":        snap.Name,
		"last_nav":    snap.BaselineNAV,
		"last_date":   snap.BaselineDate,
		"est_nav":     snap.EstimatedNAV,
		"est_rate":    snap.EstimatedRate,
		"update_time": snap.UpdatedAt,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save fund: %w", err)
	}
	return nil
}

func (s *FundStore) ListCodes(ctx context.Context) ([]string, error) {
	type codeRow struct {
		Code string `json:"code"`
	}

	results, err := surrealdb.Query[[]codeRow](ctx, s.db, "SELECT code FROM "+tableFund+" ORDER BY code ASC", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list fund codes: %w", err)
	}

	codes := make([]string, 0)
	for _, row := range firstRows(results) {
		if row.Code != "" {
			codes = append(codes, row.Code)
		}
	}
	return codes, nil
}

var _ interfaces.FundStore = (*FundStore)(nil)
