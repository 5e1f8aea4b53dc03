package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/interfaces"
	"github.com/surrealdb/surrealdb.go"
)

// Table names.
const (
	tableFund     = "fund"
	tableHistory  = "fund_history"
	tableFeedback = "feedback"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	fundStore     *FundStore
	historyStore  *HistoryStore
	feedbackStore *FeedbackStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(ctx context.Context, logger *common.Logger, config *common.Config) (*Manager, error) {
	// Connect to SurrealDB
	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	// Sign in
	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	// Select namespace and database
	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	if err := defineTables(ctx, db); err != nil {
		db.Close(ctx)
		return nil, err
	}

	m := newManager(db, logger)

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

func newManager(db *surrealdb.DB, logger *common.Logger) *Manager {
	return &Manager{
		db:            db,
		logger:        logger,
		fundStore:     NewFundStore(db, logger),
		historyStore:  NewHistoryStore(db, logger),
		feedbackStore: NewFeedbackStore(db, logger),
	}
}

// defineTables makes sure every table exists; SurrealDB v3 errors on
// querying tables that were never defined.
func defineTables(ctx context.Context, db *surrealdb.DB) error {
	stmts := []string{
		"DEFINE TABLE IF NOT EXISTS " + tableFund + " SCHEMALESS",
		"DEFINE TABLE IF NOT EXISTS " + tableHistory + " SCHEMALESS",
		"DEFINE INDEX IF NOT EXISTS history_code_date ON " + tableHistory + " FIELDS code, date_str",
		"DEFINE TABLE IF NOT EXISTS " + tableFeedback + " SCHEMALESS",
	}
	for _, sql := range stmts {
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return fmt.Errorf("failed to run %q: %w", sql, err)
		}
	}
	return nil
}

func (m *Manager) FundStore() interfaces.FundStore {
	return m.fundStore
}

func (m *Manager) HistoryStore() interfaces.HistoryStore {
	return m.historyStore
}

func (m *Manager) FeedbackStore() interfaces.FeedbackStore {
	return m.feedbackStore
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// firstRows returns the rows of the first statement in a query response.
func firstRows[T any](results *[]surrealdb.QueryResult[[]T]) []T {
	if results == nil || len(*results) == 0 {
		return nil
	}
	return (*results)[0].Result
}

func pointers[T any](rows []T) []*T {
	out := make([]*T, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out
}

// isNotFoundError reports whether err is SurrealDB's missing-record error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
