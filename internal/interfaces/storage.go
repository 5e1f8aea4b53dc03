package interfaces

import (
	"context"

	"github.com/bobmcallan/navwatch/internal/models"
)

// StorageManager coordinates the storage areas
type StorageManager interface {
	FundStore() FundStore
	HistoryStore() HistoryStore
	FeedbackStore() FeedbackStore

	Close() error
}

// FundStore holds the current snapshot per fund code. Get returns (nil, nil) when absent.
type FundStore interface {
	GetFund(ctx context.Context, code string) (*models.FundSnapshot, error)
	// SaveEstimate writes the estimate fields, creating the row if needed.
	// Baseline fields of an existing row are left untouched.
	SaveEstimate(ctx context.Context, snap *models.FundSnapshot) error
	// SaveFund overwrites every field, used by calibration and bootstrap.
	SaveFund(ctx context.Context, snap *models.FundSnapshot) error
	ListCodes(ctx context.Context) ([]string, error)
}

// HistoryStore holds the append-only per-minute estimate series.
type HistoryStore interface {
	HistoryExists(ctx context.Context, code, date, minute string) (bool, error)
	AppendHistory(ctx context.Context, point *models.HistoryPoint) error
	// ListHistory returns points for code on date ordered by time ascending.
	ListHistory(ctx context.Context, code, date string) ([]*models.HistoryPoint, error)
}

// FeedbackStore manages client feedback entries.
type FeedbackStore interface {
	Create(ctx context.Context, fb *models.Feedback) error
	Get(ctx context.Context, id string) (*models.Feedback, error)
	// List returns entries newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]*models.Feedback, error)
	Delete(ctx context.Context, id string) error
}
