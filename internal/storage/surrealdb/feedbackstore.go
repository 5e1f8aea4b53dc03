package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/interfaces"
	"github.com/bobmcallan/navwatch/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// feedbackSelectFields aliases feedback_id to id for struct mapping.
const feedbackSelectFields = "feedback_id as id, type, content, contact, created_at"

// FeedbackStore implements interfaces.FeedbackStore using SurrealDB.
type FeedbackStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewFeedbackStore creates a new FeedbackStore.
func NewFeedbackStore(db *surrealdb.DB, logger *common.Logger) *FeedbackStore {
	return &FeedbackStore{db: db, logger: logger}
}

func (s *FeedbackStore) Create(ctx context.Context, fb *models.Feedback) error {
	if fb.ID == "" {
		fb.ID = models.NewFeedbackID()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}

	sql := `UPSERT $rid SET
		feedback_id = $feedback_id, type = $type, content = $content,
		contact = $contact, created_at = $created_at`
	vars := map[string]any{
		"rid":         surrealmodels.NewRecordID(tableFeedback, fb.ID),
		"feedback_id": fb.ID,
		"type":        fb.Type,
		"content":     fb.Content,
		"contact":     fb.Contact,
		"created_at":  fb.CreatedAt,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

func (s *FeedbackStore) Get(ctx context.Context, id string) (*models.Feedback, error) {
	sql := "SELECT " + feedbackSelectFields + " FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID(tableFeedback, id),
	}

	results, err := surrealdb.Query[[]models.Feedback](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	rows := firstRows(results)
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *FeedbackStore) List(ctx context.Context, limit int) ([]*models.Feedback, error) {
	// feedback_id as tiebreaker for deterministic ordering when timestamps are equal
	sql := "SELECT " + feedbackSelectFields + " FROM " + tableFeedback + " ORDER BY created_at DESC, feedback_id DESC"
	vars := map[string]any{}
	if limit > 0 {
		sql += " LIMIT $limit"
		vars["limit"] = limit
	}

	results, err := surrealdb.Query[[]models.Feedback](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	return pointers(firstRows(results)), nil
}

func (s *FeedbackStore) Delete(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, s.db, "DELETE $rid", map[string]any{
		"rid": surrealmodels.NewRecordID(tableFeedback, id),
	})
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	return nil
}

var _ interfaces.FeedbackStore = (*FeedbackStore)(nil)
