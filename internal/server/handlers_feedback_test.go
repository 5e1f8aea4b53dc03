package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/navwatch/internal/models"
)

func TestFeedbackSubmit(t *testing.T) {
	env := newTestEnv(t, time.Date(2026, 10, 12, 20, 0, 0, 0, cst))

	rec := env.do(http.MethodPost, "/api/feedback", `{"type":2,"content":"  estimate lags after 14:00 ","contact":"wx:abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	e := decodeEnvelope(t, rec.Body.Bytes())
	assert.Equal(t, 200, e.Code)

	var data map[string]string
	require.NoError(t, json.Unmarshal(e.Data, &data))
	assert.Regexp(t, `^fb_[0-9a-f]{8}$`, data["id"])

	stored, err := env.store.FeedbackStore().Get(context.Background(), data["id"])
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 2, stored.Type)
	assert.Equal(t, "estimate lags after 14:00", stored.Content)
	assert.Equal(t, "wx:abc", stored.Contact)
}

func TestFeedbackSubmit_Rejections(t *testing.T) {
	env := newTestEnv(t, time.Date(2026, 10, 12, 20, 0, 0, 0, cst))

	tests := []struct {
		name string
		body string
	}{
		{"missing content", `{"type":1}`},
		{"blank content", `{"type":1,"content":"   "}`},
		{"invalid json", `{"type":1,"content":`},
		{"wrong type", `{"type":"bug","content":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/feedback", tt.body)
			assert.Equal(t, http.StatusOK, rec.Code)
			e := decodeEnvelope(t, rec.Body.Bytes())
			assert.Equal(t, 400, e.Code)
			assert.NotEmpty(t, e.Msg)
		})
	}

	items, err := env.store.FeedbackStore().List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAdminFeedbackList_NewestFirst(t *testing.T) {
	env := newTestEnv(t, time.Date(2026, 10, 12, 20, 0, 0, 0, cst))
	ctx := context.Background()
	base := time.Date(2026, 10, 12, 9, 0, 0, 0, cst)
	for i, id := range []string{"fb_00000001", "fb_00000002", "fb_00000003"} {
		require.NoError(t, env.store.FeedbackStore().Create(ctx, &models.Feedback{
			ID: id, Type: 1, Content: "note " + id, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	e := decodeEnvelope(t, env.do(http.MethodGet, "/api/admin/feedbacks", "").Body.Bytes())
	assert.Equal(t, 200, e.Code)
	var items []models.Feedback
	require.NoError(t, json.Unmarshal(e.Data, &items))
	require.Len(t, items, 3)
	assert.Equal(t, "fb_00000003", items[0].ID)
	assert.Equal(t, "fb_00000001", items[2].ID)

	e = decodeEnvelope(t, env.do(http.MethodGet, "/api/admin/feedbacks?limit=1", "").Body.Bytes())
	require.NoError(t, json.Unmarshal(e.Data, &items))
	assert.Len(t, items, 1)
}

func TestAdminFeedbackList_Empty(t *testing.T) {
	env := newTestEnv(t, time.Date(2026, 10, 12, 20, 0, 0, 0, cst))
	e := decodeEnvelope(t, env.do(http.MethodGet, "/api/admin/feedbacks", "").Body.Bytes())
	assert.Equal(t, 200, e.Code)
	assert.JSONEq(t, `[]`, string(e.Data))
}

func TestAdminFeedbackDelete(t *testing.T) {
	env := newTestEnv(t, time.Date(2026, 10, 12, 20, 0, 0, 0, cst))
	ctx := context.Background()
	require.NoError(t, env.store.FeedbackStore().Create(ctx, &models.Feedback{ID: "fb_deadbeef", Content: "x", CreatedAt: time.Now()}))

	e := decodeEnvelope(t, env.do(http.MethodDelete, "/api/admin/feedbacks/fb_deadbeef", "").Body.Bytes())
	assert.Equal(t, 200, e.Code)

	got, err := env.store.FeedbackStore().Get(ctx, "fb_deadbeef")
	require.NoError(t, err)
	assert.Nil(t, got)

	e = decodeEnvelope(t, env.do(http.MethodDelete, "/api/admin/feedbacks/fb_deadbeef", "").Body.Bytes())
	assert.Equal(t, 404, e.Code)
}
