package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/navwatch/internal/models"
)

// handleFeedbackSubmit handles POST /api/feedback.
func (s *Server) handleFeedbackSubmit(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var body struct {
		Type    int    `json:"type"`
		Content string `json:"content"`
		Contact string `json:"contact"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}

	fb := &models.Feedback{
		ID:        models.NewFeedbackID(),
		Type:      body.Type,
		Content:   body.Content,
		Contact:   body.Contact,
		CreatedAt: time.Now(),
	}
	if err := fb.Validate(); err != nil {
		WriteEnvelopeError(w, CodeBadRequest, "无内容")
		return
	}

	if err := s.feedback.Create(r.Context(), fb); err != nil {
		s.logger.Error().Err(err).Msg("Failed to store feedback")
		WriteError(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}

	s.logger.Info().Str("id", fb.ID).Int("type", fb.Type).Msg("Feedback received")
	WriteJSON(w, http.StatusOK, Envelope{Code: CodeOK, Data: map[string]string{"id": fb.ID}})
}

// handleAdminFeedbackList handles GET /api/admin/feedbacks[?limit=n], newest first.
func (s *Server) handleAdminFeedbackList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	items, err := s.feedback.List(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list feedback")
		WriteError(w, http.StatusInternalServerError, "failed to list feedback")
		return
	}
	if items == nil {
		items = []*models.Feedback{}
	}
	WriteEnvelope(w, items)
}

// handleAdminFeedbackDelete handles DELETE /api/admin/feedbacks/{id}.
func (s *Server) handleAdminFeedbackDelete(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/admin/feedbacks/")
	if id == "" || strings.Contains(id, "/") {
		WriteEnvelopeError(w, CodeBadRequest, "feedback id is required")
		return
	}

	existing, err := s.feedback.Get(r.Context(), id)
	if err != nil {
		s.logger.Error().Err(err).Str("id", id).Msg("Failed to load feedback")
		WriteError(w, http.StatusInternalServerError, "failed to load feedback")
		return
	}
	if existing == nil {
		WriteEnvelopeError(w, CodeNotFound, "feedback not found")
		return
	}

	if err := s.feedback.Delete(r.Context(), id); err != nil {
		s.logger.Error().Err(err).Str("id", id).Msg("Failed to delete feedback")
		WriteError(w, http.StatusInternalServerError, "failed to delete feedback")
		return
	}
	WriteEnvelope(w, map[string]string{"id": id})
}
