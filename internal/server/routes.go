package server

import (
	"net/http"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/monitors", s.handleMonitors)

	// Valuation
	mux.HandleFunc("/api/valuation", s.handleValuation)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history/chart", s.handleHistoryChart)
	if s.stream != nil {
		mux.HandleFunc("/api/stream", s.stream)
	}

	// Feedback
	mux.HandleFunc("/api/feedback", s.handleFeedbackSubmit)
	mux.HandleFunc("/api/admin/feedbacks", s.handleAdminFeedbackList)
	mux.HandleFunc("/api/admin/feedbacks/", s.handleAdminFeedbackDelete)
}
