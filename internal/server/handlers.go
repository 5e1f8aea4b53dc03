package server

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/models"
)

var fundCodePattern = regexp.MustCompile(`^\d{6}$`)

// valuationView is the client-facing shape of a FundSnapshot. Numbers are
// fixed-precision strings.
type valuationView struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	LastNAV    string `json:"last_nav"`
	LastDate   string `json:"last_date"`
	EstNAV     string `json:"est_nav"`
	EstRate    string `json:"est_rate"`
	UpdateTime string `json:"update_time"`
}

type historyView struct {
	TimeStr string `json:"time_str"`
	EstNAV  string `json:"est_nav"`
}

// fundCode reads and validates the code query parameter.
func fundCode(r *http.Request) (string, bool) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	return code, fundCodePattern.MatchString(code)
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.CurrentBuild())
}

// handleMonitors handles GET /api/monitors.
func (s *Server) handleMonitors(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteEnvelope(w, map[string]interface{}{
		"trading": s.valuation.IsTradingTime(),
		"codes":   s.valuation.ActiveCodes(),
	})
}

// handleValuation handles GET /api/valuation?code=.
// Invalid or unknown codes yield data:{}; upstream failures never change the code.
func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	code, ok := fundCode(r)
	if !ok {
		WriteEnvelope(w, struct{}{})
		return
	}

	snap, err := s.valuation.GetValuation(r.Context(), code)
	if err != nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("Valuation lookup failed")
	}
	if snap == nil {
		WriteEnvelope(w, struct{}{})
		return
	}

	WriteEnvelope(w, valuationView{
		Code:       code,
		Name:       snap.Name,
		LastNAV:    common.FormatNAV(snap.BaselineNAV),
		LastDate:   snap.BaselineDate,
		EstNAV:     common.FormatNAV(snap.EstimatedNAV),
		EstRate:    common.FormatRate(snap.EstimatedRate),
		UpdateTime: common.FormatExchangeTime(snap.UpdatedAt, s.location),
	})
}

// handleHistory handles GET /api/history?code=.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	views := []historyView{}
	code, ok := fundCode(r)
	if !ok {
		WriteEnvelope(w, views)
		return
	}

	points, err := s.valuation.GetHistory(r.Context(), code)
	if err != nil {
		s.logger.Warn().Err(err).Str("code", code).Msg("History lookup failed")
	}
	for _, p := range points {
		views = append(views, historyView{TimeStr: p.TimeStr, EstNAV: common.FormatNAV(p.EstimatedNAV)})
	}
	WriteEnvelope(w, views)
}

// handleHistoryChart handles GET /api/history/chart?code= and returns a PNG.
func (s *Server) handleHistoryChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	code, ok := fundCode(r)
	if !ok {
		WriteEnvelopeError(w, CodeBadRequest, "invalid fund code")
		return
	}

	png, err := s.valuation.HistoryChart(r.Context(), code)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientHistory) {
			WriteEnvelopeError(w, CodeNotFound, "not enough history points today")
			return
		}
		s.logger.Warn().Err(err).Str("code", code).Msg("History chart failed")
		WriteError(w, http.StatusInternalServerError, "chart rendering failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
