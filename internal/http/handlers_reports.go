package http

import (
	"net/http"
	"strconv"
	"time"

	"finledger/internal/core"
	"finledger/internal/ledger"
)

type statsResponse struct {
	Version       uint64        `json:"version"`
	Totals        ledger.Totals `json:"totals"`
	Stats         core.Stats    `json:"stats"`
	PercentageSum float64       `json:"percentageSum"`
}

type reportResponse struct {
	Period   string                `json:"period"`
	Version  uint64                `json:"version"`
	Stats    core.Stats            `json:"stats"`
	Partners []core.PartnerBalance `json:"partners"`
}

type duesResponse struct {
	From  core.Date      `json:"from"`
	Days  int            `json:"days"`
	Items []core.DueItem `json:"items"`
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var cfg core.FinancialConfig
	if err := decodeJSON(r, &cfg); err != nil {
		fail(w, r, "set_config", err)
		return
	}
	if err := s.svc.SetFinancialConfig(r.Context(), cfg); err != nil {
		fail(w, r, "set_config", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStats returns the lifetime statement with the running totals.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{
		Version:       s.svc.Version(),
		Totals:        s.svc.Totals(),
		Stats:         s.svc.FinancialStats(),
		PercentageSum: s.svc.PercentageSum(),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromQuery(r)
	if err != nil {
		fail(w, r, "report", err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		Period:   period.Label(),
		Version:  s.svc.Version(),
		Stats:    s.svc.ReportStats(period),
		Partners: s.svc.PartnerBalances(period),
	})
}

// handleDues lists fixed costs falling due within ?days= (default: the
// configured horizon).
func (s *Server) handleDues(w http.ResponseWriter, r *http.Request) {
	horizon := s.dueHorizon
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 || days > 366 {
			writeError(w, r, http.StatusBadRequest, "days must be between 0 and 366")
			return
		}
		horizon = time.Duration(days) * 24 * time.Hour
	}
	now := s.now()
	items := s.svc.Dues(now, horizon)
	if items == nil {
		items = []core.DueItem{}
	}
	writeJSON(w, http.StatusOK, duesResponse{
		From:  core.DateOf(now),
		Days:  int(horizon / (24 * time.Hour)),
		Items: items,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, "reset", err)
		return
	}
	if err := s.svc.Reset(r.Context(), req.Confirm); err != nil {
		fail(w, r, "reset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
