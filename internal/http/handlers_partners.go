package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"finledger/internal/core"
)

type partnerRequest struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

type percentageRequest struct {
	Percentage float64 `json:"percentage"`
}

type withdrawalRequest struct {
	Amount core.Money `json:"amount"`
	Date   core.Date  `json:"date"`
}

// percentageResponse carries the new total; it is reported, not enforced.
type percentageResponse struct {
	PercentageSum float64 `json:"percentageSum"`
}

func (s *Server) handleListPartners(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Partners())
}

func (s *Server) handleAddPartner(w http.ResponseWriter, r *http.Request) {
	var req partnerRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, "add_partner", err)
		return
	}
	p, err := s.svc.AddPartner(r.Context(), req.Name, req.Percentage)
	if err != nil {
		fail(w, r, "add_partner", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleRemovePartner(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemovePartner(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, "remove_partner", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPercentage(w http.ResponseWriter, r *http.Request) {
	var req percentageRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, "set_partner_percentage", err)
		return
	}
	if err := s.svc.SetPartnerPercentage(r.Context(), chi.URLParam(r, "id"), req.Percentage); err != nil {
		fail(w, r, "set_partner_percentage", err)
		return
	}
	writeJSON(w, http.StatusOK, percentageResponse{PercentageSum: s.svc.PercentageSum()})
}

func (s *Server) handleAddWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req withdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, "add_withdrawal", err)
		return
	}
	tx, err := s.svc.AddWithdrawal(r.Context(), chi.URLParam(r, "id"), req.Amount, req.Date)
	if err != nil {
		fail(w, r, "add_withdrawal", err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handlePartnerBalances(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromQuery(r)
	if err != nil {
		fail(w, r, "partner_balances", err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.PartnerBalances(period))
}
