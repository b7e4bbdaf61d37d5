package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"finledger/internal/core"
	applog "finledger/internal/log"
)

func (s *Server) handleApplyTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := decodeJSON(r, &tx); err != nil {
		fail(w, r, applog.OpApply, err)
		return
	}
	res, err := s.svc.Apply(r.Context(), tx)
	if err != nil {
		fail(w, r, applog.OpApply, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleReverseTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tx, found, err := s.svc.Reverse(r.Context(), id)
	if err != nil {
		fail(w, r, applog.OpReverse, err)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "transaction not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// handleListTransactions returns the audit log, optionally filtered by the
// month and year query parameters.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromQuery(r)
	if err != nil {
		fail(w, r, "list_transactions", err)
		return
	}
	all := s.svc.Transactions()
	out := make([]core.Transaction, 0, len(all))
	for _, tx := range all {
		if period.Contains(tx.EffectiveDate()) {
			out = append(out, tx)
		}
	}
	writeJSON(w, http.StatusOK, out)
}
