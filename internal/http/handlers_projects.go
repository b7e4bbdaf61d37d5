package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"finledger/internal/core"
	"finledger/internal/ledger"
	applog "finledger/internal/log"
)

type statusRequest struct {
	Status string `json:"status"`
}

type paymentRequest struct {
	Amount core.Money `json:"amount"`
	Date   core.Date  `json:"date"`
	Note   string     `json:"note"`
}

// projectView adds the derived payment figures to a project.
type projectView struct {
	core.Project
	Paid        core.Money `json:"paid"`
	Outstanding core.Money `json:"outstanding"`
}

func viewOf(p core.Project) projectView {
	return projectView{Project: p, Paid: p.Paid(), Outstanding: p.Outstanding()}
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects := s.svc.Projects()
	out := make([]projectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, viewOf(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in ledger.ProjectInput
	if err := decodeJSON(r, &in); err != nil {
		fail(w, r, "create_project", err)
		return
	}
	p, err := s.svc.CreateProject(r.Context(), in)
	if err != nil {
		fail(w, r, "create_project", err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(p))
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var u ledger.ProjectUpdate
	if err := decodeJSON(r, &u); err != nil {
		fail(w, r, "update_project", err)
		return
	}
	p, err := s.svc.UpdateProject(r.Context(), chi.URLParam(r, "id"), u)
	if err != nil {
		fail(w, r, "update_project", err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(p))
}

func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, "change_status", err)
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "status is required")
		return
	}
	if err := s.svc.ChangeStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		fail(w, r, "change_status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, applog.OpApply, err)
		return
	}
	res, err := s.svc.RecordPayment(r.Context(), chi.URLParam(r, "id"), req.Amount, req.Date, req.Note)
	if err != nil {
		fail(w, r, applog.OpApply, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, "delete_project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
