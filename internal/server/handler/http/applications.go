package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/atinyakov/JobBoard/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ApplicationService submits and lists applications for a session.
type ApplicationService interface {
	Submit(ctx context.Context, sess service.Session, jobID int64, in service.ApplicationInput) (models.Application, error)
	Mine(ctx context.Context, sess service.Session) ([]models.Application, error)
}

// ApplicationHandler serves applying and "my applications".
type ApplicationHandler struct {
	Sessions     SessionRegistry
	Catalog      CatalogService
	Applications ApplicationService
	Log          *zap.Logger
}

// Submit applies the visitor to the job in the path. Anonymous visitors get
// 401 and their login prompt opened.
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	mgr, ok := manager(w, r, h.Sessions, h.Log)
	if !ok {
		return
	}
	if !mgr.State().Authenticated() {
		mgr.OpenLoginPrompt()
		writeError(w, h.Log, models.ErrLoginRequired)
		return
	}
	var in service.ApplicationInput
	if !decode(w, r, &in) {
		return
	}

	ident := chi.URLParam(r, "id")
	jobID, err := strconv.ParseInt(ident, 10, 64)
	if err != nil {
		// Document ids are resolved to the numeric id the backend relates by.
		job, err := h.Catalog.Detail(r.Context(), ident)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		jobID = job.ID
	}

	app, err := h.Applications.Submit(r.Context(), mgr, jobID, in)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// Mine lists the visitor's applications.
func (h *ApplicationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	mgr, ok := manager(w, r, h.Sessions, h.Log)
	if !ok {
		return
	}
	apps, err := h.Applications.Mine(r.Context(), mgr)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}
