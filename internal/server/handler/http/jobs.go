package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CatalogService lists and looks up jobs.
type CatalogService interface {
	List(ctx context.Context, f models.Filters) ([]models.Job, error)
	Detail(ctx context.Context, ident string) (models.Job, error)
	FilterOptions(ctx context.Context) (models.FilterOptions, error)
}

// JobHandler serves the job catalog.
type JobHandler struct {
	Catalog CatalogService
	Log     *zap.Logger
}

// List returns jobs filtered by the q, level, location and field query
// parameters.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jobs, err := h.Catalog.List(r.Context(), models.Filters{
		Query:    q.Get("q"),
		Level:    q.Get("level"),
		Location: q.Get("location"),
		Field:    q.Get("field"),
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// Detail returns one job by numeric id or document id.
func (h *JobHandler) Detail(w http.ResponseWriter, r *http.Request) {
	job, err := h.Catalog.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Filters returns the level, location and field names.
func (h *JobHandler) Filters(w http.ResponseWriter, r *http.Request) {
	opts, err := h.Catalog.FilterOptions(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}
