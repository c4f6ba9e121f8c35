package http

import (
	"encoding/json"
	"net/http"

	"github.com/atinyakov/JobBoard/internal/middleware"
	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/atinyakov/JobBoard/internal/session"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// SessionRegistry hands out the session of a visitor.
type SessionRegistry interface {
	Get(visitorID string) (*session.Manager, error)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string            `json:"error"`
	Step   string            `json:"step,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and JSON error body.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		validationErr *models.ValidationError
		regErr        *models.RegistrationError
		authErr       *models.AuthenticationError
		netErr        *models.NetworkError
		apiErr        *models.APIError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: validationErr.Error(), Fields: validationErr.Fields})
	case errors.As(err, &regErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: regErr.Message, Step: regErr.Step})
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: authErr.Message})
	case errors.Is(err, models.ErrLoginRequired):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login required"})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.As(err, &netErr):
		log.Warn("backend unreachable", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "content backend unavailable"})
	case errors.As(err, &apiErr):
		status := http.StatusBadGateway
		if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
			status = apiErr.Status
		}
		log.Warn("backend error", zap.Int("backend_status", apiErr.Status), zap.Error(err))
		writeJSON(w, status, errorBody{Error: apiErr.Message})
	default:
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// manager returns the session of the requesting visitor, writing an error
// response when there is none.
func manager(w http.ResponseWriter, r *http.Request, sessions SessionRegistry, log *zap.Logger) (*session.Manager, bool) {
	id := middleware.GetVisitorIDFromContext(r.Context())
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing visitor id"})
		return nil, false
	}
	mgr, err := sessions.Get(id)
	if err != nil {
		writeError(w, log, err)
		return nil, false
	}
	return mgr, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid body"})
		return false
	}
	return true
}
