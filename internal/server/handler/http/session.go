// Package http provides the JSON handlers and routing of the web gateway.
// The gateway keeps a session per visitor and never hands the bearer token
// to the browser.
package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/atinyakov/JobBoard/internal/session"
	"go.uber.org/zap"
)

// SessionHandler serves the visitor's session: state, login, registration,
// logout and the login prompt flag.
type SessionHandler struct {
	Sessions SessionRegistry
	Log      *zap.Logger
}

// SessionView is the browser-facing session state.
type SessionView struct {
	Authenticated      bool         `json:"authenticated"`
	User               *models.User `json:"user"`
	LoginPromptVisible bool         `json:"loginPromptVisible"`
	ExpiresAt          *time.Time   `json:"expiresAt,omitempty"`
}

func viewOf(m *session.Manager) SessionView {
	st := m.State()
	v := SessionView{
		Authenticated:      st.Authenticated(),
		User:               st.User,
		LoginPromptVisible: st.LoginPromptVisible,
	}
	if exp, ok := m.TokenExpiry(); ok {
		exp = exp.UTC()
		v.ExpiresAt = &exp
	}
	return v
}

// LoginRequest is the body of POST /api/session/login.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RegisterRequest is the body of POST /api/session/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PromptRequest is the body of POST /api/session/prompt.
type PromptRequest struct {
	Visible bool `json:"visible"`
}

// Get returns the session view.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	mgr, ok := manager(w, r, h.Sessions, h.Log)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(mgr))
}

// Login authenticates the visitor against the backend.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "identifier and password are required"})
		return
	}
	mgr, ok := manager(w, r, h.Sessions, h.Log)
	if !ok {
		return
	}
	if err := mgr.Login(r.Context(), strings.TrimSpace(req.Identifier), req.Password); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(mgr))
}

// Register creates an account and signs the visitor in.
func (h *SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "username, email and password are required", Step: models.StepRegister})
		return
	}
	mgr, ok := manager(w, r, h.Sessions, h.Log)
	if !ok {
		return
	}
	err := mgr.Register(r.Context(), strings.TrimSpace(req.Username), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(mgr))
}

// Logout signs the visitor out.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	mgr, ok := manager(w, r, h.Sessions, h.Log)
	if !ok {
		return
	}
	if err := mgr.Logout(); err != nil {
		// The in-memory session is already cleared.
		h.Log.Error("failed to clear stored session", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, viewOf(mgr))
}

// Prompt shows or hides the login prompt.
func (h *SessionHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decode(w, r, &req) {
		return
	}
	mgr, ok := manager(w, r, h.Sessions, h.Log)
	if !ok {
		return
	}
	if req.Visible {
		mgr.OpenLoginPrompt()
	} else {
		mgr.CloseLoginPrompt()
	}
	writeJSON(w, http.StatusOK, viewOf(mgr))
}
