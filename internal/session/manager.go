// Package session owns the client-side authentication state: bearer token,
// current user and login-prompt visibility. State survives restarts through a
// storage.Store and is only changed by the Manager's operations.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/atinyakov/JobBoard/internal/client/storage"
	"github.com/atinyakov/JobBoard/internal/contentapi"
	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Fallback messages used when the backend does not supply one.
const (
	msgLoginFailed        = "Login failed"
	msgRegistrationFailed = "Registration failed"
)

// Authenticator is the part of the backend the Manager needs.
// *contentapi.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*contentapi.AuthResponse, error)
	Register(ctx context.Context, username, email, password string) (*contentapi.AuthResponse, error)
}

// State is a snapshot of the session.
type State struct {
	Token              string
	User               *models.User
	LoginPromptVisible bool
}

// Authenticated reports whether a token is held.
func (s State) Authenticated() bool { return s.Token != "" }

// Manager holds one session. Operations are serialized; State may be read
// at any time, including while a login is in flight.
type Manager struct {
	auth  Authenticator
	store storage.Store
	log   *zap.Logger

	// op serializes Login, Register and Logout, network call included.
	op sync.Mutex

	mu      sync.RWMutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

// New creates a Manager and rehydrates it from store. No network call is
// made. A stored user that cannot be decoded is dropped with a warning.
func New(auth Authenticator, store storage.Store, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{auth: auth, store: store, log: log, subs: map[int]func(State){}}

	token, _, err := store.Get(storage.KeyToken)
	if err != nil {
		return nil, errors.Wrap(err, "read stored token")
	}
	rawUser, ok, err := store.Get(storage.KeyUser)
	if err != nil {
		return nil, errors.Wrap(err, "read stored user")
	}
	m.state.Token = token
	if ok && rawUser != "" && rawUser != "null" {
		var u models.User
		if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
			log.Warn("ignoring unreadable stored user", zap.Error(err))
		} else {
			m.state.User = &u
		}
	}
	return m, nil
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot()
}

func (m *Manager) snapshot() State {
	s := m.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Subscribe registers fn to be called with the new state after every
// transition. The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(State)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// update applies fn to the state and notifies subscribers outside the lock.
func (m *Manager) update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	s := m.snapshot()
	subs := make([]func(State), 0, len(m.subs))
	for _, f := range m.subs {
		subs = append(subs, f)
	}
	m.mu.Unlock()

	for _, f := range subs {
		f(s)
	}
}

// Login authenticates with the backend. On success token and user are
// stored, persisted and the login prompt is hidden. On failure the state is
// unchanged and the error is an *models.AuthenticationError, or a
// *models.NetworkError when the backend could not be reached.
func (m *Manager) Login(ctx context.Context, identifier, password string) error {
	m.op.Lock()
	defer m.op.Unlock()
	return m.login(ctx, identifier, password)
}

func (m *Manager) login(ctx context.Context, identifier, password string) error {
	resp, err := m.auth.Login(ctx, identifier, password)
	if err != nil {
		return authFailure(err)
	}
	if resp.Message != "" || resp.JWT == "" {
		msg := resp.Message
		if msg == "" {
			msg = msgLoginFailed
		}
		return &models.AuthenticationError{Message: msg}
	}
	if err := m.establish(resp.JWT, resp.User); err != nil {
		return err
	}
	m.log.Info("logged in", zap.Int64("user_id", userID(resp.User)))
	return nil
}

func authFailure(err error) error {
	var netErr *models.NetworkError
	if errors.As(err, &netErr) {
		return err
	}
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		return &models.AuthenticationError{Message: apiErr.Message, Err: err}
	}
	return &models.AuthenticationError{Message: msgLoginFailed, Err: err}
}

// Register creates an account. When the registration response carries a
// token it is used directly; otherwise Register logs in with email and
// password. Failures are *models.RegistrationError, with Step telling which
// of the two calls failed.
func (m *Manager) Register(ctx context.Context, username, email, password string) error {
	m.op.Lock()
	defer m.op.Unlock()

	resp, err := m.auth.Register(ctx, username, email, password)
	if err != nil {
		msg := msgRegistrationFailed
		var apiErr *models.APIError
		var netErr *models.NetworkError
		switch {
		case errors.As(err, &apiErr):
			msg = apiErr.Message
		case errors.As(err, &netErr):
			msg = netErr.Error()
		}
		return &models.RegistrationError{Step: models.StepRegister, Message: msg, Err: err}
	}

	if resp.JWT != "" {
		if err := m.establish(resp.JWT, resp.User); err != nil {
			return err
		}
		m.log.Info("registered", zap.Int64("user_id", userID(resp.User)))
		return nil
	}

	m.log.Debug("registration returned no token, logging in")
	if err := m.login(ctx, email, password); err != nil {
		return &models.RegistrationError{Step: models.StepLogin, Message: err.Error(), Err: err}
	}
	return nil
}

// establish persists token and user in one write, then publishes them.
// A nil user removes any stored user.
func (m *Manager) establish(token string, user *models.User) error {
	values := map[string]string{storage.KeyToken: token}
	if user != nil {
		b, err := json.Marshal(user)
		if err != nil {
			return errors.Wrap(err, "encode user")
		}
		values[storage.KeyUser] = string(b)
	}
	if err := m.store.Put(values); err != nil {
		return errors.Wrap(err, "persist session")
	}
	if user == nil {
		if err := m.store.Delete(storage.KeyUser); err != nil {
			return errors.Wrap(err, "persist session")
		}
	}

	m.update(func(s *State) {
		s.Token = token
		s.User = user
		s.LoginPromptVisible = false
	})
	return nil
}

// Logout drops token and user. The in-memory session is cleared even when
// the storage write fails; that error is still returned.
func (m *Manager) Logout() error {
	m.op.Lock()
	defer m.op.Unlock()

	err := m.store.Delete(storage.KeyToken, storage.KeyUser)
	m.update(func(s *State) {
		s.Token = ""
		s.User = nil
	})
	if err != nil {
		return errors.Wrap(err, "clear stored session")
	}
	m.log.Info("logged out")
	return nil
}

// OpenLoginPrompt shows the login prompt.
func (m *Manager) OpenLoginPrompt() {
	m.update(func(s *State) { s.LoginPromptVisible = true })
}

// CloseLoginPrompt hides the login prompt.
func (m *Manager) CloseLoginPrompt() {
	m.update(func(s *State) { s.LoginPromptVisible = false })
}

// TokenExpiry returns the exp claim of the token when it is a JWT that has
// one. The signature is not checked; the backend owns the key.
func (m *Manager) TokenExpiry() (time.Time, bool) {
	token := m.State().Token
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func userID(u *models.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
