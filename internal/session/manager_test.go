package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/JobBoard/internal/client/storage"
	"github.com/atinyakov/JobBoard/internal/contentapi"
	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op     string
	first  string
	second string
}

// fakeAuth scripts backend answers and records calls.
type fakeAuth struct {
	mu        sync.Mutex
	calls     []call
	loginResp *contentapi.AuthResponse
	loginErr  error
	regResp   *contentapi.AuthResponse
	regErr    error
}

func (f *fakeAuth) Login(_ context.Context, identifier, password string) (*contentapi.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{"login", identifier, password})
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Register(_ context.Context, username, email, _ string) (*contentapi.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{"register", username, email})
	return f.regResp, f.regErr
}

// memStore is an in-memory storage.Store with optional write failures.
type memStore struct {
	values  map[string]string
	failPut error
	failDel error
}

func newMemStore() *memStore { return &memStore{values: map[string]string{}} }

func (s *memStore) Get(key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memStore) Put(values map[string]string) error {
	if s.failPut != nil {
		return s.failPut
	}
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

func (s *memStore) Delete(keys ...string) error {
	if s.failDel != nil {
		return s.failDel
	}
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

var ann = &models.User{ID: 1, Username: "ann", Email: "ann@x.com"}

func newManager(t *testing.T, auth Authenticator, store storage.Store) *Manager {
	t.Helper()
	m, err := New(auth, store, nil)
	require.NoError(t, err)
	return m
}

func TestLoginLogoutRoundTrip(t *testing.T) {
	auth := &fakeAuth{loginResp: &contentapi.AuthResponse{JWT: "T1", User: ann}}
	store := newMemStore()
	m := newManager(t, auth, store)

	before := m.State()
	require.False(t, before.Authenticated())

	m.OpenLoginPrompt()
	require.NoError(t, m.Login(context.Background(), "ann@x.com", "pw"))

	s := m.State()
	assert.True(t, s.Authenticated())
	assert.Equal(t, "T1", s.Token)
	assert.Equal(t, ann, s.User)
	assert.False(t, s.LoginPromptVisible, "successful login hides the prompt")
	assert.Equal(t, "T1", store.values[storage.KeyToken])
	assert.JSONEq(t, `{"id":1,"username":"ann","email":"ann@x.com"}`, store.values[storage.KeyUser])

	require.NoError(t, m.Logout())
	assert.Equal(t, before, m.State())
	assert.Empty(t, store.values)
}

func TestLogin_FailureLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		resp    *contentapi.AuthResponse
		err     error
		wantMsg string
	}{
		{name: "backend message", err: &models.APIError{Status: 400, Message: "Invalid identifier or password"}, wantMsg: "Invalid identifier or password"},
		{name: "success body without token", resp: &contentapi.AuthResponse{User: ann}, wantMsg: "Login failed"},
		{name: "success body with error", resp: &contentapi.AuthResponse{JWT: "T", Message: "Your account is blocked"}, wantMsg: "Your account is blocked"},
		{name: "malformed body", err: errors.Wrap(models.ErrMalformedResponse, "decode"), wantMsg: "Login failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			m := newManager(t, &fakeAuth{loginResp: tt.resp, loginErr: tt.err}, store)
			m.OpenLoginPrompt()
			before := m.State()

			err := m.Login(context.Background(), "ann", "bad")

			var authErr *models.AuthenticationError
			require.True(t, errors.As(err, &authErr), "got %T %v", err, err)
			assert.Equal(t, tt.wantMsg, authErr.Message)
			assert.Equal(t, before, m.State())
			assert.Empty(t, store.values)
		})
	}
}

func TestLogin_NetworkError(t *testing.T) {
	netErr := &models.NetworkError{Op: "POST /api/auth/local", Err: errors.New("connection refused")}
	m := newManager(t, &fakeAuth{loginErr: netErr}, newMemStore())

	err := m.Login(context.Background(), "ann", "pw")

	var got *models.NetworkError
	assert.True(t, errors.As(err, &got))
	assert.False(t, m.State().Authenticated())
}

func TestLogin_StorageFailureKeepsState(t *testing.T) {
	store := newMemStore()
	store.failPut = errors.New("disk full")
	m := newManager(t, &fakeAuth{loginResp: &contentapi.AuthResponse{JWT: "T1", User: ann}}, store)

	err := m.Login(context.Background(), "ann", "pw")
	require.Error(t, err)
	assert.False(t, m.State().Authenticated())
}

func TestRegister_WithToken(t *testing.T) {
	auth := &fakeAuth{regResp: &contentapi.AuthResponse{JWT: "T2", User: ann}}
	store := newMemStore()
	m := newManager(t, auth, store)

	require.NoError(t, m.Register(context.Background(), "ann", "ann@x.com", "pw"))

	assert.Equal(t, "T2", m.State().Token)
	assert.Equal(t, "T2", store.values[storage.KeyToken])
	assert.Equal(t, []call{{"register", "ann", "ann@x.com"}}, auth.calls)
}

func TestRegister_WithoutTokenLogsIn(t *testing.T) {
	auth := &fakeAuth{
		regResp:   &contentapi.AuthResponse{User: ann},
		loginResp: &contentapi.AuthResponse{JWT: "T3", User: ann},
	}
	store := newMemStore()
	m := newManager(t, auth, store)

	require.NoError(t, m.Register(context.Background(), "ann", "ann@x.com", "pw"))

	assert.Equal(t, []call{{"register", "ann", "ann@x.com"}, {"login", "ann@x.com", "pw"}}, auth.calls)
	assert.Equal(t, "T3", m.State().Token)
	assert.Equal(t, "T3", store.values[storage.KeyToken])
}

func TestRegister_FallbackLoginFails(t *testing.T) {
	auth := &fakeAuth{
		regResp:  &contentapi.AuthResponse{},
		loginErr: &models.APIError{Status: 400, Message: "Invalid credentials"},
	}
	store := newMemStore()
	m := newManager(t, auth, store)

	err := m.Register(context.Background(), "ann", "ann@x.com", "pw")

	var regErr *models.RegistrationError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, models.StepLogin, regErr.Step)
	assert.Equal(t, "Invalid credentials", regErr.Error())

	var authErr *models.AuthenticationError
	assert.True(t, errors.As(err, &authErr), "registration error unwraps to the login failure")

	assert.False(t, m.State().Authenticated())
	assert.Empty(t, store.values)
}

func TestRegister_RegisterStepFails(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "backend message", err: &models.APIError{Status: 400, Message: "Email already taken"}, want: "Email already taken"},
		{name: "other error", err: errors.New("boom"), want: "Registration failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{regErr: tt.err}
			m := newManager(t, auth, newMemStore())

			err := m.Register(context.Background(), "ann", "ann@x.com", "pw")

			var regErr *models.RegistrationError
			require.True(t, errors.As(err, &regErr))
			assert.Equal(t, models.StepRegister, regErr.Step)
			assert.Equal(t, tt.want, regErr.Message)
			assert.Len(t, auth.calls, 1, "no login after a failed registration")
		})
	}
}

func TestNew_RehydratesWithoutNetwork(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	fs, err := storage.Open(path)
	require.NoError(t, err)

	m := newManager(t, &fakeAuth{loginResp: &contentapi.AuthResponse{JWT: "T1", User: ann}}, fs)
	require.NoError(t, m.Login(context.Background(), "ann", "pw"))

	reopened, err := storage.Open(path)
	require.NoError(t, err)
	auth := &fakeAuth{}
	restored := newManager(t, auth, reopened)

	assert.Empty(t, auth.calls)
	assert.Equal(t, "T1", restored.State().Token)
	assert.Equal(t, ann, restored.State().User)
	assert.False(t, restored.State().LoginPromptVisible)
}

func TestNew_TokenWithoutUser(t *testing.T) {
	store := newMemStore()
	store.values[storage.KeyToken] = "T"
	store.values[storage.KeyUser] = "{not json"

	m := newManager(t, &fakeAuth{}, store)
	assert.True(t, m.State().Authenticated())
	assert.Nil(t, m.State().User)
}

func TestLogin_NilUserClearsStoredUser(t *testing.T) {
	store := newMemStore()
	store.values[storage.KeyUser] = `{"id":9}`
	m := newManager(t, &fakeAuth{loginResp: &contentapi.AuthResponse{JWT: "T"}}, store)

	require.NoError(t, m.Login(context.Background(), "x", "y"))
	assert.Nil(t, m.State().User)
	_, ok := store.values[storage.KeyUser]
	assert.False(t, ok)
}

func TestLogout_StorageFailureStillClears(t *testing.T) {
	store := newMemStore()
	store.values[storage.KeyToken] = "T"
	store.failDel = errors.New("read-only")
	m := newManager(t, &fakeAuth{}, store)

	assert.Error(t, m.Logout())
	assert.False(t, m.State().Authenticated())
}

func TestPromptToggles(t *testing.T) {
	m := newManager(t, &fakeAuth{}, newMemStore())

	m.OpenLoginPrompt()
	assert.True(t, m.State().LoginPromptVisible)
	m.CloseLoginPrompt()
	assert.False(t, m.State().LoginPromptVisible)
}

func TestSubscribe(t *testing.T) {
	m := newManager(t, &fakeAuth{loginResp: &contentapi.AuthResponse{JWT: "T", User: ann}}, newMemStore())

	var seen []State
	cancel := m.Subscribe(func(s State) { seen = append(seen, s) })

	m.OpenLoginPrompt()
	require.NoError(t, m.Login(context.Background(), "ann", "pw"))
	cancel()
	m.CloseLoginPrompt()

	require.Len(t, seen, 2)
	assert.True(t, seen[0].LoginPromptVisible)
	assert.True(t, seen[1].Authenticated())
	assert.False(t, seen[1].LoginPromptVisible)
}

func TestStateIsACopy(t *testing.T) {
	m := newManager(t, &fakeAuth{loginResp: &contentapi.AuthResponse{JWT: "T", User: &models.User{ID: 1, Username: "ann"}}}, newMemStore())
	require.NoError(t, m.Login(context.Background(), "ann", "pw"))

	s := m.State()
	s.User.Username = "mallory"
	assert.Equal(t, "ann", m.State().User.Username)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": 1, "exp": exp.Unix()}).
		SignedString([]byte("backend-secret"))
	require.NoError(t, err)

	m := newManager(t, &fakeAuth{loginResp: &contentapi.AuthResponse{JWT: signed, User: ann}}, newMemStore())
	_, ok := m.TokenExpiry()
	assert.False(t, ok, "anonymous session has no expiry")

	require.NoError(t, m.Login(context.Background(), "ann", "pw"))
	got, ok := m.TokenExpiry()
	require.True(t, ok)
	assert.True(t, exp.Equal(got))
}

func TestTokenExpiry_OpaqueToken(t *testing.T) {
	store := newMemStore()
	store.values[storage.KeyToken] = "opaque"
	m := newManager(t, &fakeAuth{}, store)

	_, ok := m.TokenExpiry()
	assert.False(t, ok)
}
