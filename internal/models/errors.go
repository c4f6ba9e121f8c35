package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinel errors. Check them with errors.Is; they are usually wrapped with
// request context.
var (
	// ErrNotFound means no record matched at all. A record that exists but
	// is incomplete is normalized to placeholders instead.
	ErrNotFound = errors.New("not found")

	// ErrMalformedResponse means a response arrived but could not be read
	// into any known shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrLoginRequired is returned by protected actions attempted without a
	// session token. The login prompt has already been opened when it is seen.
	ErrLoginRequired = errors.New("login required")
)

// Registration steps reported by RegistrationError.
const (
	StepRegister = "register"
	StepLogin    = "login"
)

// AuthenticationError is a failed login. Message is what the user sees.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string { return e.Message }
func (e *AuthenticationError) Unwrap() error { return e.Err }

// RegistrationError is a failed registration. Step tells whether the
// register call itself failed or the follow-up login did.
type RegistrationError struct {
	Step    string
	Message string
	Err     error
}

func (e *RegistrationError) Error() string { return e.Message }
func (e *RegistrationError) Unwrap() error { return e.Err }

// NetworkError is a failure before any HTTP response was obtained.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-success HTTP response from the content backend.
// Message holds the backend-supplied message, or a generic fallback.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// IsStatus reports whether err is, or wraps, an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// ValidationError is user input rejected before any request was made.
// Fields maps each offending field to a short reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, ", ")
}
