package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

const visitorKey ctxKey = "visitor"

// VisitorCookie is the cookie that identifies a browser to the gateway.
const VisitorCookie = "jobboard_visitor"

const visitorCookieMaxAge = 365 * 24 * time.Hour

// Visitor makes sure every request carries a visitor id. A missing or
// malformed cookie is replaced by a fresh random id, which is set on the
// response. The id is stored in the request context.
func Visitor(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(VisitorCookie); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     VisitorCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(visitorCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := context.WithValue(r.Context(), visitorKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetVisitorIDFromContext returns the visitor id stored by Visitor, or an
// empty string.
func GetVisitorIDFromContext(ctx context.Context) string {
	val := ctx.Value(visitorKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// WithVisitorID returns ctx carrying id, as Visitor would.
func WithVisitorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, visitorKey, id)
}
