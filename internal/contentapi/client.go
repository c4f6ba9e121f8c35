// Package contentapi talks to the content backend that owns jobs,
// applications, filter entities and user accounts. It returns raw payloads;
// callers normalize them.
package contentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/JobBoard/internal/models"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is used when no backend URL is configured.
	DefaultBaseURL = "http://localhost:1337"

	defaultTimeout = 10 * time.Second
	maxBodySize    = 8 << 20
)

// Relations populated on job and application fetches.
var (
	jobPopulate         = []string{"location", "level", "field", "Logo"}
	applicationPopulate = []string{"job", "job.location", "job.level", "job.field", "job.Logo"}
)

// Facet kinds served by the backend as separate collections.
const (
	FacetLevels    = "levels"
	FacetLocations = "locations"
	FacetFields    = "fields"
)

// Config holds client settings.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client // nil = plain client with Timeout
	Timeout    time.Duration
	RateLimit  float64 // requests per second; 0 = unlimited
	Logger     *zap.Logger
}

// Client is a backend API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a client from cfg, filling defaults.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{baseURL: base, httpClient: hc, logger: logger}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// AuthResponse is the body of a login or registration response.
type AuthResponse struct {
	JWT  string       `json:"jwt"`
	User *models.User `json:"user"`
	// Message is set when a success response still reports an error.
	Message string `json:"-"`
}

// Login posts credentials to /api/auth/local. Non-2xx answers are returned
// as *models.APIError with the backend message or "Login failed".
func (c *Client) Login(ctx context.Context, identifier, password string) (*AuthResponse, error) {
	body := map[string]string{"identifier": identifier, "password": password}
	return c.auth(ctx, "/api/auth/local", body, "Login failed")
}

// Register posts a new account to /api/auth/local/register. The response may
// or may not carry a token depending on the backend's confirmation settings.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	return c.auth(ctx, "/api/auth/local/register", body, "Registration failed")
}

func (c *Client) auth(ctx context.Context, path string, body any, fallback string) (*AuthResponse, error) {
	raw, err := c.do(ctx, request{method: http.MethodPost, path: path, body: body, fallback: fallback})
	if err != nil {
		return nil, err
	}
	var resp AuthResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrapf(models.ErrMalformedResponse, "decode %s: %v", path, err)
	}
	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	_ = json.Unmarshal(raw, &probe)
	resp.Message = errorMessage(raw, "")
	if resp.Message == "" && len(probe.Error) > 0 && string(probe.Error) != "null" {
		resp.Message = fallback
	}
	return &resp, nil
}

// ListJobs fetches every job with its relations populated.
func (c *Client) ListJobs(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/jobs",
		query:    populate(jobPopulate),
		fallback: "Failed to fetch jobs",
	})
}

// GetJob fetches one job by numeric id or document id. A missing job is an
// *models.APIError with status 404.
func (c *Client) GetJob(ctx context.Context, ident string) (json.RawMessage, error) {
	return c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/jobs/" + url.PathEscape(ident),
		query:    populate(jobPopulate),
		fallback: "Failed to fetch job",
	})
}

// ApplicationPayload is the body of a new application.
type ApplicationPayload struct {
	Name              string `json:"Name"`
	Email             string `json:"Email"`
	Phone             *int64 `json:"Phone"`
	ApplicationStatus string `json:"ApplicationStatus"`
	Job               int64  `json:"job"`
}

// CreateApplication posts an application on behalf of the token holder.
func (c *Client) CreateApplication(ctx context.Context, token string, p ApplicationPayload) (json.RawMessage, error) {
	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/applications",
		token:    token,
		body:     map[string]any{"data": p},
		fallback: "Failed to submit application",
	})
}

// ListApplications fetches applications with their job relations populated.
func (c *Client) ListApplications(ctx context.Context, token string) (json.RawMessage, error) {
	return c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/applications",
		query:    populate(applicationPopulate),
		token:    token,
		fallback: "Failed to fetch applications",
	})
}

// ListFacets fetches one filter collection (FacetLevels, FacetLocations or
// FacetFields).
func (c *Client) ListFacets(ctx context.Context, kind string) (json.RawMessage, error) {
	return c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/" + url.PathEscape(kind),
		fallback: "Failed to fetch " + kind,
	})
}

type request struct {
	method   string
	path     string
	query    url.Values
	token    string
	body     any
	fallback string
}

func (c *Client) do(ctx context.Context, r request) (json.RawMessage, error) {
	op := r.method + " " + r.path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &models.NetworkError{Op: op, Err: err}
		}
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var reader io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return nil, errors.Wrapf(err, "encode %s", op)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s", op)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed", zap.String("op", op), zap.Error(err))
		return nil, &models.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &models.NetworkError{Op: op, Err: err}
	}

	c.logger.Debug("backend request",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.APIError{Status: resp.StatusCode, Message: errorMessage(raw, r.fallback)}
	}
	return raw, nil
}

func populate(relations []string) url.Values {
	q := url.Values{}
	for i, rel := range relations {
		q.Set("populate["+strconv.Itoa(i)+"]", rel)
	}
	return q
}

// errorMessage pulls a human-readable message out of an error body: the
// top-level "message", then "error.message", else fallback.
func errorMessage(raw []byte, fallback string) string {
	var body struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fallback
	}
	if s := messageText(body.Message); s != "" {
		return s
	}
	var nested struct {
		Message json.RawMessage `json:"message"`
	}
	if len(body.Error) > 0 && json.Unmarshal(body.Error, &nested) == nil {
		if s := messageText(nested.Message); s != "" {
			return s
		}
	}
	return fallback
}

// messageText reads a message that is either a string or a Strapi v3 style
// [{messages: [{message}]}] list.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var groups []struct {
		Messages []struct {
			Message string `json:"message"`
		} `json:"messages"`
	}
	if json.Unmarshal(raw, &groups) == nil {
		for _, g := range groups {
			for _, m := range g.Messages {
				if m.Message != "" {
					return m.Message
				}
			}
		}
	}
	return ""
}
