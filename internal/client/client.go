// Package client talks to a running rapport server. The CLI's data commands
// go through it.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/lazypower/rapport/internal/engine"
)

const (
	defaultServerURL = "http://127.0.0.1:37778"
	httpTimeout      = 10 * time.Second
	maxAttempts      = 3
	baseBackoff      = 200 * time.Millisecond
	maxBackoff       = 2 * time.Second
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client talks to the rapport server.
type Client struct {
	http        *resty.Client
	serverURL   string
	maxAttempts int
	baseBackoff time.Duration
}

// New creates a client from the environment: RAPPORT_URL (default
// http://127.0.0.1:37778), RAPPORT_TOKEN for bearer auth and RAPPORT_USER for
// the single-user owner header.
func New() *Client {
	serverURL := os.Getenv("RAPPORT_URL")
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	c := NewWithURL(serverURL)
	if tok := os.Getenv("RAPPORT_TOKEN"); tok != "" {
		c.SetToken(tok)
	}
	if user := os.Getenv("RAPPORT_USER"); user != "" {
		c.SetUser(user)
	}
	return c
}

// NewWithURL creates a client for serverURL.
func NewWithURL(serverURL string) *Client {
	serverURL = strings.TrimRight(serverURL, "/")
	return &Client{
		http: resty.New().
			SetBaseURL(serverURL).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json").
			SetTimeout(httpTimeout),
		serverURL:   serverURL,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
	}
}

// SetURL points the client at another server.
func (c *Client) SetURL(serverURL string) {
	c.serverURL = strings.TrimRight(serverURL, "/")
	c.http.SetBaseURL(c.serverURL)
}

// URL returns the server base URL.
func (c *Client) URL() string { return c.serverURL }

// SetToken sends tok as a bearer token on every request.
func (c *Client) SetToken(tok string) {
	c.http.SetAuthToken(tok)
}

// SetUser selects the owner on a single-user server.
func (c *Client) SetUser(user string) {
	c.http.SetHeader("X-Rapport-User", user)
}

// do sends one request with exponential backoff. Idempotent methods retry
// transport errors and 5xx responses. Other methods retry only when the
// connection could not be made, so a write the server may have committed is
// never sent twice. 4xx responses fail immediately.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	idempotent := isIdempotent(method)

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.baseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = maxBackoff
	exp.MaxElapsedTime = 0
	exp.Reset()

	op := func() error {
		req := c.http.R().SetContext(ctx)
		if body != nil {
			req.SetBody(body)
		}
		resp, err := req.Execute(method, path)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			err = fmt.Errorf("%s %s: %w", method, path, err)
			if !idempotent && !isDialError(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		if resp.StatusCode() >= 400 {
			apiErr := &APIError{
				Method:  method,
				Path:    path,
				Status:  resp.StatusCode(),
				Message: errorMessage(resp.Body()),
			}
			if resp.StatusCode() >= 500 && idempotent {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode %s %s: %w", method, path, err))
			}
		}
		return nil
	}

	retries := uint64(0)
	if c.maxAttempts > 1 {
		retries = uint64(c.maxAttempts - 1)
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(exp, retries), ctx))
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

// isDialError reports whether err happened before the request reached the
// server.
func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// errorMessage pulls "error" out of a JSON error body, or returns the body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// Health is the server's health report.
type Health struct {
	Status  string  `json:"status"`
	Version string  `json:"version"`
	Uptime  float64 `json:"uptime"`
	DB      bool    `json:"db"`
	Store   string  `json:"store"`
	Breaker string  `json:"breaker,omitempty"`
}

// Health fetches the server health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Healthy checks if the server is reachable, without retrying.
func (c *Client) Healthy(ctx context.Context) bool {
	resp, err := c.http.R().SetContext(ctx).Get("/api/health")
	return err == nil && resp.StatusCode() == http.StatusOK
}

// Bootstrap records the caller's profile.
func (c *Client) Bootstrap(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/bootstrap", nil, nil)
}

// ListPeople returns the caller's people ordered by label.
func (c *Client) ListPeople(ctx context.Context) ([]engine.Person, error) {
	var resp struct {
		People []engine.Person `json:"people"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/people", nil, &resp); err != nil {
		return nil, err
	}
	return resp.People, nil
}

// CreatePerson adds a person.
func (c *Client) CreatePerson(ctx context.Context, label, note string) (*engine.Person, error) {
	var p engine.Person
	body := map[string]string{"label": label, "note": note}
	if err := c.do(ctx, http.MethodPost, "/api/people", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PersonDetail is a person with their latest interactions.
type PersonDetail struct {
	Person       engine.Person        `json:"person"`
	Interactions []engine.Interaction `json:"interactions"`
}

// GetPerson returns one person with their latest interactions.
func (c *Client) GetPerson(ctx context.Context, personID string) (*PersonDetail, error) {
	var d PersonDetail
	if err := c.do(ctx, http.MethodGet, "/api/people/"+url.PathEscape(personID), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// DeletePerson removes a person and their interactions.
func (c *Client) DeletePerson(ctx context.Context, personID string) error {
	return c.do(ctx, http.MethodDelete, "/api/people/"+url.PathEscape(personID), nil, nil)
}

// SetRoutine sets the routine cadence in days; nil clears it.
func (c *Client) SetRoutine(ctx context.Context, personID string, days *int) error {
	body := map[string]*int{"days": days}
	return c.do(ctx, http.MethodPut, "/api/people/"+url.PathEscape(personID)+"/routine", body, nil)
}

// LogRequest is a new interaction. A nil HappenedAt means now.
type LogRequest struct {
	PersonID   string     `json:"person_id"`
	Kind       string     `json:"kind"`
	Mood       *int       `json:"mood,omitempty"`
	Note       *string    `json:"note,omitempty"`
	HappenedAt *time.Time `json:"happened_at,omitempty"`
}

// LogInteraction records an interaction.
func (c *Client) LogInteraction(ctx context.Context, in LogRequest) (*engine.Interaction, error) {
	var ix engine.Interaction
	if err := c.do(ctx, http.MethodPost, "/api/interactions", in, &ix); err != nil {
		return nil, err
	}
	return &ix, nil
}

// History returns the latest interactions, newest first. limit <= 0 uses
// the server default.
func (c *Client) History(ctx context.Context, limit int) ([]engine.Interaction, error) {
	path := "/api/interactions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp struct {
		Interactions []engine.Interaction `json:"interactions"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Interactions, nil
}

// Radar fetches the 60-day radar view.
func (c *Client) Radar(ctx context.Context) (*engine.RadarView, error) {
	var v engine.RadarView
	if err := c.do(ctx, http.MethodGet, "/api/radar", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Ideas fetches the 90-day ideas view.
func (c *Client) Ideas(ctx context.Context) (*engine.IdeasView, error) {
	var v engine.IdeasView
	if err := c.do(ctx, http.MethodGet, "/api/ideas", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Report fetches one person's score and suggestions.
func (c *Client) Report(ctx context.Context, personID string) (*engine.Report, error) {
	var r engine.Report
	if err := c.do(ctx, http.MethodGet, "/api/people/"+url.PathEscape(personID)+"/report", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
