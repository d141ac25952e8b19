// Package ai talks to the text-generation backend that drafts a venue's
// presentation and access texts.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrInvalidArgument is returned before any network call when a required
	// input is missing.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrGenerationUnavailable is returned once every attempt has failed. The
	// last attempt's error is wrapped alongside it.
	ErrGenerationUnavailable = errors.New("generation unavailable")
)

const maxBody = 1 << 20

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Attempts   int
	RetryDelay time.Duration
}

// DefaultConfig is 3 attempts of 30s each, waiting 1s then 2s between them.
func DefaultConfig(baseURL string) Config {
	return Config{BaseURL: baseURL, Timeout: 30 * time.Second, Attempts: 3, RetryDelay: time.Second}
}

// Generated is the text drafted for a venue.
type Generated struct {
	PresentationText string `json:"texte_presentation"`
	AccessInfo       string `json:"informations_acces"`
}

// ValidationResult is the backend's verdict on a quote.
type ValidationResult struct {
	Valid   bool           `json:"valid"`
	Errors  []string       `json:"errors"`
	Summary map[string]any `json:"summary,omitempty"`
}

type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string { return e.Message }

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithSleeper(s Sleeper) Option { return func(c *Client) { c.sleep = s } }

type Client struct {
	cfg   Config
	http  *http.Client
	log   *zap.Logger
	sleep Sleeper
}

func New(cfg Config, log *zap.Logger, opts ...Option) *Client {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		cfg:   cfg,
		http:  &http.Client{},
		log:   log.With(zap.String("component", "ai")),
		sleep: sleepContext,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generate asks the backend to draft the presentation and access texts for a
// venue. Title and address are both required.
func (c *Client) Generate(ctx context.Context, title, address string) (Generated, error) {
	title, address = strings.TrimSpace(title), strings.TrimSpace(address)
	if title == "" || address == "" {
		return Generated{}, fmt.Errorf("%w: title and address are required", ErrInvalidArgument)
	}
	var out Generated
	req := request{
		method: http.MethodPost,
		path:   "/api/generate",
		body:   map[string]string{"titre": title, "adresse": address},
		out:    &out,
		check: func() error {
			if strings.TrimSpace(out.PresentationText) == "" || strings.TrimSpace(out.AccessInfo) == "" {
				return errors.New("incomplete generated content")
			}
			return nil
		},
	}
	if err := c.retry(ctx, req); err != nil {
		return Generated{}, err
	}
	c.log.Info("text generated", zap.String("title", title))
	return out, nil
}

// ValidateQuote submits a quote for remote checks. A 400 answer carrying a
// verdict is a result, not a failure.
func (c *Client) ValidateQuote(ctx context.Context, quote any) (ValidationResult, error) {
	if quote == nil {
		return ValidationResult{}, fmt.Errorf("%w: quote is required", ErrInvalidArgument)
	}
	var out ValidationResult
	req := request{
		method:        http.MethodPost,
		path:          "/api/validate-quote",
		body:          quote,
		out:           &out,
		verdictStatus: http.StatusBadRequest,
	}
	if err := c.retry(ctx, req); err != nil {
		return ValidationResult{}, err
	}
	return out, nil
}

// Health performs a single GET /health without retries.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	err := c.attempt(ctx, request{method: http.MethodGet, path: "/health", out: &out})
	return out, err
}

// TestConnection reports whether the backend answers its health check.
func (c *Client) TestConnection(ctx context.Context) bool {
	if _, err := c.Health(ctx); err != nil {
		c.log.Warn("ai backend unreachable", zap.Error(err))
		return false
	}
	return true
}

type request struct {
	method string
	path   string
	body   any
	out    any
	// check rejects a decoded answer that is not usable.
	check func() error
	// verdictStatus is a non-2xx status whose body still decodes into out.
	verdictStatus int
}

// retry runs req up to Attempts times, waiting attempt×RetryDelay after each
// failure but the last.
func (c *Client) retry(ctx context.Context, req request) error {
	var last error
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		err := c.attempt(ctx, req)
		if err == nil {
			return nil
		}
		last = err
		c.log.Warn("ai request failed",
			zap.String("path", req.path),
			zap.Int("attempt", attempt),
			zap.Int("attempts", c.cfg.Attempts),
			zap.Error(err))
		if attempt == c.cfg.Attempts || ctx.Err() != nil {
			break
		}
		if err := c.sleep(ctx, time.Duration(attempt)*c.cfg.RetryDelay); err != nil {
			break
		}
	}
	return fmt.Errorf("%w: %w", ErrGenerationUnavailable, last)
}

// attempt performs one request bounded by the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, req request) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.cfg.BaseURL+req.path, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("request timeout after %s: %w", c.cfg.Timeout, ctx.Err())
		}
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok && !(req.verdictStatus != 0 && resp.StatusCode == req.verdictStatus && hasVerdict(raw)) {
		return statusError(resp, raw)
	}
	if req.out != nil {
		if err := json.Unmarshal(StripFences(raw), req.out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	if req.check != nil {
		return req.check()
	}
	return nil
}

func statusError(resp *http.Response, raw []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && strings.TrimSpace(payload.Error) != "" {
		return &HTTPError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

func hasVerdict(raw []byte) bool {
	var probe struct {
		Valid *bool `json:"valid"`
	}
	return json.Unmarshal(raw, &probe) == nil && probe.Valid != nil
}

// StripFences removes a markdown code fence around a JSON payload.
func StripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return raw
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}
