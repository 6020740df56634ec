package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/helmcode/arqv30-client/pkg/model"
)

const (
	executePath  = "/api/unified_analysis/execute_unified_analysis"
	progressPath = "/api/progress/"
	sessionsPath = "/api/sessions"
	prepitchPath = "/pitch-system/generate-invisible-prepitch"

	// DefaultPollTimeout bounds a single progress request.
	DefaultPollTimeout = 30 * time.Second

	instrumentationName = "github.com/helmcode/arqv30-client/pkg/api"
	maxErrorBody        = 512
)

// Client talks to the analysis backend.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	token       string
	pollTimeout time.Duration
	logger      *slog.Logger
	tracer      trace.Tracer
	duration    metric.Float64Histogram
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken attaches a bearer token to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithPollTimeout bounds each progress request.
func WithPollTimeout(d time.Duration) Option {
	return func(c *Client) { c.pollTimeout = d }
}

// New creates a backend client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https: %q", baseURL)
	}

	c := &Client{
		baseURL:     strings.TrimRight(u.String(), "/"),
		httpClient:  &http.Client{},
		pollTimeout: DefaultPollTimeout,
		logger:      slog.Default(),
		tracer:      otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.token != "" {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *c.httpClient
		wrapped.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token, TokenType: "Bearer"}),
			Base:   base,
		}
		c.httpClient = &wrapped
	}

	c.duration, err = otel.Meter(instrumentationName).Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		c.logger.Warn("failed to create request duration histogram", "error", err)
	}
	return c, nil
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ExecuteAnalysis starts an analysis and blocks until the backend answers.
// The caller controls the deadline through ctx.
func (c *Client) ExecuteAnalysis(ctx context.Context, sessionID string, form model.Form) (*model.AnalysisResponse, error) {
	const op = "execute analysis"

	body := make(map[string]string, len(form)+1)
	for k, v := range form {
		body[k] = v
	}
	body["session_id"] = sessionID

	var resp model.AnalysisResponse
	status, raw, err := c.do(ctx, op, http.MethodPost, executePath, body, sessionID)
	if err != nil {
		return nil, err
	}
	if err := decode(raw, &resp); err != nil && status < 300 {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if status < 200 || status >= 300 {
		msg := resp.Error
		if msg == "" {
			msg = truncate(raw)
		}
		return nil, &StatusError{Op: op, StatusCode: status, Body: msg}
	}
	if resp.Error != "" {
		return nil, &AppError{Op: op, Message: resp.Error}
	}
	if !resp.Success {
		return nil, &AppError{Op: op, Message: "backend reported failure"}
	}
	return &resp, nil
}

type progressEnvelope struct {
	Success  *bool           `json:"success"`
	Progress *model.Progress `json:"progress"`
	Error    string          `json:"error"`

	// Flat shape still served by older backends.
	Completed   *bool    `json:"completed"`
	Percentage  *float64 `json:"percentage"`
	CurrentStep string   `json:"current_step"`
}

// GetProgress fetches the progress record for a session. A 404 yields an
// error wrapping ErrSessionNotFound.
func (c *Client) GetProgress(ctx context.Context, sessionID string) (*model.Progress, error) {
	const op = "get progress"

	if c.pollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.pollTimeout)
		defer cancel()
	}

	status, raw, err := c.do(ctx, op, http.MethodGet, progressPath+url.PathEscape(sessionID), nil, sessionID)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%s %s: %w", op, sessionID, ErrSessionNotFound)
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{Op: op, StatusCode: status, Body: truncate(raw)}
	}

	var env progressEnvelope
	if err := decode(raw, &env); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if env.Success != nil && !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.CurrentStep
		}
		if msg == "" {
			msg = "backend reported failure"
		}
		return nil, &AppError{Op: op, Message: msg}
	}
	if env.Progress != nil {
		return env.Progress, nil
	}
	if env.Completed != nil || env.Percentage != nil {
		p := &model.Progress{CurrentMessage: env.CurrentStep}
		if env.Percentage != nil {
			p.Percentage = *env.Percentage
		}
		if env.Completed != nil {
			p.IsComplete = *env.Completed
		}
		return p, nil
	}
	return nil, &AppError{Op: op, Message: "response has no progress record"}
}

// GeneratePrepitch asks the backend for an invisible pre-pitch built from
// avatar data. Empty structure and emotion fall back to the backend defaults.
func (c *Client) GeneratePrepitch(ctx context.Context, req model.PrepitchRequest) (*model.PrepitchResponse, error) {
	const op = "generate prepitch"

	if req.AvatarData == nil {
		req.AvatarData = map[string]any{}
	}
	if req.PitchStructure == "" {
		req.PitchStructure = "classica"
	}
	if req.TargetEmotion == "" {
		req.TargetEmotion = "transformacao"
	}

	status, raw, err := c.do(ctx, op, http.MethodPost, prepitchPath, req, "")
	if err != nil {
		return nil, err
	}
	var resp model.PrepitchResponse
	decodeErr := decode(raw, &resp)
	if status < 200 || status >= 300 {
		msg := resp.Error
		if msg == "" {
			msg = truncate(raw)
		}
		return nil, &StatusError{Op: op, StatusCode: status, Body: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, decodeErr)
	}
	if resp.Error != "" || !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "backend reported failure"
		}
		return nil, &AppError{Op: op, Message: msg}
	}
	return &resp, nil
}

// ListSessions returns the sessions saved by the backend.
func (c *Client) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	const op = "list sessions"

	status, raw, err := c.do(ctx, op, http.MethodGet, sessionsPath, nil, "")
	if err != nil {
		return nil, err
	}
	var resp struct {
		Success  bool                   `json:"success"`
		Sessions []model.SessionSummary `json:"sessions"`
		Error    string                 `json:"error"`
	}
	decodeErr := decode(raw, &resp)
	if status < 200 || status >= 300 {
		msg := resp.Error
		if msg == "" {
			msg = truncate(raw)
		}
		return nil, &StatusError{Op: op, StatusCode: status, Body: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, decodeErr)
	}
	if !resp.Success {
		return nil, &AppError{Op: op, Message: resp.Error}
	}
	return resp.Sessions, nil
}

// SessionStatus returns the backend's view of a single session.
func (c *Client) SessionStatus(ctx context.Context, sessionID string) (*model.SessionStatus, error) {
	const op = "session status"

	status, raw, err := c.do(ctx, op, http.MethodGet, sessionPath(sessionID)+"/status", nil, sessionID)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%s %s: %w", op, sessionID, ErrSessionNotFound)
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{Op: op, StatusCode: status, Body: truncate(raw)}
	}
	var resp struct {
		Success bool                `json:"success"`
		Session model.SessionStatus `json:"session"`
		Error   string              `json:"error"`
	}
	if err := decode(raw, &resp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if !resp.Success {
		return nil, &AppError{Op: op, Message: resp.Error}
	}
	return &resp.Session, nil
}

// SessionResults fetches the components the backend saved for a finished
// session. A 404 or an empty result set yields an error wrapping
// ErrSessionNotFound.
func (c *Client) SessionResults(ctx context.Context, sessionID string) (*model.SessionResults, error) {
	const op = "session results"

	status, raw, err := c.do(ctx, op, http.MethodGet, sessionPath(sessionID)+"/results", nil, sessionID)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%s %s: %w", op, sessionID, ErrSessionNotFound)
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{Op: op, StatusCode: status, Body: truncate(raw)}
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		model.SessionResults
	}
	if err := decode(raw, &resp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if !resp.Success {
		return nil, &AppError{Op: op, Message: resp.Error}
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%s %s: no components saved: %w", op, sessionID, ErrSessionNotFound)
	}
	if resp.SessionID == "" {
		resp.SessionID = sessionID
	}
	if resp.ComponentsCount == 0 {
		resp.ComponentsCount = len(resp.Results)
	}
	return &resp.SessionResults, nil
}

// DeleteSession removes everything the backend saved for a session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	const op = "delete session"

	status, raw, err := c.do(ctx, op, http.MethodDelete, sessionPath(sessionID), nil, sessionID)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", op, sessionID, ErrSessionNotFound)
	}
	return checkAck(op, status, raw)
}

// ClearSessions removes every session saved by the backend and returns how
// many there were.
func (c *Client) ClearSessions(ctx context.Context) (int, error) {
	const op = "clear sessions"

	status, raw, err := c.do(ctx, op, http.MethodPost, sessionsPath+"/clear", map[string]bool{"confirm": true}, "")
	if err != nil {
		return 0, err
	}
	if err := checkAck(op, status, raw); err != nil {
		return 0, err
	}
	var resp struct {
		ClearedCount int `json:"cleared_count"`
	}
	if err := decode(raw, &resp); err != nil {
		return 0, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return resp.ClearedCount, nil
}

// checkAck validates a {success, error} acknowledgement body.
func checkAck(op string, status int, raw []byte) error {
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	decodeErr := decode(raw, &resp)
	if status < 200 || status >= 300 {
		msg := resp.Error
		if msg == "" {
			msg = truncate(raw)
		}
		return &StatusError{Op: op, StatusCode: status, Body: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("%s: decode response: %w", op, decodeErr)
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "backend reported failure"
		}
		return &AppError{Op: op, Message: msg}
	}
	return nil
}

func sessionPath(sessionID string) string {
	return sessionsPath + "/" + url.PathEscape(sessionID)
}

// do sends a request and returns the status code and raw body. Only
// transport failures are returned as errors.
func (c *Client) do(ctx context.Context, op, method, path string, body any, sessionID string) (int, []byte, error) {
	ctx, span := c.tracer.Start(ctx, op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)
	if sessionID != "" {
		span.SetAttributes(attribute.String("arqv30.session_id", sessionID))
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, nil, fmt.Errorf("%s: send request: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	elapsed := time.Since(start)
	if c.duration != nil {
		c.duration.Record(ctx, float64(elapsed.Milliseconds()),
			metric.WithAttributes(attribute.String("operation", op), attribute.Int("status", resp.StatusCode)))
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, resp.Status)
	}
	c.logger.Debug("backend request", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "duration_ms", elapsed.Milliseconds())

	return resp.StatusCode, raw, nil
}

func decode(raw []byte, out any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("empty body")
	}
	return json.Unmarshal(raw, out)
}

func truncate(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
