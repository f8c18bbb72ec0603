// Package provider is the HTTP client for the identity-verification provider.
// It is the only code that talks to the provider: it adds Basic credentials,
// categorizes failures and returns response bodies unmodified.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"idintake/internal/provider/metrics"
)

const (
	ParametersPath  = "/v1/parameters/"
	EvaluationsPath = "/v1/evaluations/"

	opParameters  = "parameters"
	opEvaluations = "evaluations"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// Credentials are the API token and secret sent as HTTP Basic auth.
type Credentials struct {
	Token  string
	Secret string
}

// Configured reports whether both halves are present.
func (c Credentials) Configured() bool {
	return c.Token != "" && c.Secret != ""
}

// Client calls the provider's parameter and evaluation endpoints.
type Client struct {
	baseURL string
	creds   Credentials
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. The client is copied, so
// later options never modify the caller's value.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			owned := *hc
			c.http = &owned
		}
	}
}

// WithTimeout sets the per-call timeout on the client's own HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New constructs a client for baseURL. Missing credentials are not an error
// here; every call fails with ErrorConfiguration instead.
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		creds:   creds,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default(),
		tracer:  otel.Tracer("idintake/internal/provider"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether calls will be attempted.
func (c *Client) Configured() bool {
	return c.creds.Configured()
}

// Parameters fetches the provider's parameter schema.
func (c *Client) Parameters(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, opParameters, http.MethodGet, ParametersPath, nil)
}

// Evaluate submits an applicant payload for evaluation and returns the decision document.
func (c *Client) Evaluate(ctx context.Context, payload []byte) (json.RawMessage, error) {
	return c.do(ctx, opEvaluations, http.MethodPost, EvaluationsPath, payload)
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) (body json.RawMessage, err error) {
	if !c.creds.Configured() {
		c.logger.ErrorContext(ctx, "provider credentials not configured",
			"op", op,
			"token_present", c.creds.Token != "",
			"secret_present", c.creds.Secret != "",
		)
		c.metrics.ObserveCall(op, string(ErrorConfiguration), 0)
		return nil, newError(ErrorConfiguration, op, "missing token or secret", ErrNotConfigured)
	}

	ctx, span := c.tracer.Start(ctx, "provider."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = string(Category(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
		c.metrics.ObserveCall(op, result, time.Since(start))
		span.End()
	}()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, newError(ErrorTransport, op, "build request", err)
	}
	req.SetBasicAuth(c.creds.Token, c.creds.Secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "provider request failed", "op", op, "error", err)
		return nil, newError(ErrorTransport, op, "request failed", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, newError(ErrorTransport, op, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnContext(ctx, "provider returned non-success status",
			"op", op,
			"status", resp.StatusCode,
		)
		e := newError(ErrorUpstream, op, "unexpected status", nil)
		e.Status = resp.StatusCode
		return nil, e
	}
	if !json.Valid(raw) {
		c.logger.WarnContext(ctx, "provider returned invalid json", "op", op, "bytes", len(raw))
		return nil, newError(ErrorBadData, op, "response is not valid JSON", nil)
	}
	return json.RawMessage(raw), nil
}
