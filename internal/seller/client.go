package seller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/sellerdash/internal/domain"
)

var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seller_upstream_requests_total",
		Help: "Calls made to the seller API, labeled by endpoint and outcome",
	}, []string{"endpoint", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seller_upstream_request_duration_seconds",
		Help:    "Latency distribution of seller API calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"endpoint"})
)

// ErrSession reports a missing, invalid or expired auth token. It is fatal
// to the session and never retried.
var ErrSession = errors.New("session is invalid or expired")

// APIError is a non-2xx answer from the seller API other than 401.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("seller api: %s (status %d)", e.Message, e.Status)
}

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: could not reach the seller api: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

const maxErrorBody = 64 << 10

// Client talks to the remote seller REST API on behalf of one seller. It is
// immutable and safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetries bounds how many times a read-only call is repeated after a
// transport failure or a 5xx answer.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    http.DefaultClient,
		retries: 3,
		backoff: 250 * time.Millisecond,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of the client authenticated with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) Token() string { return c.token }

type call struct {
	op       string
	method   string
	path     string
	query    url.Values
	body     any
	public   bool
	fallback string
}

// do executes one logical call. GET calls are retried on transport errors
// and 5xx answers; mutations are sent exactly once.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	if !cl.public && c.token == "" {
		return ErrSession
	}

	attempts := 1
	if cl.method == http.MethodGet {
		attempts += c.retries
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			c.logger.Warn("retrying seller api call",
				zap.String("op", cl.op), zap.Int("attempt", i+1), zap.Error(err))
			select {
			case <-ctx.Done():
				return &TransportError{Op: cl.op, Err: ctx.Err()}
			case <-time.After(c.backoff << (i - 1)):
			}
		}
		err = c.once(ctx, cl, out)
		if !retryable(err) {
			return err
		}
	}
	return err
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return !errors.Is(te.Err, context.Canceled)
	}
	var ae *APIError
	return errors.As(err, &ae) && ae.Status >= 500
}

func (c *Client) once(ctx context.Context, cl call, out any) error {
	timer := prometheus.NewTimer(upstreamRequestDuration.WithLabelValues(cl.op))
	defer timer.ObserveDuration()

	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", cl.op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", cl.op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if !cl.public {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		upstreamRequestsTotal.WithLabelValues(cl.op, "error").Inc()
		return &TransportError{Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(cl.op, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug("seller api call",
		zap.String("op", cl.op), zap.String("method", cl.method), zap.Int("status", resp.StatusCode))

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrSession
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp, cl.fallback)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", cl.op, err)
	}
	return nil
}

// decodeAPIError prefers the body's message, then its per-field
// validation errors joined in field order, then fallback.
func decodeAPIError(resp *http.Response, fallback string) error {
	var payload struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := fallback
	if err := json.Unmarshal(raw, &payload); err == nil {
		switch {
		case payload.Message != "":
			msg = payload.Message
		case len(payload.Errors) > 0:
			var parts []string
			for _, field := range slices.Sorted(maps.Keys(payload.Errors)) {
				parts = append(parts, payload.Errors[field]...)
			}
			if len(parts) > 0 {
				msg = strings.Join(parts, ", ")
			}
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// UserMessage renders err the way it should be shown to the seller.
func UserMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Message
	}
	var te *TransportError
	if errors.As(err, &te) {
		return "could not reach the server, check your connection and try again"
	}
	if errors.Is(err, ErrSession) {
		return "your session has expired, please sign in again"
	}
	return err.Error()
}
