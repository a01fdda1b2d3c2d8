// Package remote implements the inventory service client used by the
// inventory store. It speaks the JSON REST API served by cmd/server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/inventory-tracker/internal/model"
)

// Header names sent with every request.
const (
	APIKeyHeader    = "X-API-Key" //nolint:gosec // header name, not a credential
	RequestIDHeader = "X-Request-ID"
)

const (
	itemsPath        = "/api/v1/items"
	maxErrorBodySize = 64 << 10
	defaultTimeout   = 10 * time.Second
)

// Prometheus metrics.
var (
	remoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_remote_requests_total",
			Help: "Total number of requests sent to the inventory service",
		},
		[]string{"op", "status"},
	)

	remoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inventory_remote_request_duration_seconds",
			Help:    "Inventory service request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// Config holds the client settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	APIKey    string
	BasicUser string
	BasicPass string
}

// Client talks to the inventory service over HTTP.
type Client struct {
	baseURL    *url.URL
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	propagator propagation.TextMapPropagator
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client for the service at cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL:    base,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
		propagator: otel.GetTextMapPropagator(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// List returns every item, newest first.
func (c *Client) List(ctx context.Context) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	if err := c.do(ctx, "list items", http.MethodGet, itemsPath, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = make([]model.InventoryItem, 0)
	}
	return items, nil
}

// Get returns a single item. A success envelope without data yields nil.
func (c *Client) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	var item *model.InventoryItem
	if err := c.do(ctx, "get item", http.MethodGet, itemPath(id), nil, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// Create stores a new item and returns the service's record of it.
func (c *Client) Create(ctx context.Context, input model.ItemInput) (*model.InventoryItem, error) {
	var item *model.InventoryItem
	if err := c.do(ctx, "create item", http.MethodPost, itemsPath, input, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// Update sends a partial update and returns the full updated item.
func (c *Client) Update(ctx context.Context, id string, patch model.ItemPatch) (*model.InventoryItem, error) {
	var item *model.InventoryItem
	if err := c.do(ctx, "update item", http.MethodPatch, itemPath(id), patch, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an item.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, "delete item", http.MethodDelete, itemPath(id), nil, nil)
}

// Health checks that the service answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
}

func itemPath(id string) string {
	return itemsPath + "/" + url.PathEscape(id)
}

// do sends one request and decodes the success envelope into out.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		remoteRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		remoteRequestsTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
	}()

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return &Error{Op: op, Message: err.Error(), Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("inventory service request failed",
			zap.String("op", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return &Error{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	status = resp.StatusCode
	c.logger.Debug("inventory service response",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", req.Header.Get(RequestIDHeader)),
	)

	if status < 200 || status > 299 {
		return decodeError(op, resp)
	}

	if out == nil || status == http.StatusNoContent {
		return nil
	}

	envelope := model.APIResponse[json.RawMessage]{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &Error{Op: op, StatusCode: status, Message: "decoding response: " + err.Error(), Err: err}
	}
	if !envelope.Success {
		return &Error{Op: op, StatusCode: status, Message: envelope.Error}
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &Error{Op: op, StatusCode: status, Message: "decoding response data: " + err.Error(), Err: err}
	}

	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL.String() + path
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}
	req.Header.Set(RequestIDHeader, uuid.New().String())

	switch {
	case c.cfg.APIKey != "":
		req.Header.Set(APIKeyHeader, c.cfg.APIKey)
	case c.cfg.BasicUser != "":
		req.SetBasicAuth(c.cfg.BasicUser, c.cfg.BasicPass)
	}

	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	return req, nil
}

// decodeError builds an *Error from a non-2xx response. The service
// sends {"code","message"}; anything else falls back to the status text.
func decodeError(op string, resp *http.Response) error {
	remoteErr := &Error{Op: op, StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	var body model.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		remoteErr.Message = body.Message
		return remoteErr
	}

	if text := strings.TrimSpace(string(raw)); text != "" && !strings.HasPrefix(text, "{") {
		remoteErr.Message = text
		return remoteErr
	}

	remoteErr.Message = strings.ToLower(http.StatusText(resp.StatusCode))
	return remoteErr
}
