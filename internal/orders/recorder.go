package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crownside/storefront/internal/domain"
)

// Recorder forwards placed orders to the external order storage service.
type Recorder interface {
	Record(ctx context.Context, order domain.Order) error
}

// HTTPRecorderDeps configures the HTTP-backed order recorder.
type HTTPRecorderDeps struct {
	SinkURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     func(context.Context, string, map[string]any)
}

// HTTPRecorder posts orders as JSON to a configured sink endpoint.
type HTTPRecorder struct {
	sinkURL string
	http    *http.Client
	logger  func(context.Context, string, map[string]any)
}

var _ Recorder = (*HTTPRecorder)(nil)

// NewHTTPRecorder validates dependencies and builds an HTTPRecorder.
func NewHTTPRecorder(deps HTTPRecorderDeps) (*HTTPRecorder, error) {
	sink := strings.TrimSpace(deps.SinkURL)
	if sink == "" {
		return nil, errors.New("order recorder: sink url is required")
	}
	if _, err := url.ParseRequestURI(sink); err != nil {
		return nil, fmt.Errorf("order recorder: invalid sink url: %w", err)
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		timeout := deps.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &HTTPRecorder{
		sinkURL: sink,
		http:    httpClient,
		logger:  logger,
	}, nil
}

// Record posts the order to the sink. Non-2xx responses are errors so the
// caller can decide whether the failure is fatal.
func (r *HTTPRecorder) Record(ctx context.Context, order domain.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("order recorder: encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.sinkURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("order recorder: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("order recorder: post order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		r.logger(ctx, "orders.record_rejected", map[string]any{
			"order_id": order.ID,
			"status":   resp.StatusCode,
		})
		return fmt.Errorf("order recorder: sink returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	r.logger(ctx, "orders.recorded", map[string]any{"order_id": order.ID})
	return nil
}
