package catalog

import (
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

var (
	// ErrInvalidInput indicates the caller supplied malformed parameters.
	ErrInvalidInput = errors.New("catalog client: invalid input")
	// ErrNotFound indicates the upstream catalog has no such product.
	ErrNotFound = errors.New("catalog client: product not found")
	// ErrUnavailable indicates the upstream catalog could not be reached or answered abnormally.
	ErrUnavailable = errors.New("catalog client: upstream unavailable")
)

const (
	productsPath = "/products"
	presalesPath = "/presales"
)

// Client reads products and presales from the upstream catalog HTTP API and
// normalises them into domain items priced in minor units.
type Client struct {
	baseURL  string
	currency string
	http     *http.Client
	logger   func(ctx context.Context, event string, fields map[string]any)
	clock    func() time.Time
}

// ClientDeps lists the dependencies required to build a Client.
type ClientDeps struct {
	BaseURL    string
	Currency   string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     func(ctx context.Context, event string, fields map[string]any)
	Clock      func() time.Time
}

// NewClient validates dependencies and builds a catalog Client.
func NewClient(deps ClientDeps) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(deps.BaseURL), "/")
	if base == "" {
		return nil, errors.New("catalog client: base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("catalog client: invalid base url: %w", err)
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

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "MXN"
	}

	return &Client{
		baseURL:  base,
		currency: currency,
		http:     httpClient,
		logger:   logger,
		clock:    func() time.Time { return clock().UTC() },
	}, nil
}

// ListProducts returns all regular catalog products.
func (c *Client) ListProducts(ctx context.Context) ([]domain.CatalogItem, error) {
	return c.list(ctx, productsPath)
}

// ListPresales returns all presale catalog products.
func (c *Client) ListPresales(ctx context.Context) ([]domain.CatalogItem, error) {
	return c.list(ctx, presalesPath)
}

// GetProduct looks up a single product by ID using the upstream by-id reads.
// Presale entries take priority when both collections carry the same ID.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.CatalogItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.CatalogItem{}, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}

	item, err := c.get(ctx, presalesPath, id, true)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return domain.CatalogItem{}, err
	}

	item, err = c.get(ctx, productsPath, id, false)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.CatalogItem{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return domain.CatalogItem{}, err
	}
	return item, nil
}

func (c *Client) get(ctx context.Context, path, id string, presale bool) (domain.CatalogItem, error) {
	body, err := c.fetch(ctx, path+"/"+url.PathEscape(id))
	if err != nil {
		return domain.CatalogItem{}, err
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.CatalogItem{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	item, ok := normalizeItem(raw, c.currency, presale)
	if !ok {
		return domain.CatalogItem{}, fmt.Errorf("%w: malformed document for %s", ErrUnavailable, id)
	}
	return item, nil
}

func (c *Client) list(ctx context.Context, path string) ([]domain.CatalogItem, error) {
	body, err := c.fetch(ctx, path)
	if err != nil {
		return nil, err
	}

	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	presale := path == presalesPath
	items := make([]domain.CatalogItem, 0, len(raw))
	for _, entry := range raw {
		item, ok := normalizeItem(entry, c.currency, presale)
		if !ok {
			c.logger(ctx, "catalog.item_skipped", map[string]any{"path": path})
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger(ctx, "catalog.fetch_failed", map[string]any{"path": path, "error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := upstreamMessage(body)
		c.logger(ctx, "catalog.fetch_rejected", map[string]any{
			"path":    path,
			"status":  resp.StatusCode,
			"message": message,
		})
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, message)
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, message)
	}

	return body, nil
}

// upstreamMessage extracts the {"message": ...} error body the catalog API uses.
func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}
