package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/crownside/storefront/internal/catalog"
	"github.com/crownside/storefront/internal/domain"
)

// ErrCatalogInvalidInput indicates the caller supplied invalid input.
var ErrCatalogInvalidInput = errors.New("catalog service: invalid input")

// ErrCatalogNotFound indicates the requested product does not exist.
var ErrCatalogNotFound = errors.New("catalog service: not found")

// ErrCatalogUnavailable indicates the upstream catalog cannot be reached.
var ErrCatalogUnavailable = errors.New("catalog service: unavailable")

// Product is a catalog item decorated with its presale availability.
type Product struct {
	domain.CatalogItem
	Available bool              `json:"available"`
	Remaining *domain.Remaining `json:"remaining,omitempty"`
}

type catalogReader interface {
	ListProducts(ctx context.Context) ([]domain.CatalogItem, error)
	ListPresales(ctx context.Context) ([]domain.CatalogItem, error)
	GetProduct(ctx context.Context, id string) (domain.CatalogItem, error)
}

// CatalogServiceDeps wires the upstream reader and clock for catalog reads.
type CatalogServiceDeps struct {
	Catalog catalogReader
	Clock   func() time.Time
	Logger  func(context.Context, string, map[string]any)
}

type catalogService struct {
	catalog catalogReader
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog service: catalog reader is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogService{
		catalog: deps.Catalog,
		now:     func() time.Time { return clock().UTC() },
		logger:  logger,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]Product, error) {
	items, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, translateCatalogError(err)
	}
	return s.decorate(items), nil
}

func (s *catalogService) ListPresales(ctx context.Context) ([]Product, error) {
	items, err := s.catalog.ListPresales(ctx)
	if err != nil {
		return nil, translateCatalogError(err)
	}
	return s.decorate(items), nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	if strings.TrimSpace(productID) == "" {
		return Product{}, ErrCatalogInvalidInput
	}

	item, err := s.catalog.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return Product{}, translateCatalogError(err)
	}
	return s.decorateOne(item), nil
}

func (s *catalogService) decorate(items []domain.CatalogItem) []Product {
	now := s.now()
	products := make([]Product, 0, len(items))
	for _, item := range items {
		products = append(products, decorateItem(item, now))
	}
	return products
}

func (s *catalogService) decorateOne(item domain.CatalogItem) Product {
	return decorateItem(item, s.now())
}

func decorateItem(item domain.CatalogItem, now time.Time) Product {
	product := Product{CatalogItem: item, Available: true}
	if !item.IsPresale() {
		return product
	}

	product.Available = PresaleAvailable(item.Presale.ReleaseAt, now)
	remaining := PresaleRemaining(item.Presale.ReleaseAt, now)
	product.Remaining = &remaining
	return product
}

func translateCatalogError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, catalog.ErrInvalidInput):
		return ErrCatalogInvalidInput
	case errors.Is(err, catalog.ErrNotFound):
		return ErrCatalogNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return ErrCatalogUnavailable
	}
}
