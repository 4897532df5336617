package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crownside/storefront/internal/domain"
	"github.com/crownside/storefront/internal/repositories"
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart cannot be read or persisted right now.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartProductNotFound indicates the product does not exist in the catalog.
var ErrCartProductNotFound = errors.New("cart service: product not found")

const defaultMaxLineQuantity = 99

// CartServiceDeps wires the store and catalog dependencies for cart operations.
type CartServiceDeps struct {
	Store           repositories.CartStore
	Catalog         CatalogService
	Clock           func() time.Time
	Logger          func(context.Context, string, map[string]any)
	MaxLineQuantity int
}

type cartService struct {
	store   repositories.CartStore
	catalog CatalogService
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
	maxQty  int
}

var _ CartService = (*cartService)(nil)

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Store == nil {
		return nil, errors.New("cart service: store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("cart service: catalog is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	maxQty := deps.MaxLineQuantity
	if maxQty <= 0 {
		maxQty = defaultMaxLineQuantity
	}

	return &cartService{
		store:   deps.Store,
		catalog: deps.Catalog,
		now:     func() time.Time { return clock().UTC() },
		logger:  logger,
		maxQty:  maxQty,
	}, nil
}

// GetCart loads the cart for the session. Unknown sessions yield an empty cart.
func (s *cartService) GetCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return domain.Cart{}, err
	}

	cart, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, s.translateStoreError(err)
	}
	return cart, nil
}

// AddItem merges the product into the cart, summing quantities for repeated
// adds of the same product. The mutation is persisted before returning.
func (s *cartService) AddItem(ctx context.Context, sessionID, productID string, quantity int) (domain.Cart, error) {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if quantity <= 0 {
		return domain.Cart{}, fmt.Errorf("%w: quantity must be positive", ErrCartInvalidInput)
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		switch {
		case errors.Is(err, ErrCatalogNotFound):
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartProductNotFound, productID)
		case errors.Is(err, ErrCatalogInvalidInput):
			return domain.Cart{}, ErrCartInvalidInput
		default:
			return domain.Cart{}, ErrCartUnavailable
		}
	}

	cart, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, s.translateStoreError(err)
	}

	limit := s.lineLimit(product.Stock)

	merged := false
	for i, line := range cart.Lines {
		if line.ProductID != productID {
			continue
		}
		next := line.Quantity + quantity
		if next > limit {
			return domain.Cart{}, fmt.Errorf("%w: quantity exceeds limit of %d", ErrCartInvalidInput, limit)
		}
		cart.Lines[i].Quantity = next
		merged = true
		break
	}

	if !merged {
		if quantity > limit {
			return domain.Cart{}, fmt.Errorf("%w: quantity exceeds limit of %d", ErrCartInvalidInput, limit)
		}
		line := domain.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Currency:  product.Currency,
			ImageURL:  product.ImageURL,
			Quantity:  quantity,
			Presale:   product.IsPresale(),
			AddedAt:   s.now(),
		}
		if product.Presale != nil {
			line.ReleaseAt = product.Presale.ReleaseAt
		}
		cart.Lines = append(cart.Lines, line)
	}

	if err := s.persist(ctx, &cart); err != nil {
		return domain.Cart{}, err
	}

	s.logger(ctx, "cart.item_added", map[string]any{
		"session_id": sessionID,
		"product_id": productID,
		"quantity":   quantity,
	})
	return cart, nil
}

// ChangeQuantity applies a signed delta to an existing line. Lines that drop
// to zero or below are removed from the cart.
func (s *cartService) ChangeQuantity(ctx context.Context, sessionID, productID string, delta int) (domain.Cart, error) {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if delta == 0 {
		return domain.Cart{}, fmt.Errorf("%w: delta must be non-zero", ErrCartInvalidInput)
	}

	cart, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, s.translateStoreError(err)
	}

	idx := -1
	for i, line := range cart.Lines {
		if line.ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Adjusting a line that is not in the cart changes nothing.
		return cart, nil
	}

	next := cart.Lines[idx].Quantity + delta
	switch {
	case next <= 0:
		cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
	case next > s.maxQty:
		return domain.Cart{}, fmt.Errorf("%w: quantity exceeds limit of %d", ErrCartInvalidInput, s.maxQty)
	default:
		cart.Lines[idx].Quantity = next
	}

	if err := s.persist(ctx, &cart); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

// RemoveItem deletes the line for the product. Removing an absent line is a no-op.
func (s *cartService) RemoveItem(ctx context.Context, sessionID, productID string) (domain.Cart, error) {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}

	cart, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, s.translateStoreError(err)
	}

	filtered := cart.Lines[:0]
	removed := false
	for _, line := range cart.Lines {
		if line.ProductID == productID {
			removed = true
			continue
		}
		filtered = append(filtered, line)
	}
	cart.Lines = filtered

	if !removed {
		return cart, nil
	}

	if err := s.persist(ctx, &cart); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

// ClearCart drops every line and removes the stored document.
func (s *cartService) ClearCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return domain.Cart{}, err
	}

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return domain.Cart{}, s.translateStoreError(err)
	}

	s.logger(ctx, "cart.cleared", map[string]any{"session_id": sessionID})
	return domain.Cart{SessionID: sessionID, Lines: []domain.CartLine{}, UpdatedAt: s.now()}, nil
}

// lineLimit caps a line's quantity at the known stock, when the catalog
// reports one, and at the configured maximum otherwise.
func (s *cartService) lineLimit(stock int64) int {
	limit := s.maxQty
	if stock > 0 && stock < int64(limit) {
		limit = int(stock)
	}
	return limit
}

func (s *cartService) persist(ctx context.Context, cart *domain.Cart) error {
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = s.now()
	}
	cart.UpdatedAt = s.now()
	if err := s.store.Save(ctx, *cart); err != nil {
		return s.translateStoreError(err)
	}
	return nil
}

func (s *cartService) translateStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return ErrCartUnavailable
}

func requireSession(sessionID string) (string, error) {
	trimmed := strings.TrimSpace(sessionID)
	if trimmed == "" {
		return "", fmt.Errorf("%w: session id is required", ErrCartInvalidInput)
	}
	return trimmed, nil
}
