package services

import (
	"context"

	"github.com/crownside/storefront/internal/domain"
)

// CatalogService exposes the storefront's read view over the product catalog,
// including presale availability derived from release dates.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListPresales(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
}

// CartService mutates the session-scoped cart. Every mutation persists before
// returning, so a successful call is durable.
type CartService interface {
	GetCart(ctx context.Context, sessionID string) (domain.Cart, error)
	AddItem(ctx context.Context, sessionID, productID string, quantity int) (domain.Cart, error)
	ChangeQuantity(ctx context.Context, sessionID, productID string, delta int) (domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID, productID string) (domain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) (domain.Cart, error)
}

// CheckoutService turns a cart into an order by capturing payment and
// recording the result with downstream collaborators.
type CheckoutService interface {
	Checkout(ctx context.Context, cmd CheckoutCommand) (domain.Order, error)
}

// SystemService aggregates operational utilities such as health reports.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.HealthReport, error)
}
