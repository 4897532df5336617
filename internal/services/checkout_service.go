package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/crownside/storefront/internal/domain"
	"github.com/crownside/storefront/internal/notifications"
	"github.com/crownside/storefront/internal/orders"
	"github.com/crownside/storefront/internal/payments"
	"github.com/crownside/storefront/internal/repositories"
)

// ErrCheckoutInvalidInput indicates the caller supplied invalid input.
var ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")

// ErrCheckoutEmptyCart indicates the session has nothing to purchase.
var ErrCheckoutEmptyCart = errors.New("checkout service: cart is empty")

// ErrCheckoutPresaleLocked indicates the cart holds a presale item that has not released yet.
var ErrCheckoutPresaleLocked = errors.New("checkout service: presale locked")

// ErrCheckoutPaymentDeclined indicates the PSP rejected the charge.
var ErrCheckoutPaymentDeclined = errors.New("checkout service: payment declined")

// ErrCheckoutUnavailable indicates a dependency failure prevented the checkout.
var ErrCheckoutUnavailable = errors.New("checkout service: unavailable")

// PresaleLockedError reports which item blocked the checkout and when it unlocks.
type PresaleLockedError struct {
	ProductID string
	Name      string
	UnlockAt  *time.Time
}

// Error implements the error interface.
func (e *PresaleLockedError) Error() string {
	if e.UnlockAt != nil {
		return fmt.Sprintf("checkout service: presale locked: %s until %s", e.Name, e.UnlockAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("checkout service: presale locked: %s", e.Name)
}

// Unwrap ties the error to the ErrCheckoutPresaleLocked sentinel.
func (e *PresaleLockedError) Unwrap() error { return ErrCheckoutPresaleLocked }

// CheckoutCommand carries everything needed to place an order for a session.
type CheckoutCommand struct {
	SessionID       string
	Customer        domain.Customer
	PaymentMethodID string
	Provider        string
}

type chargeManager interface {
	Charge(ctx context.Context, paymentCtx payments.PaymentContext, req payments.ChargeRequest) (payments.ChargeResult, error)
}

// CheckoutServiceDeps wires the collaborators required to place orders.
type CheckoutServiceDeps struct {
	Store       repositories.CartStore
	Catalog     CatalogService
	Payments    chargeManager
	Recorder    orders.Recorder
	Notifier    notifications.Notifier
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
	Currency    string
}

type checkoutService struct {
	store    repositories.CartStore
	catalog  CatalogService
	payments chargeManager
	recorder orders.Recorder
	notifier notifications.Notifier
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
	newID    func() string
	currency string
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService constructs a CheckoutService enforcing dependency validation.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Store == nil {
		return nil, errors.New("checkout service: store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("checkout service: catalog is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payments manager is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "MXN"
	}

	return &checkoutService{
		store:    deps.Store,
		catalog:  deps.Catalog,
		payments: deps.Payments,
		recorder: deps.Recorder,
		notifier: deps.Notifier,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
		newID:    idGen,
		currency: currency,
	}, nil
}

// Checkout places an order for the session's cart. The cart stays untouched
// unless the payment captures; once it does, the order is recorded and the
// cart cleared.
func (s *checkoutService) Checkout(ctx context.Context, cmd CheckoutCommand) (domain.Order, error) {
	if err := validateCheckoutCommand(cmd); err != nil {
		return domain.Order{}, err
	}
	sessionID := strings.TrimSpace(cmd.SessionID)

	cart, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return domain.Order{}, s.translateStoreError(err)
	}
	if cart.IsEmpty() {
		return domain.Order{}, ErrCheckoutEmptyCart
	}

	if err := s.gatePresales(ctx, cart); err != nil {
		return domain.Order{}, err
	}

	total := cart.Total()
	result, err := s.payments.Charge(ctx,
		payments.PaymentContext{PreferredProvider: cmd.Provider, Currency: s.currency},
		payments.ChargeRequest{
			Amount:          total,
			Currency:        s.currency,
			PaymentMethodID: strings.TrimSpace(cmd.PaymentMethodID),
			Description:     fmt.Sprintf("Crownside order for session %s", sessionID),
			CustomerName:    cmd.Customer.Name,
			CustomerEmail:   cmd.Customer.Email,
			Metadata:        map[string]string{"session_id": sessionID},
			IdempotencyKey:  sessionID + ":" + s.newID(),
		},
	)
	if err != nil {
		if errors.Is(err, payments.ErrDeclined) {
			s.logger(ctx, "checkout.payment_declined", map[string]any{"session_id": sessionID})
			return domain.Order{}, fmt.Errorf("%w: %v", ErrCheckoutPaymentDeclined, err)
		}
		s.logger(ctx, "checkout.payment_failed", map[string]any{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return domain.Order{}, ErrCheckoutUnavailable
	}

	order := domain.Order{
		ID:         s.newID(),
		SessionID:  sessionID,
		Customer:   cmd.Customer,
		Lines:      append([]domain.CartLine(nil), cart.Lines...),
		Total:      total,
		Currency:   s.currency,
		PaymentRef: result.IntentID,
		PlacedAt:   s.now(),
	}

	// Payment has captured; downstream failures must not undo the order.
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, order); err != nil {
			s.logger(ctx, "checkout.record_failed", map[string]any{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}
	if s.notifier != nil {
		if err := s.notifier.SendOrderConfirmation(ctx, order); err != nil {
			s.logger(ctx, "checkout.notification_failed", map[string]any{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}

	if err := s.store.Delete(ctx, sessionID); err != nil {
		s.logger(ctx, "checkout.clear_failed", map[string]any{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}

	s.logger(ctx, "checkout.completed", map[string]any{
		"order_id":   order.ID,
		"session_id": sessionID,
		"total":      total,
	})
	return order, nil
}

// gatePresales rejects the checkout when any presale line has not released.
// The check is all-or-nothing so mixed carts never partially ship.
func (s *checkoutService) gatePresales(ctx context.Context, cart domain.Cart) error {
	for _, line := range cart.Lines {
		if !line.Presale {
			continue
		}
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, ErrCatalogNotFound) {
				// Delisted presale items cannot be honoured.
				return &PresaleLockedError{ProductID: line.ProductID, Name: line.Name, UnlockAt: line.ReleaseAt}
			}
			return ErrCheckoutUnavailable
		}
		if !product.Available {
			var unlockAt *time.Time
			if product.IsPresale() {
				unlockAt = product.Presale.ReleaseAt
			}
			return &PresaleLockedError{ProductID: product.ID, Name: product.Name, UnlockAt: unlockAt}
		}
	}
	return nil
}

func (s *checkoutService) translateStoreError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return ErrCheckoutUnavailable
}

func validateCheckoutCommand(cmd CheckoutCommand) error {
	if strings.TrimSpace(cmd.SessionID) == "" {
		return fmt.Errorf("%w: session id is required", ErrCheckoutInvalidInput)
	}
	if strings.TrimSpace(cmd.Customer.Name) == "" {
		return fmt.Errorf("%w: customer name is required", ErrCheckoutInvalidInput)
	}
	email := strings.TrimSpace(cmd.Customer.Email)
	if email == "" {
		return fmt.Errorf("%w: customer email is required", ErrCheckoutInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: customer email is malformed", ErrCheckoutInvalidInput)
	}
	if strings.TrimSpace(cmd.PaymentMethodID) == "" {
		return fmt.Errorf("%w: payment method is required", ErrCheckoutInvalidInput)
	}
	return nil
}
