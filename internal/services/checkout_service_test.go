package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crownside/storefront/internal/domain"
	"github.com/crownside/storefront/internal/payments"
)

type stubChargeManager struct {
	result payments.ChargeResult
	err    error
	calls  int
	last   payments.ChargeRequest
}

func (s *stubChargeManager) Charge(_ context.Context, _ payments.PaymentContext, req payments.ChargeRequest) (payments.ChargeResult, error) {
	s.calls++
	s.last = req
	return s.result, s.err
}

type stubRecorder struct {
	orders []domain.Order
	err    error
}

func (s *stubRecorder) Record(_ context.Context, order domain.Order) error {
	s.orders = append(s.orders, order)
	return s.err
}

type stubNotifier struct {
	orders []domain.Order
	err    error
}

func (s *stubNotifier) SendOrderConfirmation(_ context.Context, order domain.Order) error {
	s.orders = append(s.orders, order)
	return s.err
}

type checkoutFixture struct {
	store    *memoryCartStore
	catalog  *stubCatalogService
	payments *stubChargeManager
	recorder *stubRecorder
	notifier *stubNotifier
	svc      CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		store:    newMemoryCartStore(),
		catalog:  &stubCatalogService{products: map[string]Product{}},
		payments: &stubChargeManager{result: payments.ChargeResult{IntentID: "pi_ok", Status: payments.StatusSucceeded}},
		recorder: &stubRecorder{},
		notifier: &stubNotifier{},
	}

	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Store:       f.store,
		Catalog:     f.catalog,
		Payments:    f.payments,
		Recorder:    f.recorder,
		Notifier:    f.notifier,
		Clock:       fixedClock(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)),
		IDGenerator: func() string { return "01ARZ3NDEKTSV4RRFFQ69G5FAV" },
		Currency:    "MXN",
	})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *checkoutFixture) seedCart(t *testing.T, lines ...domain.CartLine) {
	t.Helper()
	if err := f.store.Save(context.Background(), domain.Cart{SessionID: "sess", Lines: lines}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
}

func validCommand() CheckoutCommand {
	return CheckoutCommand{
		SessionID:       "sess",
		Customer:        domain.Customer{Name: "Ana", Email: "ana@example.com"},
		PaymentMethodID: "pm_card",
	}
}

func TestCheckoutPlacesOrderAndClearsCart(t *testing.T) {
	f := newCheckoutFixture(t)
	f.seedCart(t,
		domain.CartLine{ProductID: "p1", Name: "Cap", UnitPrice: 25000, Currency: "MXN", Quantity: 1},
	)

	order, err := f.svc.Checkout(context.Background(), validCommand())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if order.Total != 25000 {
		t.Fatalf("unexpected total: %d", order.Total)
	}
	if order.PaymentRef != "pi_ok" || order.Currency != "MXN" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if f.payments.calls != 1 || f.payments.last.Amount != 25000 {
		t.Fatalf("unexpected charge: calls=%d last=%+v", f.payments.calls, f.payments.last)
	}

	if len(f.recorder.orders) != 1 || f.recorder.orders[0].ID != order.ID {
		t.Fatalf("order not recorded: %+v", f.recorder.orders)
	}
	if len(f.notifier.orders) != 1 {
		t.Fatalf("confirmation not sent: %+v", f.notifier.orders)
	}

	cart, err := f.store.Load(context.Background(), "sess")
	if err != nil {
		t.Fatalf("load cart: %v", err)
	}
	if !cart.IsEmpty() {
		t.Fatalf("cart not cleared after checkout: %+v", cart.Lines)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	_, err := f.svc.Checkout(context.Background(), validCommand())
	if !errors.Is(err, ErrCheckoutEmptyCart) {
		t.Fatalf("expected ErrCheckoutEmptyCart, got %v", err)
	}
	if f.payments.calls != 0 {
		t.Fatal("payment must not be attempted for an empty cart")
	}
}

func TestCheckoutBlocksLockedPresale(t *testing.T) {
	f := newCheckoutFixture(t)
	release := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	f.catalog.products["drop"] = Product{
		CatalogItem: domain.CatalogItem{ID: "drop", Name: "Winter Drop", Price: 89900, Currency: "MXN",
			Presale: &domain.PresaleInfo{ReleaseAt: &release}},
		Available: false,
	}
	f.seedCart(t,
		domain.CartLine{ProductID: "p1", Name: "Cap", UnitPrice: 25000, Currency: "MXN", Quantity: 1},
		domain.CartLine{ProductID: "drop", Name: "Winter Drop", UnitPrice: 89900, Currency: "MXN", Quantity: 1, Presale: true},
	)

	_, err := f.svc.Checkout(context.Background(), validCommand())
	if !errors.Is(err, ErrCheckoutPresaleLocked) {
		t.Fatalf("expected ErrCheckoutPresaleLocked, got %v", err)
	}

	var lockedErr *PresaleLockedError
	if !errors.As(err, &lockedErr) {
		t.Fatalf("expected PresaleLockedError, got %T", err)
	}
	if lockedErr.Name != "Winter Drop" || lockedErr.UnlockAt == nil || !lockedErr.UnlockAt.Equal(release) {
		t.Fatalf("unexpected lock details: %+v", lockedErr)
	}

	// All-or-nothing: nothing charged, cart untouched.
	if f.payments.calls != 0 {
		t.Fatal("payment must not be attempted when a presale is locked")
	}
	cart, _ := f.store.Load(context.Background(), "sess")
	if len(cart.Lines) != 2 {
		t.Fatalf("cart must stay intact, got %+v", cart.Lines)
	}
}

func TestCheckoutBlocksDelistedPresale(t *testing.T) {
	f := newCheckoutFixture(t)
	release := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	f.seedCart(t,
		domain.CartLine{ProductID: "gone", Name: "Vaulted Drop", UnitPrice: 89900, Currency: "MXN",
			Quantity: 1, Presale: true, ReleaseAt: &release},
	)

	_, err := f.svc.Checkout(context.Background(), validCommand())

	var lockedErr *PresaleLockedError
	if !errors.As(err, &lockedErr) {
		t.Fatalf("expected PresaleLockedError, got %v", err)
	}
	if lockedErr.ProductID != "gone" || lockedErr.UnlockAt == nil || !lockedErr.UnlockAt.Equal(release) {
		t.Fatalf("unexpected lock details: %+v", lockedErr)
	}
	if f.payments.calls != 0 {
		t.Fatal("payment must not be attempted for a delisted presale")
	}
}

func TestCheckoutAllowsReleasedPresale(t *testing.T) {
	f := newCheckoutFixture(t)
	release := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	f.catalog.products["drop"] = Product{
		CatalogItem: domain.CatalogItem{ID: "drop", Name: "Summer Drop", Price: 89900, Currency: "MXN",
			Presale: &domain.PresaleInfo{ReleaseAt: &release}},
		Available: true,
	}
	f.seedCart(t,
		domain.CartLine{ProductID: "drop", Name: "Summer Drop", UnitPrice: 89900, Currency: "MXN", Quantity: 1, Presale: true},
	)

	order, err := f.svc.Checkout(context.Background(), validCommand())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if order.Total != 89900 {
		t.Fatalf("unexpected total: %d", order.Total)
	}
}

func TestCheckoutDeclinedPaymentLeavesCartIntact(t *testing.T) {
	f := newCheckoutFixture(t)
	f.payments.err = payments.ErrDeclined
	f.seedCart(t,
		domain.CartLine{ProductID: "p1", Name: "Cap", UnitPrice: 25000, Currency: "MXN", Quantity: 2},
	)

	_, err := f.svc.Checkout(context.Background(), validCommand())
	if !errors.Is(err, ErrCheckoutPaymentDeclined) {
		t.Fatalf("expected ErrCheckoutPaymentDeclined, got %v", err)
	}

	cart, _ := f.store.Load(context.Background(), "sess")
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 2 {
		t.Fatalf("cart must survive declined payment, got %+v", cart.Lines)
	}
	if len(f.recorder.orders) != 0 || len(f.notifier.orders) != 0 {
		t.Fatal("no downstream effects allowed after a declined payment")
	}
}

func TestCheckoutDownstreamFailuresDoNotUndoOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	f.recorder.err = errors.New("sink offline")
	f.notifier.err = errors.New("mail offline")
	f.seedCart(t,
		domain.CartLine{ProductID: "p1", Name: "Cap", UnitPrice: 25000, Currency: "MXN", Quantity: 1},
	)

	order, err := f.svc.Checkout(context.Background(), validCommand())
	if err != nil {
		t.Fatalf("Checkout must succeed despite downstream failures: %v", err)
	}
	if order.PaymentRef != "pi_ok" {
		t.Fatalf("unexpected order: %+v", order)
	}

	cart, _ := f.store.Load(context.Background(), "sess")
	if !cart.IsEmpty() {
		t.Fatalf("cart must still clear, got %+v", cart.Lines)
	}
}

func TestCheckoutValidatesCommand(t *testing.T) {
	f := newCheckoutFixture(t)

	cases := []struct {
		name string
		cmd  CheckoutCommand
	}{
		{name: "missing session", cmd: CheckoutCommand{
			Customer: domain.Customer{Name: "Ana", Email: "ana@example.com"}, PaymentMethodID: "pm"}},
		{name: "missing name", cmd: CheckoutCommand{
			SessionID: "sess", Customer: domain.Customer{Email: "ana@example.com"}, PaymentMethodID: "pm"}},
		{name: "missing email", cmd: CheckoutCommand{
			SessionID: "sess", Customer: domain.Customer{Name: "Ana"}, PaymentMethodID: "pm"}},
		{name: "malformed email", cmd: CheckoutCommand{
			SessionID: "sess", Customer: domain.Customer{Name: "Ana", Email: "not-an-email"}, PaymentMethodID: "pm"}},
		{name: "missing payment method", cmd: CheckoutCommand{
			SessionID: "sess", Customer: domain.Customer{Name: "Ana", Email: "ana@example.com"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Checkout(context.Background(), tc.cmd); !errors.Is(err, ErrCheckoutInvalidInput) {
				t.Fatalf("expected ErrCheckoutInvalidInput, got %v", err)
			}
		})
	}
}
