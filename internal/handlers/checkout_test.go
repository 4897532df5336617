package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crownside/storefront/internal/domain"
	"github.com/crownside/storefront/internal/services"
)

type stubCheckoutService struct {
	checkoutFunc func(ctx context.Context, cmd services.CheckoutCommand) (domain.Order, error)
}

func (s *stubCheckoutService) Checkout(ctx context.Context, cmd services.CheckoutCommand) (domain.Order, error) {
	if s.checkoutFunc == nil {
		return domain.Order{}, errors.New("unexpected Checkout call")
	}
	return s.checkoutFunc(ctx, cmd)
}

func newCheckoutRouter(service services.CheckoutService) chi.Router {
	handler := NewCheckoutHandlers(service)
	router := chi.NewRouter()
	router.Route("/checkout", func(r chi.Router) {
		r.Use(RequireSession(DefaultSessionHeader))
		handler.Routes(r)
	})
	return router
}

const checkoutBody = `{"customer":{"name":"Ana Rivera","email":"ana@example.com"},"paymentMethodId":"pm_123"}`

func TestCheckoutHandlersPlaceOrder(t *testing.T) {
	placed := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)
	service := &stubCheckoutService{
		checkoutFunc: func(ctx context.Context, cmd services.CheckoutCommand) (domain.Order, error) {
			if cmd.SessionID != "sess-42" {
				t.Fatalf("unexpected session id %q", cmd.SessionID)
			}
			if cmd.Customer.Email != "ana@example.com" || cmd.PaymentMethodID != "pm_123" {
				t.Fatalf("unexpected command %#v", cmd)
			}
			return domain.Order{
				ID:         "01J7ZW",
				SessionID:  cmd.SessionID,
				Customer:   cmd.Customer,
				Total:      125000,
				Currency:   "MXN",
				PaymentRef: "pi_456",
				PlacedAt:   placed,
			}, nil
		},
	}

	rr := httptest.NewRecorder()
	newCheckoutRouter(service).ServeHTTP(rr, newSessionRequest(http.MethodPost, "/checkout/", checkoutBody))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp checkoutResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order.ID != "01J7ZW" || resp.Order.PaymentRef != "pi_456" {
		t.Fatalf("unexpected order payload: %#v", resp.Order)
	}
}

func TestCheckoutHandlersMissingSession(t *testing.T) {
	service := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/checkout/", nil)
	rr := httptest.NewRecorder()
	newCheckoutRouter(service).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	assertErrorCode(t, rr, "session_required")
}

func TestCheckoutHandlersEmptyBody(t *testing.T) {
	service := &stubCheckoutService{}
	rr := httptest.NewRecorder()
	newCheckoutRouter(service).ServeHTTP(rr, newSessionRequest(http.MethodPost, "/checkout/", ""))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	assertErrorCode(t, rr, "invalid_request")
}

func TestCheckoutHandlersEmptyCart(t *testing.T) {
	service := &stubCheckoutService{
		checkoutFunc: func(ctx context.Context, cmd services.CheckoutCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrCheckoutEmptyCart
		},
	}

	rr := httptest.NewRecorder()
	newCheckoutRouter(service).ServeHTTP(rr, newSessionRequest(http.MethodPost, "/checkout/", checkoutBody))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	assertErrorCode(t, rr, "cart_empty")
}

func TestCheckoutHandlersPresaleLockedDetails(t *testing.T) {
	unlock := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	service := &stubCheckoutService{
		checkoutFunc: func(ctx context.Context, cmd services.CheckoutCommand) (domain.Order, error) {
			return domain.Order{}, &services.PresaleLockedError{ProductID: "crown-02", Name: "Winter Drop", UnlockAt: &unlock}
		},
	}

	rr := httptest.NewRecorder()
	newCheckoutRouter(service).ServeHTTP(rr, newSessionRequest(http.MethodPost, "/checkout/", checkoutBody))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode error payload: %v", err)
	}
	if payload["error"] != "presale_locked" {
		t.Fatalf("expected presale_locked, got %v", payload["error"])
	}
	if payload["productId"] != "crown-02" {
		t.Fatalf("expected productId detail, got %v", payload["productId"])
	}
	if payload["unlockAt"] != "2026-12-01T00:00:00Z" {
		t.Fatalf("expected unlockAt detail, got %v", payload["unlockAt"])
	}
}

func TestCheckoutHandlersPaymentDeclined(t *testing.T) {
	service := &stubCheckoutService{
		checkoutFunc: func(ctx context.Context, cmd services.CheckoutCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrCheckoutPaymentDeclined
		},
	}

	rr := httptest.NewRecorder()
	newCheckoutRouter(service).ServeHTTP(rr, newSessionRequest(http.MethodPost, "/checkout/", checkoutBody))

	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("expected status 402, got %d", rr.Code)
	}
	assertErrorCode(t, rr, "payment_declined")
}

func TestCheckoutHandlersInvalidInput(t *testing.T) {
	service := &stubCheckoutService{
		checkoutFunc: func(ctx context.Context, cmd services.CheckoutCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrCheckoutInvalidInput
		},
	}

	rr := httptest.NewRecorder()
	newCheckoutRouter(service).ServeHTTP(rr, newSessionRequest(http.MethodPost, "/checkout/", `{"customer":{"name":""}}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
