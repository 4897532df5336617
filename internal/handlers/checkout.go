package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crownside/storefront/internal/domain"
	"github.com/crownside/storefront/internal/platform/httpx"
	"github.com/crownside/storefront/internal/platform/requestctx"
	"github.com/crownside/storefront/internal/services"
)

const maxCheckoutBodySize = 16 * 1024

// CheckoutHandlers exposes the endpoint that turns a cart into an order.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs handlers backed by the checkout service.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes wires the /checkout endpoints onto the provided router. The session
// middleware must already have run on the group.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.placeOrder)
}

type checkoutRequest struct {
	Customer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"customer"`
	PaymentMethodID string `json:"paymentMethodId"`
	Provider        string `json:"provider"`
}

type checkoutResponse struct {
	Order domain.Order `json:"order"`
}

func (h *CheckoutHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeRequestError(ctx, w, "checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable)
		return
	}

	sessionID, ok := requestctx.SessionID(ctx)
	if !ok || strings.TrimSpace(sessionID) == "" {
		writeRequestError(ctx, w, "session_required", "a session id header is required", http.StatusBadRequest)
		return
	}

	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}

	var req checkoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeRequestError(ctx, w, "invalid_request", "request body must be valid JSON", http.StatusBadRequest)
		return
	}

	cmd := services.CheckoutCommand{
		SessionID: sessionID,
		Customer: domain.Customer{
			Name:  strings.TrimSpace(req.Customer.Name),
			Email: strings.TrimSpace(req.Customer.Email),
		},
		PaymentMethodID: strings.TrimSpace(req.PaymentMethodID),
		Provider:        strings.TrimSpace(req.Provider),
	}

	order, err := h.checkout.Checkout(ctx, cmd)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, checkoutResponse{Order: order})
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	var locked *services.PresaleLockedError
	switch {
	case errors.As(err, &locked):
		payload := httpx.NewError("presale_locked", "an item in the cart has not been released yet", http.StatusConflict)
		details := map[string]any{
			"productId": locked.ProductID,
			"name":      locked.Name,
		}
		if locked.UnlockAt != nil {
			details["unlockAt"] = locked.UnlockAt.UTC().Format(time.RFC3339)
		}
		httpx.WriteError(ctx, w, payload.WithDetails(details))
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		writeRequestError(ctx, w, "invalid_request", "invalid checkout request", http.StatusBadRequest)
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		writeRequestError(ctx, w, "cart_empty", "cart is empty", http.StatusConflict)
	case errors.Is(err, services.ErrCheckoutPresaleLocked):
		writeRequestError(ctx, w, "presale_locked", "an item in the cart has not been released yet", http.StatusConflict)
	case errors.Is(err, services.ErrCheckoutPaymentDeclined):
		writeRequestError(ctx, w, "payment_declined", "payment was declined", http.StatusPaymentRequired)
	case errors.Is(err, services.ErrCheckoutUnavailable):
		writeRequestError(ctx, w, "checkout_unavailable", "checkout is temporarily unavailable", http.StatusServiceUnavailable)
	default:
		writeRequestError(ctx, w, "internal_error", "failed to place order", http.StatusInternalServerError)
	}
}
