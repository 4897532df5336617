package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/crownside/storefront/internal/domain"
	"github.com/crownside/storefront/internal/platform/httpx"
	"github.com/crownside/storefront/internal/platform/requestctx"
	"github.com/crownside/storefront/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes the session scoped cart endpoints.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers constructs handlers backed by the cart service.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router. The session
// middleware must already have run on the group.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{productID}", h.changeQuantity)
	r.Delete("/items/{productID}", h.removeItem)
	r.Delete("/", h.clearCart)
}

type cartResponse struct {
	Cart      domain.Cart `json:"cart"`
	Total     int64       `json:"total"`
	ItemCount int         `json:"itemCount"`
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type changeQuantityRequest struct {
	Delta int `json:"delta"`
}

func buildCartResponse(cart domain.Cart) cartResponse {
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	return cartResponse{
		Cart:      cart,
		Total:     cart.Total(),
		ItemCount: cart.ItemCount(),
	}
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(ctx, sessionID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartResponse(cart))
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}

	var req addItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeRequestError(ctx, w, "invalid_request", "request body must be valid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		writeRequestError(ctx, w, "invalid_request", "productId is required", http.StatusBadRequest)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.carts.AddItem(ctx, sessionID, strings.TrimSpace(req.ProductID), req.Quantity)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartResponse(cart))
}

func (h *CartHandlers) changeQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w)
	if !ok {
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		writeRequestError(ctx, w, "invalid_request", "product id is required", http.StatusBadRequest)
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(w, r, err)
		return
	}

	var req changeQuantityRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeRequestError(ctx, w, "invalid_request", "request body must be valid JSON", http.StatusBadRequest)
		return
	}
	if req.Delta == 0 {
		writeRequestError(ctx, w, "invalid_request", "delta must be non-zero", http.StatusBadRequest)
		return
	}

	cart, err := h.carts.ChangeQuantity(ctx, sessionID, productID, req.Delta)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartResponse(cart))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w)
	if !ok {
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		writeRequestError(ctx, w, "invalid_request", "product id is required", http.StatusBadRequest)
		return
	}

	cart, err := h.carts.RemoveItem(ctx, sessionID, productID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartResponse(cart))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.requireSession(ctx, w)
	if !ok {
		return
	}

	cart, err := h.carts.ClearCart(ctx, sessionID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartResponse(cart))
}

func (h *CartHandlers) requireSession(ctx context.Context, w http.ResponseWriter) (string, bool) {
	if h.carts == nil {
		writeRequestError(ctx, w, "cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable)
		return "", false
	}
	sessionID, ok := requestctx.SessionID(ctx)
	if !ok || strings.TrimSpace(sessionID) == "" {
		writeRequestError(ctx, w, "session_required", "a session id header is required", http.StatusBadRequest)
		return "", false
	}
	return sessionID, true
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		writeRequestError(ctx, w, "invalid_request", "invalid cart request", http.StatusBadRequest)
	case errors.Is(err, services.ErrCartProductNotFound):
		writeRequestError(ctx, w, "product_not_found", "product not found", http.StatusNotFound)
	case errors.Is(err, services.ErrCartUnavailable):
		writeRequestError(ctx, w, "cart_unavailable", "cart is temporarily unavailable", http.StatusServiceUnavailable)
	default:
		writeRequestError(ctx, w, "internal_error", "failed to update cart", http.StatusInternalServerError)
	}
}
