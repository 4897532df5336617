package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crownside/storefront/internal/domain"
	"github.com/crownside/storefront/internal/platform/httpx"
	"github.com/crownside/storefront/internal/services"
)

// CatalogHandlers exposes the public product and presale endpoints.
type CatalogHandlers struct {
	catalog       services.CatalogService
	countdownOpts []services.CountdownOption
}

// NewCatalogHandlers constructs handlers backed by the catalog service.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// ProductRoutes wires the /products endpoints onto the provided router.
func (h *CatalogHandlers) ProductRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/{productID}", h.getProduct)
}

// PresaleRoutes wires the /presales endpoints onto the provided router.
func (h *CatalogHandlers) PresaleRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listPresales)
	r.Get("/{presaleID}", h.getPresale)
	r.Get("/{presaleID}/countdown", h.presaleCountdown)
	r.Get("/{presaleID}/countdown/stream", h.streamCountdown)
}

type productListResponse struct {
	Products []services.Product `json:"products"`
}

type productResponse struct {
	Product services.Product `json:"product"`
}

type countdownResponse struct {
	ProductID string           `json:"productId"`
	Available bool             `json:"available"`
	Remaining domain.Remaining `json:"remaining"`
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeRequestError(ctx, w, "catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable)
		return
	}

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	if products == nil {
		products = []services.Product{}
	}
	httpx.WriteJSON(w, http.StatusOK, productListResponse{Products: products})
}

func (h *CatalogHandlers) listPresales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeRequestError(ctx, w, "catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable)
		return
	}

	products, err := h.catalog.ListPresales(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	if products == nil {
		products = []services.Product{}
	}
	httpx.WriteJSON(w, http.StatusOK, productListResponse{Products: products})
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.lookup(w, r, "productID")
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, productResponse{Product: product})
}

func (h *CatalogHandlers) getPresale(w http.ResponseWriter, r *http.Request) {
	product, ok := h.lookup(w, r, "presaleID")
	if !ok {
		return
	}
	if !product.IsPresale() {
		writeRequestError(r.Context(), w, "presale_not_found", "presale not found", http.StatusNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, productResponse{Product: product})
}

func (h *CatalogHandlers) presaleCountdown(w http.ResponseWriter, r *http.Request) {
	product, ok := h.lookup(w, r, "presaleID")
	if !ok {
		return
	}
	if !product.IsPresale() {
		writeRequestError(r.Context(), w, "presale_not_found", "presale not found", http.StatusNotFound)
		return
	}

	resp := countdownResponse{
		ProductID: product.ID,
		Available: product.Available,
		Remaining: domain.Remaining{Elapsed: true},
	}
	if product.Remaining != nil {
		resp.Remaining = *product.Remaining
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// streamCountdown pushes countdown ticks as server-sent events until the
// release elapses or the client disconnects.
func (h *CatalogHandlers) streamCountdown(w http.ResponseWriter, r *http.Request) {
	product, ok := h.lookup(w, r, "presaleID")
	if !ok {
		return
	}
	if !product.IsPresale() {
		writeRequestError(r.Context(), w, "presale_not_found", "presale not found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeRequestError(r.Context(), w, "streaming_unsupported", "response writer does not support streaming", http.StatusNotImplemented)
		return
	}

	var releaseAt time.Time
	if product.Presale.ReleaseAt != nil {
		releaseAt = *product.Presale.ReleaseAt
	}

	countdown := services.NewCountdown(releaseAt, h.countdownOpts...)
	countdown.Start(r.Context())
	defer countdown.Stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for remaining := range countdown.Updates() {
		payload, err := json.Marshal(countdownResponse{
			ProductID: product.ID,
			Available: remaining.Elapsed,
			Remaining: remaining,
		})
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (h *CatalogHandlers) lookup(w http.ResponseWriter, r *http.Request, param string) (services.Product, bool) {
	ctx := r.Context()
	if h.catalog == nil {
		writeRequestError(ctx, w, "catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable)
		return services.Product{}, false
	}

	id := strings.TrimSpace(chi.URLParam(r, param))
	if id == "" {
		writeRequestError(ctx, w, "invalid_request", "product id is required", http.StatusBadRequest)
		return services.Product{}, false
	}

	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return services.Product{}, false
	}
	return product, true
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		writeRequestError(ctx, w, "invalid_request", "invalid catalog request", http.StatusBadRequest)
	case errors.Is(err, services.ErrCatalogNotFound):
		writeRequestError(ctx, w, "product_not_found", "product not found", http.StatusNotFound)
	case errors.Is(err, services.ErrCatalogUnavailable):
		writeRequestError(ctx, w, "catalog_unavailable", "catalog is temporarily unavailable", http.StatusBadGateway)
	default:
		writeRequestError(ctx, w, "internal_error", "failed to load catalog", http.StatusInternalServerError)
	}
}
