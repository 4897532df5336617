package handlers

import (
	"net/http"
	"time"

	"github.com/crownside/storefront/internal/domain"
	"github.com/crownside/storefront/internal/platform/httpx"
	"github.com/crownside/storefront/internal/services"
)

var startTime = time.Now()

// HealthHandlers serves liveness and readiness endpoints.
type HealthHandlers struct {
	system services.SystemService
	clock  func() time.Time
}

// HealthHandlersDeps carries the collaborators for health endpoints.
type HealthHandlersDeps struct {
	System services.SystemService
	Clock  func() time.Time
}

// NewHealthHandlers constructs handlers for /healthz and /readyz.
func NewHealthHandlers(deps HealthHandlersDeps) *HealthHandlers {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &HealthHandlers{
		system: deps.System,
		clock:  func() time.Time { return clock().UTC() },
	}
}

// Healthz reports process liveness without touching dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(startTime).String(),
		"timestamp": h.clock().Format(time.RFC3339),
	})
}

// Readyz probes downstream dependencies and reports the aggregate verdict.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.system == nil {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"timestamp": h.clock().Format(time.RFC3339),
		})
		return
	}

	report, err := h.system.HealthReport(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("health_report_failed", "failed to collect health report", http.StatusServiceUnavailable))
		return
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, report)
}
