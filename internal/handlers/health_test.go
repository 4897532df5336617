package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crownside/storefront/internal/domain"
)

type stubSystemService struct {
	reportFunc func(ctx context.Context) (domain.HealthReport, error)
}

func (s *stubSystemService) HealthReport(ctx context.Context) (domain.HealthReport, error) {
	if s.reportFunc == nil {
		return domain.HealthReport{}, errors.New("unexpected HealthReport call")
	}
	return s.reportFunc(ctx)
}

func TestHealthzAlwaysOK(t *testing.T) {
	handlers := NewHealthHandlers(HealthHandlersDeps{})

	rr := httptest.NewRecorder()
	handlers.Healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("expected ok, got %v", payload["status"])
	}
	if payload["uptime"] == "" {
		t.Fatalf("expected uptime in payload")
	}
}

func TestReadyzReportsDependencies(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	handlers := NewHealthHandlers(HealthHandlersDeps{
		System: &stubSystemService{
			reportFunc: func(ctx context.Context) (domain.HealthReport, error) {
				return domain.HealthReport{
					Status: domain.HealthStatusOK,
					Checks: map[string]domain.HealthCheck{
						"firestore": {Status: domain.HealthStatusOK, CheckedAt: now},
						"catalog":   {Status: domain.HealthStatusOK, CheckedAt: now},
					},
					GeneratedAt: now,
				}, nil
			},
		},
		Clock: func() time.Time { return now },
	})

	rr := httptest.NewRecorder()
	handlers.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var report domain.HealthReport
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.Status != domain.HealthStatusOK || len(report.Checks) != 2 {
		t.Fatalf("unexpected report: %#v", report)
	}
}

func TestReadyzErrorStatusMapsTo503(t *testing.T) {
	handlers := NewHealthHandlers(HealthHandlersDeps{
		System: &stubSystemService{
			reportFunc: func(ctx context.Context) (domain.HealthReport, error) {
				return domain.HealthReport{
					Status: domain.HealthStatusError,
					Checks: map[string]domain.HealthCheck{
						"firestore": {Status: domain.HealthStatusError, Error: "connection refused"},
					},
				}, nil
			},
		},
	})

	rr := httptest.NewRecorder()
	handlers.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestReadyzReportFailure(t *testing.T) {
	handlers := NewHealthHandlers(HealthHandlersDeps{
		System: &stubSystemService{
			reportFunc: func(ctx context.Context) (domain.HealthReport, error) {
				return domain.HealthReport{}, errors.New("collector failed")
			},
		},
	})

	rr := httptest.NewRecorder()
	handlers.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	assertErrorCode(t, rr, "health_report_failed")
}
