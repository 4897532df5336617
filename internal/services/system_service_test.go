package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crownside/storefront/internal/domain"
)

type stubHealthRepository struct {
	report domain.HealthReport
	err    error
}

func (s *stubHealthRepository) Collect(context.Context) (domain.HealthReport, error) {
	return s.report, s.err
}

func TestSystemServiceHealthReport(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubHealthRepository{report: domain.HealthReport{
		Status: domain.HealthStatusDegraded,
		Checks: map[string]domain.HealthCheck{
			"firestore": {Status: domain.HealthStatusDegraded, Detail: "slow"},
		},
	}}

	svc, err := NewSystemService(SystemServiceDeps{HealthRepository: repo, Clock: fixedClock(now)})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("HealthReport: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("unexpected status: %s", report.Status)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Fatalf("expected generated-at stamped, got %v", report.GeneratedAt)
	}
}

func TestSystemServiceHealthReportError(t *testing.T) {
	svc, err := NewSystemService(SystemServiceDeps{HealthRepository: &stubHealthRepository{err: errors.New("probe failed")}})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}
	if _, err := svc.HealthReport(context.Background()); err == nil {
		t.Fatal("expected error from failing repository")
	}
}

func TestNewSystemServiceRequiresRepository(t *testing.T) {
	if _, err := NewSystemService(SystemServiceDeps{}); err == nil {
		t.Fatal("expected error for missing repository")
	}
}
