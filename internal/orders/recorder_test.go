package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crownside/storefront/internal/domain"
)

func testOrder() domain.Order {
	return domain.Order{
		ID:        "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		SessionID: "sess",
		Customer:  domain.Customer{Name: "Ana", Email: "ana@example.com"},
		Lines: []domain.CartLine{
			{ProductID: "p1", Name: "Cap", UnitPrice: 25000, Currency: "MXN", Quantity: 1},
		},
		Total:    25000,
		Currency: "MXN",
		PlacedAt: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRecordPostsOrderJSON(t *testing.T) {
	var received domain.Order
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	recorder, err := NewHTTPRecorder(HTTPRecorderDeps{SinkURL: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPRecorder: %v", err)
	}

	if err := recorder.Record(context.Background(), testOrder()); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if received.ID != "01ARZ3NDEKTSV4RRFFQ69G5FAV" || received.Total != 25000 {
		t.Fatalf("unexpected payload received: %+v", received)
	}
}

func TestRecordSurfacesSinkRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	recorder, err := NewHTTPRecorder(HTTPRecorderDeps{SinkURL: server.URL})
	if err != nil {
		t.Fatalf("NewHTTPRecorder: %v", err)
	}

	if err := recorder.Record(context.Background(), testOrder()); err == nil {
		t.Fatal("expected error for rejected order")
	}
}

func TestNewHTTPRecorderValidation(t *testing.T) {
	if _, err := NewHTTPRecorder(HTTPRecorderDeps{}); err == nil {
		t.Fatal("expected error for missing sink url")
	}
	if _, err := NewHTTPRecorder(HTTPRecorderDeps{SinkURL: "not a url"}); err == nil {
		t.Fatal("expected error for malformed sink url")
	}
}
