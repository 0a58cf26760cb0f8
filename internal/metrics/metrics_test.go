package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	// Observations after repeated Init must not panic.
	ObserveSyncOutcome("accepted")
	ObserveSubmission("invalid")
	ObserveHTTPRequest(http.MethodPost, "/api/save-record", http.StatusOK, 50*time.Millisecond)
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}
