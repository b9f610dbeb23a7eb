package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Strob0t/contactrelay/internal/middleware"
)

func TestDeprecation_SetsHeaders(t *testing.T) {
	sunset := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)
	handler := middleware.Deprecation(sunset, "")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/send-email", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Deprecation"); got != "true" {
		t.Fatalf("expected Deprecation header 'true', got %q", got)
	}

	sunsetVal := rec.Header().Get("Sunset")
	parsed, err := time.Parse(http.TimeFormat, sunsetVal)
	if err != nil {
		t.Fatalf("Sunset header is not valid HTTP-date: %v", err)
	}
	if !parsed.Equal(sunset) {
		t.Fatalf("expected sunset %v, got %v", sunset, parsed)
	}
	if got := rec.Header().Get("Link"); got != "" {
		t.Errorf("expected no Link header without successor, got %q", got)
	}
}

func TestDeprecation_SuccessorLink(t *testing.T) {
	sunset := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	mw := middleware.Deprecation(sunset, "/api/contact/")

	tests := []struct {
		path string
		want string
	}{
		{"/send-email", `</api/contact/send-email>; rel="successor-version"`},
		{"/", `</api/contact>; rel="successor-version"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}))
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusTeapot {
				t.Fatalf("expected next handler status, got %d", rec.Code)
			}
			if got := rec.Header().Get("Link"); got != tt.want {
				t.Errorf("expected Link %q, got %q", tt.want, got)
			}
		})
	}
}
