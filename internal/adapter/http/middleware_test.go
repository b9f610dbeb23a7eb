package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestCORS_AllowedOrigin(t *testing.T) {
	h := CORS([]string{"https://alex.example.org", "https://www.alex.example.org"})(noContent())

	req := httptest.NewRequest(http.MethodPost, "/send-email", http.NoBody)
	req.Header.Set("Origin", "https://www.alex.example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://www.alex.example.org" {
		t.Errorf("expected origin echoed, got %q", got)
	}
	if rec.Header().Get("Vary") != "Origin" {
		t.Error("expected Vary: Origin")
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	h := CORS([]string{"https://alex.example.org"})(noContent())

	req := httptest.NewRequest(http.MethodPost, "/send-email", http.NoBody)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header, got %q", got)
	}
}

func TestCORS_Wildcard(t *testing.T) {
	h := CORS([]string{"*"})(noContent())

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "https://anywhere.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected *, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS([]string{"https://alex.example.org"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	tests := []struct {
		origin string
		want   int
	}{
		{"https://alex.example.org", http.StatusNoContent},
		{"https://evil.example", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/send-email", http.NoBody)
		req.Header.Set("Origin", tt.origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.origin, tt.want, rec.Code)
		}
	}
	if called {
		t.Error("preflight must not reach the handler")
	}
}

func TestCORS_PreflightAllowsIdempotencyKey(t *testing.T) {
	h := CORS([]string{"https://alex.example.org"})(noContent())

	req := httptest.NewRequest(http.MethodOptions, "/api/contact/send-email", http.NoBody)
	req.Header.Set("Origin", "https://alex.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type,idempotency-key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	allowed := strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers"))
	for _, want := range strings.Split(req.Header.Get("Access-Control-Request-Headers"), ",") {
		if !strings.Contains(allowed, want) {
			t.Errorf("requested header %q not allowed by %q", want, allowed)
		}
	}
	if exposed := rec.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(exposed, "Idempotent-Replayed") {
		t.Errorf("expected Idempotent-Replayed exposed, got %q", exposed)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(noContent()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("expected %s header", h)
		}
	}
}

func TestRequestTimeout(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := RequestTimeout(time.Second)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if !ok || time.Until(deadline) > time.Second {
		t.Errorf("expected deadline within 1s, got %v (set=%v)", deadline, ok)
	}

	// Zero disables the timeout.
	RequestTimeout(0)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		if _, set := r.Context().Deadline(); set {
			t.Error("expected no deadline")
		}
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
}

func TestLogger_RecordsStatusAndBytes(t *testing.T) {
	inner := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: inner, status: http.StatusOK}

	rw.WriteHeader(http.StatusTeapot)
	_, _ = rw.Write([]byte("short and stout"))

	if rw.status != http.StatusTeapot || rw.written != 15 {
		t.Errorf("expected 418/15, got %d/%d", rw.status, rw.written)
	}
	if rw.Unwrap() != inner {
		t.Error("Unwrap must return the inner writer")
	}
}

func TestReadJSON_TooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"k":"`+strings.Repeat("x", 64)+`"}`))
	rec := httptest.NewRecorder()

	_, ok := readJSON[map[string]string](rec, req, 16)
	if ok {
		t.Fatal("expected failure")
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestWriteSubmitError_WrappedCancel(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	writeSubmitError(rec, req, errors.Join(errors.New("dispatch"), context.Canceled))
	if rec.Code != StatusClientClosedRequest {
		t.Errorf("expected 499, got %d", rec.Code)
	}
}

