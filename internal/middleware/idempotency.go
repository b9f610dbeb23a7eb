package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/contactrelay/internal/port/cache"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	maxIdempotencyKey    = 255
	maxIdempotencyBody   = 64 << 10
)

// idempotencyEntry stores a captured HTTP response.
type idempotencyEntry struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
}

// outcome is what one execution of the handler produced for its key.
type outcome struct {
	entry    idempotencyEntry
	complete bool // the leader's request was not cancelled
}

// Idempotency returns middleware that replays the stored response for a
// repeated Idempotency-Key, so a client retrying a send does not cause a
// second email. Keys are scoped to the request path. Concurrent requests
// with the same key share one execution. Only completed responses below
// 500 are stored; server failures and cancelled requests stay retryable.
func Idempotency(c cache.Cache, ttl time.Duration) func(http.Handler) http.Handler {
	var inflight singleflight.Group

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only apply to mutating methods
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(headerIdempotencyKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKey || !printable(key) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid Idempotency-Key"}`))
				return
			}
			cacheKey := "idem:" + r.URL.Path + ":" + key

			if entry, ok := lookup(r.Context(), c, cacheKey); ok {
				replay(w, entry, true)
				return
			}

			leader := false
			v, _, _ := inflight.Do(cacheKey, func() (any, error) {
				leader = true
				// A previous leader may have stored the response since our lookup.
				if entry, ok := lookup(r.Context(), c, cacheKey); ok {
					return outcome{entry: entry, complete: true}, nil
				}

				buf := &bufferedResponse{header: http.Header{}, statusCode: http.StatusOK}
				next.ServeHTTP(buf, r)
				out := outcome{
					entry:    idempotencyEntry{StatusCode: buf.statusCode, Header: buf.header, Body: buf.body.Bytes()},
					complete: r.Context().Err() == nil,
				}
				if out.complete && buf.statusCode < http.StatusInternalServerError && buf.body.Len() <= maxIdempotencyBody {
					store(r.Context(), c, cacheKey, out.entry, ttl)
				}
				return out, nil
			})
			out := v.(outcome)

			if !leader && !out.complete {
				// The shared execution was cut short by its own client.
				next.ServeHTTP(w, r)
				return
			}
			replay(w, out.entry, !leader)
		})
	}
}

func lookup(ctx context.Context, c cache.Cache, key string) (idempotencyEntry, bool) {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "idempotency: cache lookup failed", "error", err)
		return idempotencyEntry{}, false
	}
	if !ok {
		return idempotencyEntry{}, false
	}
	var entry idempotencyEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.WarnContext(ctx, "idempotency: corrupt cache entry", "key", key)
		return idempotencyEntry{}, false
	}
	return entry, true
}

func store(ctx context.Context, c cache.Cache, key string, entry idempotencyEntry, ttl time.Duration) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		slog.WarnContext(ctx, "idempotency: failed to store response", "key", key, "error", err)
	}
}

func replay(w http.ResponseWriter, entry idempotencyEntry, replayed bool) {
	for k, vals := range entry.Header {
		w.Header()[k] = append([]string(nil), vals...)
	}
	if replayed {
		w.Header().Set(headerReplayed, "true")
	}
	w.WriteHeader(entry.StatusCode)
	_, _ = w.Write(entry.Body)
}

// bufferedResponse captures a handler's response so it can be shared
// between concurrent duplicates and stored.
type bufferedResponse struct {
	header     http.Header
	statusCode int
	body       bytes.Buffer
	wrote      bool
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(code int) {
	if b.wrote {
		return
	}
	b.wrote = true
	b.statusCode = code
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.wrote = true
	return b.body.Write(p)
}
