package middleware

import (
	"net/http"
	"strings"
	"time"
)

// Deprecation returns middleware that adds RFC 8594 deprecation headers.
// The Sunset header uses RFC 7231 date format (HTTP-date). When successor
// is set, a Link header points at the same path under that prefix.
func Deprecation(sunset time.Time, successor string) func(http.Handler) http.Handler {
	sunsetStr := sunset.UTC().Format(http.TimeFormat)
	successor = strings.TrimSuffix(successor, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Deprecation", "true")
			w.Header().Set("Sunset", sunsetStr)
			if successor != "" {
				target := successor + r.URL.Path
				if r.URL.Path == "/" {
					target = successor
				}
				w.Header().Set("Link", "<"+target+`>; rel="successor-version"`)
			}
			next.ServeHTTP(w, r)
		})
	}
}
