package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	crotel "github.com/Strob0t/contactrelay/internal/adapter/otel"
	"github.com/Strob0t/contactrelay/internal/middleware"
)

// RouterOptions configures the middleware stack built by NewRouter.
type RouterOptions struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	Limiter        *middleware.RateLimiter // optional, applies to send routes only
	ServiceName    string                  // enables otelhttp spans when set

	// Idempotency, when set, wraps the send routes after the rate limiter.
	Idempotency func(http.Handler) http.Handler
	// LegacySunset, when non-zero, marks the root routes deprecated in
	// favour of /api/contact.
	LegacySunset time.Time
}

// NewRouter builds the complete HTTP handler: middleware stack plus routes.
func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	if opts.ServiceName != "" {
		r.Use(crotel.HTTPMiddleware(opts.ServiceName))
	}
	r.Use(Logger)
	r.Use(SecurityHeaders)
	r.Use(CORS(opts.CORSOrigins))
	r.Use(RequestTimeout(opts.RequestTimeout))

	MountRoutes(r, h, opts)
	return r
}

// MountRoutes registers the contact routes. The send routes are served
// both at the root and under /api/contact.
func MountRoutes(r chi.Router, h *Handlers, opts RouterOptions) {
	send := func(r chi.Router) {
		if opts.Limiter != nil {
			r = r.With(opts.Limiter.Handler)
		}
		if opts.Idempotency != nil {
			r = r.With(opts.Idempotency)
		}
		r.Post("/send-email", h.SendEmail)
	}

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		if !opts.LegacySunset.IsZero() {
			r.Use(middleware.Deprecation(opts.LegacySunset, "/api/contact"))
		}
		r.Get("/", h.Status)
		send(r)
	})

	r.Route("/api/contact", func(r chi.Router) {
		r.Get("/", h.Status)
		send(r)
	})
}
