// Package lambda serves the contact relay HTTP handler from AWS Lambda
// behind an API Gateway HTTP API (payload format 2.0).
package lambda

import (
	"context"
	"net"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
)

type sourceIPKey struct{}

// Handler adapts an http.Handler to API Gateway v2 events.
type Handler struct {
	proxy *httpadapter.HandlerAdapterV2
}

// New wraps h. Requests reach h with RemoteAddr set to the caller's
// source IP, which the rate limiter keys on.
func New(h http.Handler) *Handler {
	return &Handler{proxy: httpadapter.NewV2(withSourceIP(h))}
}

// Invoke translates req, runs it through the wrapped handler and
// translates the response back. Errors are only returned for events that
// cannot be turned into a request; handler failures are HTTP responses.
func (a *Handler) Invoke(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	ctx = context.WithValue(ctx, sourceIPKey{}, req.RequestContext.HTTP.SourceIP)
	return a.proxy.ProxyWithContext(ctx, req)
}

func withSourceIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip, _ := r.Context().Value(sourceIPKey{}).(string); ip != "" {
			r = r.Clone(r.Context())
			r.RemoteAddr = net.JoinHostPort(ip, "0")
		}
		next.ServeHTTP(w, r)
	})
}
