package llm

import (
	"net/http"
	"time"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
)

// contextAwareTransport copies the request ID from the request context into
// the X-Request-Id header so provider-side logs can be correlated.
type contextAwareTransport struct {
	base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *contextAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	id := logging.RequestID(req.Context())
	if id == "" {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set(logging.RequestIDHeader, id)
	return t.base.RoundTrip(clone)
}

// newHTTPClient returns the HTTP client shared by the provider SDKs.
// Deadlines come from the request context, so the client sets no timeout of its own.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &contextAwareTransport{base: http.DefaultTransport},
	}
}

// elapsedMillis is used in request logs.
func elapsedMillis(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
