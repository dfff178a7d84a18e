package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/metrics"
)

// Metrics records request counts and latency per route. Paths outside routes
// are reported as "other" to keep label cardinality bounded; the /api prefix
// is folded into the bare route.
func Metrics(routes []string) func(http.Handler) http.Handler {
	known := make(map[string]bool, len(routes))
	for _, r := range routes {
		known[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			path := strings.TrimPrefix(r.URL.Path, "/api")
			if !known[path] {
				path = "other"
			}
			metrics.ObserveHTTPRequest(r.Method, path, strconv.Itoa(wrapped.statusCode), time.Since(start))
		})
	}
}
