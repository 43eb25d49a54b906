// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// pathNormalizer is a compiled regex for normalizing dynamic path segments.
var pathNormalizer = regexp.MustCompile(`/[^/]+`)

// normalizePath converts paths with dynamic segments to route patterns to prevent
// cardinality explosion in metrics. This maps paths like /events/123 to /events/{id}.
func normalizePath(path string) string {
	// Exact matches for static routes (no normalization needed)
	staticRoutes := map[string]bool{
		"/":                           true,
		"/events":                     true,
		"/events/map":                 true,
		"/bookmarks":                  true,
		"/auth/register":              true,
		"/auth/login":                 true,
		"/auth/refresh":               true,
		"/auth/me":                    true,
		"/partners/signup":            true,
		"/partners/me":                true,
		"/partners/dashboard":         true,
		"/partners/stats":             true,
		"/partners/bookmarks":         true,
		"/partners/images":            true,
		"/applications":               true,
		"/applications/export":        true,
		"/drafts":                     true,
		"/messages":                   true,
		"/messages/unread_count":      true,
		"/notifications":              true,
		"/notifications/read_all":     true,
		"/notifications/unread_count": true,
		"/ws/notifications":           true,
		"/analytics":                  true,
		"/analytics/summary":          true,
		"/chatbot":                    true,
		"/payments/checkout":          true,
		"/payments/webhook":           true,
		"/uploads/sign":               true,
		"/health":                     true,
		"/ready":                      true,
		"/metrics":                    true,
	}

	if staticRoutes[path] {
		return path
	}

	// Pattern-based normalization for dynamic routes
	// Handle specific known patterns first for accuracy

	// /events/{id} and /events/{id}/bookmark, /events/{id}/reviews
	if strings.HasPrefix(path, "/events/") {
		parts := strings.Split(path, "/")
		if len(parts) == 4 && (parts[3] == "bookmark" || parts[3] == "reviews") {
			return "/events/{id}/" + parts[3]
		}
		if len(parts) == 3 && parts[2] != "" {
			return "/events/{id}"
		}
	}

	// /reviews/{id}
	if strings.HasPrefix(path, "/reviews/") {
		parts := strings.Split(path, "/")
		if len(parts) == 3 && parts[2] != "" {
			return "/reviews/{id}"
		}
	}

	// /applications/{id} and its workflow actions
	if strings.HasPrefix(path, "/applications/") {
		parts := strings.Split(path, "/")
		if len(parts) == 4 {
			switch parts[3] {
			case "approve", "reject", "cancel", "complete", "pay":
				return "/applications/{id}/" + parts[3]
			}
		}
		if len(parts) == 3 && parts[2] != "" {
			return "/applications/{id}"
		}
	}

	// /drafts/{event_id}
	if strings.HasPrefix(path, "/drafts/") {
		parts := strings.Split(path, "/")
		if len(parts) == 3 && parts[2] != "" {
			return "/drafts/{event_id}"
		}
	}

	// /partners/bookmarks/{event_id} and /partners/images/{id}
	if strings.HasPrefix(path, "/partners/bookmarks/") {
		parts := strings.Split(path, "/")
		if len(parts) == 4 && parts[3] != "" {
			return "/partners/bookmarks/{event_id}"
		}
	}
	if strings.HasPrefix(path, "/partners/images/") {
		parts := strings.Split(path, "/")
		if len(parts) == 4 && parts[3] != "" {
			return "/partners/images/{id}"
		}
	}

	// /messages/{id}/read and /messages/conversation/{user_id}
	if strings.HasPrefix(path, "/messages/") {
		parts := strings.Split(path, "/")
		if len(parts) == 4 && parts[2] == "conversation" {
			return "/messages/conversation/{user_id}"
		}
		if len(parts) == 4 && parts[3] == "read" {
			return "/messages/{id}/read"
		}
	}

	// /notifications/{id}/read
	if strings.HasPrefix(path, "/notifications/") {
		parts := strings.Split(path, "/")
		if len(parts) == 4 && parts[3] == "read" {
			return "/notifications/{id}/read"
		}
	}

	// /analytics/{id} and /analytics/{id}/pdf
	if strings.HasPrefix(path, "/analytics/") {
		parts := strings.Split(path, "/")
		if len(parts) == 4 && parts[3] == "pdf" {
			return "/analytics/{id}/pdf"
		}
		if len(parts) == 3 && parts[2] != "" {
			return "/analytics/{id}"
		}
	}

	// /auth/social/{provider} and /auth/social/{provider}/callback
	if strings.HasPrefix(path, "/auth/social/") {
		parts := strings.Split(path, "/")
		if len(parts) == 5 && parts[4] == "callback" {
			return "/auth/social/{provider}/callback"
		}
		if len(parts) == 4 && parts[3] != "" {
			return "/auth/social/{provider}"
		}
	}

	// Fallback: return as-is for unknown patterns
	// This ensures we don't accidentally break metrics for new routes
	return path
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// Unwrap exposes the underlying writer so context propagation reaches the
// logging middleware's writer through this wrapper.
func (mrw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return mrw.ResponseWriter
}

// newMetricsResponseWriter creates a new metricsResponseWriter with default 200 status.
func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics is a middleware that records HTTP request metrics.
// It captures duration, request/response sizes, and request counts.
// Health check endpoints (/health, /ready) are excluded from metrics to avoid cardinality issues.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exclude health check endpoints from metrics
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			// Wrap response writer to capture status and size
			mrw := newMetricsResponseWriter(w)

			// Get request size from Content-Length header
			requestSize := int64(0)
			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
					requestSize = size
				}
			}

			// Call the next handler
			next.ServeHTTP(mrw, r)

			// Calculate duration in seconds
			duration := time.Since(start).Seconds()

			// Normalize path to prevent cardinality explosion
			normalizedPath := normalizePath(r.URL.Path)

			// Record metrics
			metrics.ObserveHTTPRequest(
				r.Method,
				normalizedPath,
				strconv.Itoa(mrw.statusCode),
				duration,
				requestSize,
				mrw.size,
			)
		})
	}
}
