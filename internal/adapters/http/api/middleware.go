package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/okian/modelfusion/pkg/logger"
	"github.com/okian/modelfusion/pkg/metrics"
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics. Server
// errors are also logged.
func MetricsMiddleware(next http.HandlerFunc, endpoint string, log logger.Logger) http.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		status := strconv.Itoa(wrapped.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, durationMs)

		if wrapped.statusCode < http.StatusBadRequest {
			return
		}
		errorType := getErrorType(wrapped.statusCode)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, errorType)
		metrics.RecordErrorByType(errorType, getErrorSeverity(wrapped.statusCode))
		metrics.RecordErrorLatency("http", errorType, durationMs)

		if wrapped.statusCode >= http.StatusInternalServerError {
			log.Error(r.Context(), "request failed",
				logger.String("endpoint", endpoint),
				logger.String("path", r.URL.Path),
				logger.Int("status", wrapped.statusCode),
			)
		}
	}
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode == http.StatusServiceUnavailable:
		return "unavailable"
	case statusCode >= http.StatusInternalServerError:
		return "server_error"
	case statusCode == http.StatusNotFound:
		return "not_found"
	case statusCode >= http.StatusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

func getErrorSeverity(statusCode int) string {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return "high"
	case statusCode >= http.StatusBadRequest:
		return "medium"
	default:
		return "low"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, eris.Wrap(err, "write response")
	}
	return n, nil
}
