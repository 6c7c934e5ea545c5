package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rhinos0608/skyrimnet-proxy/internal/logger"
	"github.com/rhinos0608/skyrimnet-proxy/internal/util"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"

	// HeaderXRequestID carries the client-assigned request ID, generated when
	// absent and echoed back on the response
	HeaderXRequestID = "X-Request-ID"
)

// responseWriter wraps http.ResponseWriter to capture response size and status
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += int64(size)
	return size, err
}

func (rw *responseWriter) WriteHeader(s int) {
	rw.status = s
	rw.ResponseWriter.WriteHeader(s)
}

// Flush must pass through to the underlying writer or streamed completions
// arrive in bursts instead of token by token
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// RequestLogging tags every request with an ID and logs method, path, status
// and timing on completion
func RequestLogging(styledLogger *logger.StyledLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(HeaderXRequestID)
			if requestID == "" {
				requestID = util.GenerateRequestID()
			}

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			w.Header().Set(HeaderXRequestID, requestID)

			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			duration := time.Since(start)
			logArgs := []any{
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"response_bytes", wrapped.size,
				"duration_ms", util.DurationMillis(duration),
			}

			switch {
			case wrapped.status >= 500:
				styledLogger.Error("Request failed", logArgs...)
			case wrapped.status >= 400:
				styledLogger.Warn("Request rejected", logArgs...)
			default:
				styledLogger.Debug("Request completed", logArgs...)
			}
		})
	}
}
