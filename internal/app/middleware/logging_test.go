package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhinos0608/skyrimnet-proxy/internal/logger"
	"github.com/rhinos0608/skyrimnet-proxy/theme"
)

func testStyledLogger() *logger.StyledLogger {
	return logger.NewStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), theme.Default())
}

func TestRequestLoggingAssignsRequestID(t *testing.T) {
	var seenID string
	handler := RequestLogging(testStyledLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.NotEmpty(t, seenID)
	assert.Equal(t, seenID, rec.Header().Get(HeaderXRequestID), "ID echoed back to the client")
}

func TestRequestLoggingPreservesClientRequestID(t *testing.T) {
	handler := RequestLogging(testStyledLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "skyrimnet-42", GetRequestID(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderXRequestID, "skyrimnet-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "skyrimnet-42", rec.Header().Get(HeaderXRequestID))
}

func TestResponseWriterFlushPassthrough(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	var flusher http.Flusher = wrapped
	require.NotPanics(t, func() { flusher.Flush() })
	assert.True(t, rec.Flushed, "flush must reach the underlying writer")
}

func TestResponseWriterCapturesStatusAndSize(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	wrapped.WriteHeader(http.StatusTeapot)
	n, err := wrapped.Write([]byte("short and stout"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, wrapped.status)
	assert.Equal(t, int64(n), wrapped.size)
}
