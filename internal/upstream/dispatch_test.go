package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhinos0608/skyrimnet-proxy/internal/core/domain"
)

func testDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	return NewDispatcher(testPoolManager(t), NewLimiter(), testLogger())
}

func dispatchProvider(baseURL string, retries int) *domain.Provider {
	return &domain.Provider{
		ID:            "test",
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		MaxRetries:    retries,
		MaxConcurrent: 4,
	}
}

func TestSendSuccess(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cmpl-1"}`))
	}))
	defer srv.Close()

	d := testDispatcher(t)
	result, err := d.Send(context.Background(), dispatchProvider(srv.URL+"/v1", 0), []byte(`{}`), "sk-test")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, `{"id":"cmpl-1"}`, string(result.Body))
	assert.Equal(t, "application/json", result.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/v1/chat/completions", gotPath)
}

func TestSendRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"id":"cmpl-2"}`))
	}))
	defer srv.Close()

	d := testDispatcher(t)
	result, err := d.Send(context.Background(), dispatchProvider(srv.URL, 2), []byte(`{}`), "sk")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendDoesNotRetry4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	d := testDispatcher(t)
	_, err := d.Send(context.Background(), dispatchProvider(srv.URL, 3), []byte(`{}`), "sk")

	var upstreamErr *domain.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusUnauthorized, upstreamErr.StatusCode)
	assert.Equal(t, 1, upstreamErr.Attempts)
	assert.Contains(t, string(upstreamErr.Body), "bad key")
	assert.Equal(t, int32(1), calls.Load(), "401 is terminal, no retries")
}

func TestSendRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := testDispatcher(t)
	_, err := d.Send(context.Background(), dispatchProvider(srv.URL, 1), []byte(`{}`), "sk")

	var upstreamErr *domain.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusTooManyRequests, upstreamErr.StatusCode)
	assert.Equal(t, 2, upstreamErr.Attempts)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendTimeoutReportsGatewayTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect and cancel r.Context(); otherwise srv.Close()
		// deadlocks waiting on this handler.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	provider := dispatchProvider(srv.URL, 0)
	provider.Timeout = 50 * time.Millisecond

	d := testDispatcher(t)
	_, err := d.Send(context.Background(), provider, []byte(`{}`), "sk")

	var upstreamErr *domain.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusGatewayTimeout, upstreamErr.StatusCode)
	assert.True(t, upstreamErr.Timeout)
}

func TestSendUnreachableUpstream(t *testing.T) {
	// reserved port with nothing listening
	d := testDispatcher(t)
	provider := dispatchProvider("http://127.0.0.1:1", 0)

	_, err := d.Send(context.Background(), provider, []byte(`{}`), "sk")

	var upstreamErr *domain.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, 0, upstreamErr.StatusCode, "no status observed on network failure")
}

func TestSendClientCancellationStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	d := testDispatcher(t)
	start := time.Now()
	_, err := d.Send(ctx, dispatchProvider(srv.URL, 5), []byte(`{}`), "sk")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 3*time.Second, "cancellation must cut the backoff short")
}

func TestSendReleasesPermitOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	limiter := NewLimiter()
	d := NewDispatcher(testPoolManager(t), limiter, testLogger())
	provider := dispatchProvider(srv.URL, 0)

	_, err := d.Send(context.Background(), provider, []byte(`{}`), "sk")
	require.Error(t, err)
	assert.Equal(t, 0, limiter.InFlight(provider.ID), "permit must be released on the error path")
}
