package upstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rhinos0608/skyrimnet-proxy/internal/core/domain"
	"github.com/rhinos0608/skyrimnet-proxy/internal/logger"
	"github.com/rhinos0608/skyrimnet-proxy/internal/util"
)

// Result is a completed non-streaming upstream response
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Dispatcher sends non-streaming chat completion requests upstream, with
// per-provider concurrency permits and bounded exponential-backoff retries.
// Retries live here and nowhere else; every other component fails fast.
type Dispatcher struct {
	pools   *PoolManager
	limiter *Limiter
	logger  *logger.StyledLogger
}

func NewDispatcher(pools *PoolManager, limiter *Limiter, log *logger.StyledLogger) *Dispatcher {
	return &Dispatcher{
		pools:   pools,
		limiter: limiter,
		logger:  log,
	}
}

// Send posts the serialized body to the provider's chat completions endpoint.
// Each attempt gets a fresh timeout budget from the provider's configured
// duration; retryable failures back off exponentially with jitter up to the
// provider's retry limit. The concurrency permit spans all attempts and is
// released exactly once on every exit path.
func (d *Dispatcher) Send(ctx context.Context, provider *domain.Provider, body []byte, credential string) (*Result, error) {
	release, err := d.limiter.Acquire(ctx, provider.ID, provider.GetMaxConcurrent())
	if err != nil {
		return nil, err
	}
	defer release()

	endpoint := util.BuildChatCompletionsURL(provider.BaseURL)
	client := d.pools.ClientFor(util.OriginOf(endpoint))
	maxAttempts := 1 + provider.GetMaxRetries()

	var lastErr *domain.UpstreamError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, upstreamErr := d.attempt(ctx, client, provider, endpoint, body, credential)
		if upstreamErr == nil {
			if attempt > 1 {
				d.logger.InfoWithProvider("Upstream recovered after retry", provider.ID, "attempt", attempt)
			}
			return result, nil
		}

		upstreamErr.Attempts = attempt
		lastErr = upstreamErr

		// client gone, nobody left to retry for
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if !upstreamErr.Retryable() || attempt == maxAttempts {
			break
		}

		delay := util.CalculateExponentialBackoff(attempt, util.DefaultRetryBaseDelay, util.DefaultRetryMaxDelay) +
			util.RetryJitter(util.DefaultRetryJitterMax)
		d.logger.WarnWithProvider("Upstream attempt failed, retrying", provider.ID,
			"attempt", attempt, "status", upstreamErr.StatusCode, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

func (d *Dispatcher) attempt(ctx context.Context, client *http.Client, provider *domain.Provider, endpoint string, body []byte, credential string) (*Result, *domain.UpstreamError) {
	attemptCtx, cancel := context.WithTimeout(ctx, provider.GetTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.UpstreamError{Err: err, ProviderID: provider.ID}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", provider.AuthorizationValue(credential))

	resp, err := client.Do(req)
	if err != nil {
		return nil, d.classify(attemptCtx, provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, d.classify(attemptCtx, provider, err)
	}

	if resp.StatusCode >= 400 {
		return nil, &domain.UpstreamError{
			ProviderID: provider.ID,
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// classify turns a transport-level failure into an upstream error. Attempts
// cut off by the per-attempt deadline report as 504 and stay retryable.
func (d *Dispatcher) classify(attemptCtx context.Context, provider *domain.Provider, err error) *domain.UpstreamError {
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.UpstreamError{
			Err:        err,
			ProviderID: provider.ID,
			StatusCode: http.StatusGatewayTimeout,
			Timeout:    true,
		}
	}
	return &domain.UpstreamError{
		Err:        err,
		ProviderID: provider.ID,
	}
}
