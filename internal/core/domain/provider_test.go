package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferCacheBehaviour(t *testing.T) {
	tests := []struct {
		host string
		want CacheBehaviour
	}{
		{"openrouter.ai", CacheOpenRouter},
		{"api.openrouter.ai", CacheOpenRouter},
		{"api.z.ai", CacheZai},
		{"open.bigmodel.cn", CacheZai},
		{"api.openai.com", CacheDrop},
		{"localhost", CachePassthrough},
		{"my-selfhosted-llm.lan", CachePassthrough},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, InferCacheBehaviour(tt.host))
		})
	}
}

func TestUpstreamErrorRetryable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"network failure", 0, true},
		{"request timeout", 408, true},
		{"rate limited", 429, true},
		{"server error", 500, true},
		{"bad gateway", 502, true},
		{"gateway timeout", 504, true},
		{"bad request", 400, false},
		{"unauthorized", 401, false},
		{"not found", 404, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &UpstreamError{StatusCode: tt.status}
			assert.Equal(t, tt.want, err.Retryable())
		})
	}
}

func TestProviderDefaults(t *testing.T) {
	p := &Provider{}
	assert.Equal(t, DefaultProviderTimeout, p.GetTimeout())
	assert.Equal(t, DefaultMaxConcurrent, p.GetMaxConcurrent())
	assert.Equal(t, 0, p.GetMaxRetries(), "zero retries is a valid explicit setting")

	p.MaxRetries = -1
	assert.Equal(t, DefaultMaxRetries, p.GetMaxRetries())
}
