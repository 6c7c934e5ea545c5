package transform

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/rhinos0608/skyrimnet-proxy/internal/core/domain"
	"github.com/rhinos0608/skyrimnet-proxy/internal/logger"
	"github.com/rhinos0608/skyrimnet-proxy/theme"
)

func testTransformer() *Transformer {
	return New(logger.NewStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), theme.Default()))
}

func testProvider(cache domain.CacheBehaviour, fields ...string) *domain.Provider {
	allowed := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		allowed[f] = struct{}{}
	}
	return &domain.Provider{
		ID:            "test",
		AllowedFields: allowed,
		CacheControl:  cache,
	}
}

func TestWhitelistFilter(t *testing.T) {
	tr := testTransformer()
	provider := testProvider(domain.CachePassthrough, "model", "messages", "stream")

	req := domain.ChatRequest{
		"model":       "glm-4.6",
		"messages":    []any{},
		"stream":      true,
		"top_k":       40,
		"temperature": 0.7,
	}

	out, body, err := tr.Apply(req, provider)
	require.NoError(t, err)

	assert.Len(t, out, 3)
	assert.NotContains(t, out, "top_k")
	assert.NotContains(t, out, "temperature")
	assert.False(t, gjson.GetBytes(body, "top_k").Exists())

	// input untouched
	assert.Contains(t, req, "top_k")
}

func TestWhitelistDropsCacheBeforeRewrite(t *testing.T) {
	tr := testTransformer()
	provider := testProvider(domain.CacheOpenRouter, "model", "messages")

	out, _, err := tr.Apply(domain.ChatRequest{
		"model":    "m",
		"messages": []any{},
		"cache":    true,
	}, provider)
	require.NoError(t, err)
	assert.NotContains(t, out, "cache")
}

func TestCacheDropProvider(t *testing.T) {
	tr := testTransformer()
	provider := testProvider(domain.CacheDrop, "model", "messages", "cache")

	for _, value := range []any{true, false, map[string]any{"type": "random"}} {
		out, _, err := tr.Apply(domain.ChatRequest{
			"model":    "m",
			"messages": []any{},
			"cache":    value,
		}, provider)
		require.NoError(t, err)
		assert.NotContains(t, out, "cache")
	}
}

func TestCacheOpenRouterRewrite(t *testing.T) {
	tr := testTransformer()
	provider := testProvider(domain.CacheOpenRouter, "model", "messages", "cache")

	tests := []struct {
		name  string
		value any
		check func(t *testing.T, out domain.ChatRequest, body []byte)
	}{
		{
			name:  "true expands to object",
			value: true,
			check: func(t *testing.T, out domain.ChatRequest, body []byte) {
				assert.Equal(t, "random", gjson.GetBytes(body, "cache.type").String())
				assert.Equal(t, int64(300), gjson.GetBytes(body, "cache.max_age").Int())
			},
		},
		{
			name:  "false removes the field",
			value: false,
			check: func(t *testing.T, out domain.ChatRequest, body []byte) {
				assert.NotContains(t, out, "cache")
			},
		},
		{
			name:  "object passes through",
			value: map[string]any{"type": "none", "max_age": float64(60)},
			check: func(t *testing.T, out domain.ChatRequest, body []byte) {
				assert.Equal(t, "none", gjson.GetBytes(body, "cache.type").String())
				assert.Equal(t, int64(60), gjson.GetBytes(body, "cache.max_age").Int())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, body, err := tr.Apply(domain.ChatRequest{
				"model":    "m",
				"messages": []any{},
				"cache":    tt.value,
			}, provider)
			require.NoError(t, err)
			tt.check(t, out, body)
		})
	}
}

func TestCacheZaiRewrite(t *testing.T) {
	tr := testTransformer()
	provider := testProvider(domain.CacheZai, "model", "messages", "cache")

	tests := []struct {
		name     string
		value    any
		expected any
	}{
		{"random object becomes true", map[string]any{"type": "random"}, true},
		{"none object becomes false", map[string]any{"type": "none"}, false},
		{"unrecognised type becomes false", map[string]any{"type": "whatever"}, false},
		{"boolean true passes through", true, true},
		{"boolean false passes through", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := tr.Apply(domain.ChatRequest{
				"model":    "m",
				"messages": []any{},
				"cache":    tt.value,
			}, provider)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out["cache"])
		})
	}
}

func TestCachePassthroughProvider(t *testing.T) {
	tr := testTransformer()
	provider := testProvider(domain.CachePassthrough, "model", "messages", "cache")

	value := map[string]any{"type": "random", "max_age": float64(120)}
	out, _, err := tr.Apply(domain.ChatRequest{
		"model":    "m",
		"messages": []any{},
		"cache":    value,
	}, provider)
	require.NoError(t, err)
	assert.Equal(t, value, out["cache"])
}

func TestApplyIsIdempotent(t *testing.T) {
	tr := testTransformer()
	provider := testProvider(domain.CacheOpenRouter, "model", "messages", "cache")

	req := domain.ChatRequest{
		"model":    "m",
		"messages": []any{},
		"cache":    true,
	}

	once, _, err := tr.Apply(req, provider)
	require.NoError(t, err)
	twice, body, err := tr.Apply(once, provider)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, "random", gjson.GetBytes(body, "cache.type").String())
}
