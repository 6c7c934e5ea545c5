package router

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhinos0608/skyrimnet-proxy/internal/core/domain"
	"github.com/rhinos0608/skyrimnet-proxy/internal/logger"
	"github.com/rhinos0608/skyrimnet-proxy/theme"
)

func testRouter(fallback bool) *Router {
	providers := domain.ProviderTable{
		"openrouter": {ID: "openrouter", BaseURL: "https://openrouter.ai/api/v1"},
		"zai":        {ID: "zai", BaseURL: "https://api.z.ai/api/paas/v4"},
	}
	routes := &domain.RoutingTable{
		Slots: map[string]domain.ModelSlot{
			"default":  {Provider: "openrouter", Model: "anthropic/claude-sonnet-4"},
			"dialogue": {Provider: "zai", Model: "glm-4.6", Reasoning: true},
			"broken":   {Provider: "ghost", Model: "whatever"},
		},
		FallbackToDefault: fallback,
	}
	log := logger.NewStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), theme.Default())
	return New(providers, routes, log)
}

func TestResolveSlot(t *testing.T) {
	r := testRouter(false)

	route, err := r.Resolve("dialogue")
	require.NoError(t, err)
	assert.Equal(t, "zai", route.ProviderID)
	assert.Equal(t, "glm-4.6", route.Model)
	assert.True(t, route.Reasoning)
	require.NotNil(t, route.Provider)
}

func TestResolveDirectForm(t *testing.T) {
	r := testRouter(false)

	route, err := r.Resolve("openrouter:deepseek/deepseek-chat")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", route.ProviderID)
	assert.Equal(t, "deepseek/deepseek-chat", route.Model)
	assert.False(t, route.Reasoning, "direct routes never enable reasoning")
}

func TestResolveDirectFormPreservesColons(t *testing.T) {
	r := testRouter(false)

	// only the first colon separates provider from model
	route, err := r.Resolve("zai:glm-4.6:extended")
	require.NoError(t, err)
	assert.Equal(t, "glm-4.6:extended", route.Model)
}

func TestResolveDirectFormUnknownProvider(t *testing.T) {
	r := testRouter(true)

	_, err := r.Resolve("nope:some-model")
	var routeErr *domain.RoutingError
	require.ErrorAs(t, err, &routeErr)
	assert.Equal(t, domain.ErrorTypeInvalidRequest, routeErr.Type)
}

func TestResolveUnknownAliasNoFallback(t *testing.T) {
	r := testRouter(false)

	_, err := r.Resolve("mystery")
	var routeErr *domain.RoutingError
	require.ErrorAs(t, err, &routeErr)
	assert.Equal(t, domain.ErrorTypeInvalidRequest, routeErr.Type)
	assert.Contains(t, routeErr.Message, "mystery")
}

func TestResolveUnknownAliasWithFallback(t *testing.T) {
	r := testRouter(true)

	route, err := r.Resolve("mystery")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", route.ProviderID)
	assert.Equal(t, "anthropic/claude-sonnet-4", route.Model)
}

func TestResolveSlotWithMissingProvider(t *testing.T) {
	r := testRouter(false)

	_, err := r.Resolve("broken")
	var routeErr *domain.RoutingError
	require.ErrorAs(t, err, &routeErr)
	assert.Equal(t, domain.ErrorTypeAPI, routeErr.Type, "misconfigured slot is a server-side error")
}

func TestReloadSwapsTable(t *testing.T) {
	r := testRouter(false)

	_, err := r.Resolve("fresh")
	require.Error(t, err)

	r.Reload(&domain.RoutingTable{
		Slots: map[string]domain.ModelSlot{
			"fresh": {Provider: "zai", Model: "glm-4.5-air"},
		},
	})

	route, err := r.Resolve("fresh")
	require.NoError(t, err)
	assert.Equal(t, "glm-4.5-air", route.Model)

	// old slots are gone after the swap
	_, err = r.Resolve("dialogue")
	assert.Error(t, err)
}
