package domain

import (
	"strings"
	"time"
)

// CacheBehaviour selects how the `cache` extension field is rewritten for a
// provider. Declared per provider in configuration; inference from the base
// URL happens once at config load, never on the request path.
type CacheBehaviour string

const (
	// CacheDrop removes the field entirely (OpenAI-class, no cache support)
	CacheDrop CacheBehaviour = "drop"
	// CacheOpenRouter expands booleans into OpenRouter's cache object
	CacheOpenRouter CacheBehaviour = "openrouter"
	// CacheZai collapses cache objects into z.ai's boolean form
	CacheZai CacheBehaviour = "zai"
	// CachePassthrough leaves the field alone
	CachePassthrough CacheBehaviour = "passthrough"
)

// StreamAdapter selects how upstream event streams are relayed to the client
type StreamAdapter string

const (
	// StreamAdapterNone relays the upstream byte stream verbatim
	StreamAdapterNone StreamAdapter = "none"
	// StreamAdapterRewrite is the extension point for providers whose stream
	// framing does not match the OpenAI SSE format. No provider ships with it
	// enabled.
	StreamAdapterRewrite StreamAdapter = "rewrite"
)

// CredentialPlaceholder marks where the resolved credential is substituted
// into a provider's auth header template
const CredentialPlaceholder = "{key}"

const (
	DefaultProviderTimeout = 60 * time.Second
	DefaultMaxRetries      = 2
	DefaultMaxConcurrent   = 25
)

// Provider describes one upstream OpenAI-compatible chat completion service.
// Immutable after configuration load.
type Provider struct {
	ID            string
	BaseURL       string
	CredentialEnv string
	AuthHeader    string // template, e.g. "Bearer {key}"
	AllowedFields map[string]struct{}
	CacheControl  CacheBehaviour
	StreamAdapter StreamAdapter
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
}

// Allows reports whether the provider's capability whitelist permits a
// top-level request field
func (p *Provider) Allows(field string) bool {
	_, ok := p.AllowedFields[field]
	return ok
}

// AuthorizationValue substitutes the credential into the provider's auth
// header template. Templates without a placeholder get the credential
// appended, preserving the common "Bearer " prefix form.
func (p *Provider) AuthorizationValue(credential string) string {
	template := p.AuthHeader
	if template == "" {
		template = "Bearer " + CredentialPlaceholder
	}
	if strings.Contains(template, CredentialPlaceholder) {
		return strings.ReplaceAll(template, CredentialPlaceholder, credential)
	}
	return template + credential
}

// GetTimeout returns the provider's request timeout, defaulted
func (p *Provider) GetTimeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultProviderTimeout
	}
	return p.Timeout
}

// GetMaxRetries returns the provider's retry budget, defaulted
func (p *Provider) GetMaxRetries() int {
	if p.MaxRetries < 0 {
		return DefaultMaxRetries
	}
	return p.MaxRetries
}

// GetMaxConcurrent returns the provider's concurrency cap, defaulted
func (p *Provider) GetMaxConcurrent() int {
	if p.MaxConcurrent <= 0 {
		return DefaultMaxConcurrent
	}
	return p.MaxConcurrent
}

// ProviderTable maps provider identifiers to their configuration
type ProviderTable map[string]*Provider

// ModelSlot is a named routing alias pointing at a provider/model pair
type ModelSlot struct {
	Provider  string
	Model     string
	Reasoning bool
}

// RoutingTable holds the slot map and the fallback switch. Swapped atomically
// on configuration reload; never mutated in place.
type RoutingTable struct {
	Slots             map[string]ModelSlot
	FallbackToDefault bool
}

// DefaultSlotName is the slot consulted when fallback routing is enabled
const DefaultSlotName = "default"

// ResolvedRoute is the output of routing one request. Created per request,
// never persisted.
type ResolvedRoute struct {
	ProviderID string
	Model      string
	Provider   *Provider
	Reasoning  bool
}

// InferCacheBehaviour guesses a provider's cache rewrite mode from its base
// URL host. Only used at configuration load when the provider omits an
// explicit cache_control declaration; unrecognised hosts default to
// passthrough.
func InferCacheBehaviour(host string) CacheBehaviour {
	h := strings.ToLower(host)
	switch {
	case strings.Contains(h, "openrouter.ai"):
		return CacheOpenRouter
	case strings.Contains(h, "z.ai"), strings.Contains(h, "bigmodel.cn"):
		return CacheZai
	case strings.Contains(h, "openai.com"):
		return CacheDrop
	default:
		return CachePassthrough
	}
}
