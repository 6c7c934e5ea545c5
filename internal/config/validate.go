package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/rhinos0608/skyrimnet-proxy/internal/core/domain"
	"github.com/rhinos0608/skyrimnet-proxy/internal/util"
)

// BuildProviderTable converts configured provider entries into the immutable
// domain table the core consumes. Fails on unusable base URLs, unknown
// behaviour modes and absent credentials; credentials must exist before the
// first request is accepted.
func (c *Config) BuildProviderTable() (domain.ProviderTable, error) {
	if len(c.Providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	table := make(domain.ProviderTable, len(c.Providers))
	for id, entry := range c.Providers {
		provider, err := buildProvider(id, entry, c.Proxy.MaxConcurrent)
		if err != nil {
			return nil, err
		}
		table[id] = provider
	}

	return table, nil
}

func buildProvider(id string, entry ProviderEntry, defaultMaxConcurrent int) (*domain.Provider, error) {
	parsed, err := url.Parse(entry.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("provider %s: base_url %q is not an absolute URL", id, entry.BaseURL)
	}

	if entry.CredentialEnv == "" {
		return nil, fmt.Errorf("provider %s: credential_env is required", id)
	}
	if os.Getenv(entry.CredentialEnv) == "" {
		return nil, fmt.Errorf("provider %s: environment variable %s is not set", id, entry.CredentialEnv)
	}

	cacheControl := domain.CacheBehaviour(entry.CacheControl)
	switch cacheControl {
	case domain.CacheDrop, domain.CacheOpenRouter, domain.CacheZai, domain.CachePassthrough:
	case "":
		cacheControl = domain.InferCacheBehaviour(parsed.Hostname())
	default:
		return nil, fmt.Errorf("provider %s: unknown cache_control %q", id, entry.CacheControl)
	}

	streamAdapter := domain.StreamAdapter(entry.StreamAdapter)
	switch streamAdapter {
	case domain.StreamAdapterNone, domain.StreamAdapterRewrite:
	case "":
		streamAdapter = domain.StreamAdapterNone
	default:
		return nil, fmt.Errorf("provider %s: unknown stream_adapter %q", id, entry.StreamAdapter)
	}

	timeout := domain.DefaultProviderTimeout
	if entry.Timeout != "" {
		timeout, err = util.ParseDuration(entry.Timeout)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", id, err)
		}
	}

	maxRetries := domain.DefaultMaxRetries
	if entry.MaxRetries != nil {
		if *entry.MaxRetries < 0 {
			return nil, fmt.Errorf("provider %s: max_retries must not be negative", id)
		}
		maxRetries = *entry.MaxRetries
	}

	maxConcurrent := entry.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	if maxConcurrent <= 0 {
		maxConcurrent = domain.DefaultMaxConcurrent
	}

	allowed := make(map[string]struct{}, len(entry.AllowedFields))
	for _, field := range entry.AllowedFields {
		allowed[field] = struct{}{}
	}

	return &domain.Provider{
		ID:            id,
		BaseURL:       entry.BaseURL,
		CredentialEnv: entry.CredentialEnv,
		AuthHeader:    entry.AuthHeader,
		AllowedFields: allowed,
		CacheControl:  cacheControl,
		StreamAdapter: streamAdapter,
		Timeout:       timeout,
		MaxRetries:    maxRetries,
		MaxConcurrent: maxConcurrent,
	}, nil
}

// BuildRoutingTable converts the slot entries into the domain routing table.
// A slot naming an unconfigured provider is allowed through here on purpose:
// the router reports it as a configuration error at request time, which keeps
// hot reloads from killing the process over one bad slot.
func (c *Config) BuildRoutingTable() (*domain.RoutingTable, []string) {
	slots := make(map[string]domain.ModelSlot, len(c.Routing.Slots))
	var warnings []string

	for name, entry := range c.Routing.Slots {
		if entry.Provider == "" || entry.Model == "" {
			warnings = append(warnings, fmt.Sprintf("slot %s: provider and model are required, skipping", name))
			continue
		}
		if _, known := c.Providers[entry.Provider]; !known {
			warnings = append(warnings, fmt.Sprintf("slot %s: provider %s is not configured", name, entry.Provider))
		}
		slots[name] = domain.ModelSlot{
			Provider:  entry.Provider,
			Model:     entry.Model,
			Reasoning: entry.Reasoning,
		}
	}

	return &domain.RoutingTable{
		Slots:             slots,
		FallbackToDefault: c.Routing.FallbackToDefault,
	}, warnings
}
