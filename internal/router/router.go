package router

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rhinos0608/skyrimnet-proxy/internal/core/domain"
	"github.com/rhinos0608/skyrimnet-proxy/internal/logger"
)

// Router resolves a client-supplied model identifier to a provider/model
// pair. Pure lookups over immutable tables; the routing table pointer is
// swapped atomically on configuration reload, the provider table is fixed
// for the process lifetime.
type Router struct {
	providers domain.ProviderTable
	routes    atomic.Pointer[domain.RoutingTable]
	logger    *logger.StyledLogger
}

func New(providers domain.ProviderTable, routes *domain.RoutingTable, log *logger.StyledLogger) *Router {
	r := &Router{
		providers: providers,
		logger:    log,
	}
	r.routes.Store(routes)
	return r
}

// Reload swaps in a fresh routing table. In-flight requests keep the table
// they resolved against.
func (r *Router) Reload(routes *domain.RoutingTable) {
	r.routes.Store(routes)
}

// Slots returns the current slot table for read-only listing
func (r *Router) Slots() map[string]domain.ModelSlot {
	return r.routes.Load().Slots
}

// Resolve maps a model identifier to a route.
//
// "provider:model" identifiers bypass the slot table and address a configured
// provider directly. Anything else is a slot name; unresolvable slots fall
// back to the "default" slot when fallback is enabled, otherwise the request
// is rejected.
func (r *Router) Resolve(model string) (*domain.ResolvedRoute, error) {
	if providerID, upstreamModel, ok := strings.Cut(model, ":"); ok {
		provider, exists := r.providers[providerID]
		if !exists {
			return nil, &domain.RoutingError{
				Type:    domain.ErrorTypeInvalidRequest,
				Alias:   model,
				Message: fmt.Sprintf("unknown provider %q in model %q", providerID, model),
			}
		}
		return &domain.ResolvedRoute{
			ProviderID: providerID,
			Model:      upstreamModel,
			Provider:   provider,
		}, nil
	}

	routes := r.routes.Load()

	if slot, exists := routes.Slots[model]; exists {
		return r.resolveSlot(model, slot)
	}

	if routes.FallbackToDefault {
		if slot, exists := routes.Slots[domain.DefaultSlotName]; exists {
			r.logger.Warn("Model alias not configured, falling back to default slot", "alias", model)
			return r.resolveSlot(domain.DefaultSlotName, slot)
		}
	}

	return nil, &domain.RoutingError{
		Type:    domain.ErrorTypeInvalidRequest,
		Alias:   model,
		Message: fmt.Sprintf("unknown model alias %q: configure a slot for it or enable fallback_to_default", model),
	}
}

func (r *Router) resolveSlot(name string, slot domain.ModelSlot) (*domain.ResolvedRoute, error) {
	provider, exists := r.providers[slot.Provider]
	if !exists {
		// A slot naming an unconfigured provider is a deployment problem,
		// not a client mistake
		return nil, &domain.RoutingError{
			Type:    domain.ErrorTypeAPI,
			Alias:   name,
			Message: fmt.Sprintf("slot %q references provider %q which is not configured", name, slot.Provider),
		}
	}

	return &domain.ResolvedRoute{
		ProviderID: slot.Provider,
		Model:      slot.Model,
		Provider:   provider,
		Reasoning:  slot.Reasoning,
	}, nil
}
