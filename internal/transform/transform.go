package transform

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/rhinos0608/skyrimnet-proxy/internal/core/domain"
	"github.com/rhinos0608/skyrimnet-proxy/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OpenRouterCacheMaxAge is the TTL written into the expanded cache object
// when a client sends `cache: true` to an OpenRouter-style provider
const OpenRouterCacheMaxAge = 300

// Transformer shapes a parsed request for one provider: the capability
// whitelist strips fields the provider must not see, then the cache field is
// rewritten per the provider's declared behaviour. Stateless and safe for
// concurrent use.
type Transformer struct {
	logger *logger.StyledLogger
}

func New(log *logger.StyledLogger) *Transformer {
	return &Transformer{logger: log}
}

// Apply filters and rewrites the request for the given provider and returns
// both the transformed request and its serialized form. The input request is
// never mutated.
func (t *Transformer) Apply(req domain.ChatRequest, provider *domain.Provider) (domain.ChatRequest, []byte, error) {
	out := req.Clone()

	for field := range out {
		if provider.Allows(field) {
			continue
		}
		delete(out, field)
		t.logger.Debug("Dropped field not in provider whitelist", "provider", provider.ID, "field", field)
	}

	t.rewriteCache(out, provider)

	body, err := json.Marshal(out)
	if err != nil {
		return nil, nil, &domain.SerializationError{Stage: "request encode", Err: err}
	}

	return out, body, nil
}

// rewriteCache adjusts the cache extension field in place. Only runs when the
// whitelist let the field through.
func (t *Transformer) rewriteCache(req domain.ChatRequest, provider *domain.Provider) {
	value, present := req[domain.FieldCache]
	if !present {
		return
	}

	switch provider.CacheControl {
	case domain.CacheDrop:
		delete(req, domain.FieldCache)
		t.logger.Debug("Removed cache field, provider has no cache support", "provider", provider.ID)

	case domain.CacheOpenRouter:
		switch v := value.(type) {
		case bool:
			if v {
				req[domain.FieldCache] = map[string]any{
					"type":    "random",
					"max_age": OpenRouterCacheMaxAge,
				}
				t.logger.Debug("Expanded cache boolean to object form", "provider", provider.ID)
			} else {
				delete(req, domain.FieldCache)
				t.logger.Debug("Removed cache:false field", "provider", provider.ID)
			}
		default:
			// object form goes through untouched
		}

	case domain.CacheZai:
		switch v := value.(type) {
		case map[string]any:
			cacheType, _ := v["type"].(string)
			req[domain.FieldCache] = cacheType == "random"
			t.logger.Debug("Collapsed cache object to boolean form", "provider", provider.ID, "enabled", cacheType == "random")
		default:
			// booleans go through untouched
		}

	case domain.CachePassthrough:
	}
}
