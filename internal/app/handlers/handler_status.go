package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/rhinos0608/skyrimnet-proxy/internal/version"
)

type providerStatus struct {
	ID            string `json:"id"`
	BaseURL       string `json:"base_url"`
	InFlight      int    `json:"in_flight"`
	MaxConcurrent int    `json:"max_concurrent"`
	CacheControl  string `json:"cache_control"`
}

type slotStatus struct {
	Alias     string `json:"alias"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Reasoning bool   `json:"reasoning,omitempty"`
}

type statusResponse struct {
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	Pools     int              `json:"pools"`
	Providers []providerStatus `json:"providers"`
	Slots     []slotStatus     `json:"slots"`
}

// statusHandler exposes live proxy state for the dashboard and for humans
// with curl: per-provider in-flight counts, pool count and the current slot
// table after any hot reloads
func (a *Application) statusHandler(w http.ResponseWriter, r *http.Request) {
	providerTable, err := a.Config.BuildProviderTable()
	if err != nil {
		// config was valid at startup, so only env drift can land here
		providerTable = nil
	}

	status := statusResponse{
		Version: version.Version,
		Uptime:  time.Since(a.StartTime).Round(time.Second).String(),
		Pools:   a.pools.PoolCount(),
	}

	for id, provider := range providerTable {
		status.Providers = append(status.Providers, providerStatus{
			ID:            id,
			BaseURL:       provider.BaseURL,
			InFlight:      a.limiter.InFlight(id),
			MaxConcurrent: provider.GetMaxConcurrent(),
			CacheControl:  string(provider.CacheControl),
		})
	}
	sort.Slice(status.Providers, func(i, j int) bool {
		return status.Providers[i].ID < status.Providers[j].ID
	})

	for alias, slot := range a.router.Slots() {
		status.Slots = append(status.Slots, slotStatus{
			Alias:     alias,
			Provider:  slot.Provider,
			Model:     slot.Model,
			Reasoning: slot.Reasoning,
		})
	}
	sort.Slice(status.Slots, func(i, j int) bool {
		return status.Slots[i].Alias < status.Slots[j].Alias
	})

	payload, _ := json.Marshal(status)
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
