package handlers

import (
	"net/http"
	"time"

	"github.com/rhinos0608/skyrimnet-proxy/internal/core/domain"
)

// healthHandler reports liveness only; no upstream is consulted
func (a *Application) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)

	payload, _ := json.Marshal(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	_, _ = w.Write(payload)
}

func (a *Application) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	a.writeError(w, http.StatusNotFound, domain.ErrorTypeInvalidRequest,
		"unknown route: "+r.Method+" "+r.URL.Path, "route_not_found")
}
