package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/rhinos0608/skyrimnet-proxy/internal/core/domain"
)

// chatCompletionsHandler runs the full request pipeline: read, parse, route,
// transform, then dispatch or relay. Retries never happen here; the
// dispatcher owns them.
func (a *Application) chatCompletionsHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBodyBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			a.writeError(w, http.StatusRequestEntityTooLarge, domain.ErrorTypeInvalidRequest,
				"request body exceeds the configured size limit", "body_too_large")
			return
		}
		a.writeError(w, http.StatusBadRequest, domain.ErrorTypeInvalidRequest, "unable to read request body", "")
		return
	}

	var req domain.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, domain.ErrorTypeInvalidRequest, "request body is not valid JSON", "")
		return
	}

	if err := req.Validate(); err != nil {
		a.respondError(w, err)
		return
	}

	alias := req.Model()
	route, err := a.router.Resolve(alias)
	if err != nil {
		a.respondError(w, err)
		return
	}

	working := req.Clone()
	working[domain.FieldModel] = route.Model
	if route.Reasoning {
		if _, set := working[domain.FieldReasoning]; !set {
			working[domain.FieldReasoning] = map[string]any{"enabled": true}
		}
	}

	_, upstreamBody, err := a.transformer.Apply(working, route.Provider)
	if err != nil {
		a.respondError(w, err)
		return
	}

	credential := os.Getenv(route.Provider.CredentialEnv)
	if credential == "" {
		// validated at startup, so this means the environment changed under us
		a.writeError(w, http.StatusInternalServerError, domain.ErrorTypeAPI,
			"credential for provider "+route.ProviderID+" is no longer available", "")
		return
	}

	a.logger.InfoWithModel("Routing chat completion", alias,
		"provider", route.ProviderID, "upstream_model", route.Model, "stream", req.Stream())

	if req.Stream() {
		if err := a.relay.Stream(r.Context(), w, route.Provider, upstreamBody, credential); err != nil {
			a.respondError(w, err)
		}
		return
	}

	result, err := a.dispatcher.Send(r.Context(), route.Provider, upstreamBody, credential)
	if err != nil {
		a.respondError(w, err)
		return
	}

	response, err := a.echoAlias(result.Body, alias)
	if err != nil {
		a.respondError(w, err)
		return
	}

	contentType := result.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeJSON
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(result.StatusCode)
	_, _ = w.Write(response)
}

// echoAlias rewrites the upstream response's model field back to the alias
// the client asked for, hiding the routed upstream model name
func (a *Application) echoAlias(upstreamBody []byte, alias string) ([]byte, error) {
	var response map[string]any
	if err := json.Unmarshal(upstreamBody, &response); err != nil {
		return nil, &domain.SerializationError{Stage: "response decode", Err: err}
	}

	response[domain.FieldModel] = alias

	out, err := json.Marshal(response)
	if err != nil {
		return nil, &domain.SerializationError{Stage: "response encode", Err: err}
	}
	return out, nil
}
