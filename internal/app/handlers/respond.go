package handlers

import (
	"context"
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	"github.com/rhinos0608/skyrimnet-proxy/internal/core/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const contentTypeJSON = "application/json"

// errorEnvelope is the client-facing error shape for every non-2xx JSON
// response, matching what OpenAI clients already parse
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string           `json:"message"`
	Type    domain.ErrorType `json:"type"`
	Param   any              `json:"param"`
	Code    string           `json:"code,omitempty"`
}

func (a *Application) writeError(w http.ResponseWriter, status int, errType domain.ErrorType, message string, code string) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	payload, err := json.Marshal(errorEnvelope{Error: errorBody{
		Message: message,
		Type:    errType,
		Code:    code,
	}})
	if err != nil {
		// cannot happen for this shape, but never send half an envelope
		_, _ = w.Write([]byte(`{"error":{"message":"internal error","type":"api_error","param":null}}`))
		return
	}
	_, _ = w.Write(payload)
}

// respondError translates a pipeline failure into the client-facing shape.
// 401, 403 and 429 from the upstream pass through verbatim, body included, so
// the client sees exactly what the provider said.
func (a *Application) respondError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		a.writeError(w, http.StatusBadRequest, domain.ErrorTypeInvalidRequest, validationErr.Message, "")
		return
	}

	var routingErr *domain.RoutingError
	if errors.As(err, &routingErr) {
		status := http.StatusBadRequest
		if routingErr.Type == domain.ErrorTypeAPI {
			status = http.StatusInternalServerError
		}
		a.writeError(w, status, routingErr.Type, routingErr.Message, "")
		return
	}

	var serializationErr *domain.SerializationError
	if errors.As(err, &serializationErr) {
		a.logger.Error("Serialization failure", "stage", serializationErr.Stage, "error", serializationErr.Err)
		a.writeError(w, http.StatusInternalServerError, domain.ErrorTypeAPI, serializationErr.Error(), "")
		return
	}

	var upstreamErr *domain.UpstreamError
	if errors.As(err, &upstreamErr) {
		a.respondUpstreamError(w, upstreamErr)
		return
	}

	if errors.Is(err, context.Canceled) {
		// client hung up, nobody is reading this
		return
	}

	a.logger.Error("Unclassified request failure", "error", err)
	a.writeError(w, http.StatusInternalServerError, domain.ErrorTypeAPI, "internal error", "")
}

func (a *Application) respondUpstreamError(w http.ResponseWriter, upstreamErr *domain.UpstreamError) {
	switch upstreamErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		a.logger.WarnWithProvider("Upstream rejected request", upstreamErr.ProviderID,
			"status", upstreamErr.StatusCode, "attempts", upstreamErr.Attempts)
		if len(upstreamErr.Body) > 0 {
			w.Header().Set("Content-Type", contentTypeJSON)
			w.WriteHeader(upstreamErr.StatusCode)
			_, _ = w.Write(upstreamErr.Body)
			return
		}
		errType := domain.ErrorTypeAPI
		if upstreamErr.StatusCode == http.StatusTooManyRequests {
			errType = domain.ErrorTypeRateLimit
		}
		a.writeError(w, upstreamErr.StatusCode, errType, upstreamErr.Error(), "")
		return

	case 0:
		a.logger.ErrorWithProvider("Upstream unreachable", upstreamErr.ProviderID,
			"attempts", upstreamErr.Attempts, "error", upstreamErr.Err)
		a.writeError(w, http.StatusBadGateway, domain.ErrorTypeAPI, upstreamErr.Error(), "upstream_unreachable")
		return
	}

	if upstreamErr.Timeout {
		a.logger.ErrorWithProvider("Upstream timed out", upstreamErr.ProviderID, "attempts", upstreamErr.Attempts)
		a.writeError(w, http.StatusGatewayTimeout, domain.ErrorTypeAPI, upstreamErr.Error(), "upstream_timeout")
		return
	}

	message := upstreamErr.Error()
	if detail := gjson.GetBytes(upstreamErr.Body, "error.message").String(); detail != "" {
		message = detail
	}
	a.logger.ErrorWithProvider("Upstream error", upstreamErr.ProviderID,
		"status", upstreamErr.StatusCode, "attempts", upstreamErr.Attempts, "detail", message)
	a.writeError(w, upstreamErr.StatusCode, domain.ErrorTypeAPI, message, "")
}
