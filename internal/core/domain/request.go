package domain

// Top-level chat completion request fields the proxy inspects. Everything
// else passes through the capability whitelist untouched.
const (
	FieldModel     = "model"
	FieldMessages  = "messages"
	FieldStream    = "stream"
	FieldCache     = "cache"
	FieldReasoning = "reasoning"
)

// ChatRequest is a parsed chat completion request body. Kept as a generic
// map so unknown extension fields survive the round trip; the transformer
// decides what the upstream is allowed to see.
type ChatRequest map[string]any

// Model returns the client-supplied model alias, or "" when absent or not a
// string
func (r ChatRequest) Model() string {
	model, _ := r[FieldModel].(string)
	return model
}

// Stream reports whether the client asked for a streamed response
func (r ChatRequest) Stream() bool {
	stream, _ := r[FieldStream].(bool)
	return stream
}

// Validate enforces the request invariant: model is a non-empty string and
// messages is present as an array. Message elements are not type-validated
// further.
func (r ChatRequest) Validate() error {
	model, ok := r[FieldModel].(string)
	if !ok || model == "" {
		return &ValidationError{Message: "model must be a non-empty string"}
	}

	messages, present := r[FieldMessages]
	if !present {
		return &ValidationError{Message: "messages is required"}
	}
	if _, isArray := messages.([]any); !isArray {
		return &ValidationError{Message: "messages must be an array"}
	}

	return nil
}

// Clone returns a shallow copy, so the transformer can delete and rewrite
// fields without mutating the handler's parsed request
func (r ChatRequest) Clone() ChatRequest {
	out := make(ChatRequest, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
