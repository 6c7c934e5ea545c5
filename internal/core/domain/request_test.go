package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		request ChatRequest
		wantErr string
	}{
		{
			name:    "valid request",
			request: ChatRequest{"model": "default", "messages": []any{}},
		},
		{
			name:    "empty messages array is allowed",
			request: ChatRequest{"model": "default", "messages": []any{}},
		},
		{
			name:    "missing model",
			request: ChatRequest{"messages": []any{}},
			wantErr: "model",
		},
		{
			name:    "empty model",
			request: ChatRequest{"model": "", "messages": []any{}},
			wantErr: "model",
		},
		{
			name:    "model not a string",
			request: ChatRequest{"model": float64(42), "messages": []any{}},
			wantErr: "model",
		},
		{
			name:    "missing messages",
			request: ChatRequest{"model": "default"},
			wantErr: "messages",
		},
		{
			name:    "messages not an array",
			request: ChatRequest{"model": "default", "messages": "hi"},
			wantErr: "array",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Contains(t, validationErr.Message, tt.wantErr)
		})
	}
}

func TestChatRequestAccessors(t *testing.T) {
	req := ChatRequest{"model": "default", "stream": true}
	assert.Equal(t, "default", req.Model())
	assert.True(t, req.Stream())

	req = ChatRequest{"model": 12, "stream": "yes"}
	assert.Empty(t, req.Model(), "non-string model reads as empty")
	assert.False(t, req.Stream(), "non-boolean stream reads as false")
}

func TestChatRequestClone(t *testing.T) {
	req := ChatRequest{"model": "default", "cache": true}
	clone := req.Clone()
	clone["model"] = "other"
	delete(clone, "cache")

	assert.Equal(t, "default", req.Model())
	assert.Contains(t, req, "cache")
}
