package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			var req ChatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "json", req.Format)
			assert.False(t, req.Stream)
			_ = json.NewEncoder(w).Encode(ChatResponse{
				Model:   req.Model,
				Message: ChatMessage{Role: "assistant", Content: `{"calories":{"max":500}}`},
				Done:    true,
			})
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))

	reply, err := client.Complete(context.Background(), "low calorie")

	require.NoError(t, err)
	assert.Equal(t, `{"calories":{"max":500}}`, reply)
	assert.Equal(t, "llama3.2:3b", client.Model())
	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestClient_IncompleteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"content":"{"},"done":false}`))
	}))
	defer server.Close()
	client := NewClient(Config{BaseURL: server.URL}, zaptest.NewLogger(t))

	_, err := client.Complete(context.Background(), "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")
}
