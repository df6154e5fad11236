package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completionRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*LMStudio, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewLMStudio(Config{
		BaseURL:      server.URL,
		DefaultModel: "default",
		Timeout:      5 * time.Second,
	}, zerolog.Nop())
	return client, server
}

func TestLMStudio_Complete(t *testing.T) {
	var captured completionRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Hello from LM Studio.  "}}]
		}`))
	})

	text, err := client.Complete(context.Background(), "Say hello", "")
	require.NoError(t, err)

	assert.Equal(t, "Hello from LM Studio.", text, "reply must be trimmed")
	assert.Equal(t, "default", captured.Model, "default model applies when none is given")
	assert.False(t, captured.Stream)
	assert.InDelta(t, 0.2, captured.Temperature, 0.001)
	require.Len(t, captured.Messages, 1, "exactly one user message")
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, "Say hello", captured.Messages[0].Content)
}

func TestLMStudio_Complete_ExplicitModel(t *testing.T) {
	var captured completionRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"index": 0, "message": {"role": "assistant", "content": "ok"}}]}`))
	})

	_, err := client.Complete(context.Background(), "hi", "qwen2.5-7b")
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5-7b", captured.Model)
}

func TestLMStudio_Complete_BackendErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error": {"message": "model not loaded"}}`, http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"choices": `))
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"choices": []}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)

			_, err := client.Complete(context.Background(), "hi", "")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBackend)
		})
	}
}

func TestLMStudio_Complete_Unreachable(t *testing.T) {
	client := NewLMStudio(Config{
		BaseURL:      "http://127.0.0.1:1",
		DefaultModel: "default",
		Timeout:      time.Second,
	}, zerolog.Nop())

	_, err := client.Complete(context.Background(), "hi", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackend)
}

func TestLMStudio_Ping(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/models", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"object": "list", "data": [{"id": "qwen2.5-7b", "object": "model"}]}`))
		})

		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("non-200", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "busy", http.StatusServiceUnavailable)
		})

		err := client.Ping(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBackend)
	})

	t.Run("unreachable", func(t *testing.T) {
		client := NewLMStudio(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, zerolog.Nop())
		assert.Error(t, client.Ping(context.Background()))
	})
}
