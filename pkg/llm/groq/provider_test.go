package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-therapist-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "/chat/completions", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "Tell me more about that."}},
			},
		})
	}))
	defer server.Close()

	p := NewGroqProvider("test-key", server.URL, "llama3-8b-8192", 5*time.Second)

	reply, err := p.Chat(context.Background(), []llm.Message{
		{Role: "system", Content: "You are a therapist."},
		{Role: "user", Content: "I feel anxious."},
	})

	require.NoError(t, err)
	assert.Equal(t, "Tell me more about that.", reply)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "llama3-8b-8192", gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
}

func TestChatOptionsOverrideDefaults(t *testing.T) {
	var gotBody chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	}))
	defer server.Close()

	p := NewGroqProvider("key", server.URL, "llama3-8b-8192", 5*time.Second)

	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}},
		llm.WithModel("llama3-70b-8192"),
		llm.WithMaxTokens(256),
		llm.WithTemperature(0.2),
	)

	require.NoError(t, err)
	assert.Equal(t, "llama3-70b-8192", gotBody.Model)
	assert.Equal(t, 256, gotBody.MaxTokens)
	assert.InDelta(t, 0.2, gotBody.Temperature, 0.001)
}

func TestChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	}))
	defer server.Close()

	p := NewGroqProvider("key", server.URL, "llama3-8b-8192", 5*time.Second)

	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	p := NewGroqProvider("key", server.URL, "llama3-8b-8192", 5*time.Second)

	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestChatContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	p := NewGroqProvider("key", server.URL, "llama3-8b-8192", 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Chat(ctx, []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
}
