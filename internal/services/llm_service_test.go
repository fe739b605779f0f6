package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
)

func newLLMServer(t *testing.T, status int, content string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Contains(t, req.Messages[1].Content, "刘备")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLLMServiceNarrate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns trimmed text", func(t *testing.T) {
		srv := newLLMServer(t, http.StatusOK, "  刘备得隐士相助。\n")
		svc, err := NewLLMService(models.LLMConfig{APIKey: "test-key", APIBase: srv.URL, Model: "test-model"})
		require.NoError(t, err)

		text, err := svc.Narrate(ctx, "刘备", "经过", "结局")
		require.NoError(t, err)
		assert.Equal(t, "刘备得隐士相助。", text)
	})

	t.Run("empty text is an error", func(t *testing.T) {
		srv := newLLMServer(t, http.StatusOK, "   ")
		svc, err := NewLLMService(models.LLMConfig{APIKey: "test-key", APIBase: srv.URL, Model: "test-model"})
		require.NoError(t, err)

		_, err = svc.Narrate(ctx, "刘备", "经过", "结局")
		assert.Error(t, err)
	})

	t.Run("server error", func(t *testing.T) {
		srv := newLLMServer(t, http.StatusInternalServerError, "")
		svc, err := NewLLMService(models.LLMConfig{APIKey: "test-key", APIBase: srv.URL, Model: "test-model"})
		require.NoError(t, err)

		_, err = svc.Narrate(ctx, "刘备", "经过", "结局")
		assert.Error(t, err)
	})

	t.Run("requires api key", func(t *testing.T) {
		_, err := NewLLMService(models.LLMConfig{})
		assert.Error(t, err)
	})
}
