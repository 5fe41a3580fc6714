package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/isq-cli/internal/resilience"
)

func messageJSON(text string) map[string]any {
	return map[string]any{
		"id":   "msg_test_001",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-sonnet-4-5-20250929",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":                120,
			"output_tokens":               40,
			"cache_creation_input_tokens": 900,
			"cache_read_input_tokens":     0,
		},
	}
}

func TestSDKClient_CreateMessage(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageJSON(`{"config":{"name":"Grade","options":["304"]}}`))
	}))
	defer ts.Close()

	temp := 0.0
	client := NewClient("test-key", WithBaseURL(ts.URL), WithTimeout(5*time.Second))
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   1024,
		System:      CachedSystem("You extract product specifications."),
		Messages:    UserMessage("Stainless steel sheet"),
		Temperature: &temp,
	})
	require.NoError(t, err)

	assert.Equal(t, "msg_test_001", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, `{"config":{"name":"Grade","options":["304"]}}`, resp.Text())
	assert.Equal(t, int64(1060), resp.Usage.Total())

	require.NotNil(t, body)
	assert.Equal(t, "claude-sonnet-4-5-20250929", body["model"])
	system, ok := body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	block := system[0].(map[string]any)
	assert.Equal(t, "You extract product specifications.", block["text"])
	assert.NotNil(t, block["cache_control"])
}

func TestSDKClient_CreateMessage_ErrorCarriesStatus(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type": "error",
			"error": map[string]any{
				"type":    "rate_limit_error",
				"message": "Rate limited",
			},
		})
	}))
	defer ts.Close()

	client := NewClient("test-key", WithBaseURL(ts.URL))
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 64,
		Messages:  UserMessage("hi"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	assert.Equal(t, 1, calls, "sdk retries must be disabled")
}

func TestRetryable_MarksOverloadedAsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "4")
		w.WriteHeader(529)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "overloaded_error", "message": "Overloaded"},
		})
	}))
	defer ts.Close()

	client := NewClient("test-key", WithBaseURL(ts.URL))
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 64,
		Messages:  UserMessage("hi"),
	})
	require.Error(t, err)

	wrapped := Retryable(err)
	assert.True(t, resilience.IsTransient(wrapped))
	assert.Equal(t, 4*time.Second, resilience.RetryAfter(wrapped))
	assert.Equal(t, 529, StatusCode(wrapped))
}

func TestRetryable_LeavesBadRequestAlone(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "invalid_request_error", "message": "bad"},
		})
	}))
	defer ts.Close()

	client := NewClient("test-key", WithBaseURL(ts.URL))
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 64,
		Messages:  UserMessage("hi"),
	})
	require.Error(t, err)
	assert.Same(t, err, Retryable(err))
	assert.False(t, resilience.IsTransient(Retryable(err)))

	plain := errors.New("dial tcp: refused")
	assert.Same(t, plain, Retryable(plain))
}
