package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  DefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts Options) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	opts.BaseURL = server.URL
	if opts.APIKey == "" {
		opts.APIKey = "test-key"
	}
	return NewClient(opts)
}

func TestComplete_SendsRequest(t *testing.T) {
	var got openai.ChatCompletionRequest
	var auth, path string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("  yo, UCK is moving  \n")))
	}, Options{SystemPrompt: SystemPrompt("UCK")})

	reply, err := client.Complete(context.Background(), "what's up?")
	require.NoError(t, err)

	assert.Equal(t, "yo, UCK is moving", reply)
	assert.Equal(t, "/chat/completions", path)
	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, DefaultModel, got.Model)
	assert.InDelta(t, DefaultTemperature, got.Temperature, 1e-6)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "UCK/XRP")
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[1].Role)
	assert.Equal(t, "what's up?", got.Messages[1].Content)
}

func TestComplete_CustomModel(t *testing.T) {
	var got openai.ChatCompletionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(completionBody("ok")))
	}, Options{Model: "llama-3.1-8b-instant", MaxTokens: 64})

	_, err := client.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "llama-3.1-8b-instant", got.Model)
	assert.Equal(t, 64, got.MaxTokens)
	require.Len(t, got.Messages, 1, "no system message without a prompt")
}

func TestComplete_RateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached for model","type":"tokens","code":"rate_limit_exceeded"}}`))
	}, Options{})

	_, err := client.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, RateLimitReply, ErrorReply(err))
}

func TestComplete_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
	}, Options{})

	_, err := client.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)

	reply := ErrorReply(err)
	assert.True(t, strings.HasPrefix(reply, "Oops: "))
	assert.Contains(t, reply, "upstream exploded")
}

func TestComplete_EmptyReply(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"blank content", completionBody("   ")},
		{"no choices", `{"id":"x","object":"chat.completion","choices":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}, Options{})

			_, err := client.Complete(context.Background(), "hi")
			assert.ErrorIs(t, err, ErrEmptyReply)
		})
	}
}

func TestComplete_LocalLimiter(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(completionBody("ok")))
	}, Options{RequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		_, err := client.Complete(context.Background(), "hi")
		require.NoError(t, err)
	}

	_, err := client.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(2), calls.Load(), "limited request must not reach the API")
}

func TestComplete_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody("ok")))
	}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestErrorReply_Truncates(t *testing.T) {
	long := strings.Repeat("é", 300)
	reply := ErrorReply(errors.New(long))

	assert.Equal(t, "Oops: "+strings.Repeat("é", 200), reply)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "🚀🚀", Truncate("🚀🚀🚀", 2))
}
