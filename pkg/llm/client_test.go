package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/config"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/logging"
	"github.com/ekaya-inc/ekaya-sqlchat/pkg/retry"
)

const chatCompletionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "test-model",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "SELECT * FROM users"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 42, "completion_tokens": 5, "total_tokens": 47}
}`

func fakeOpenAIServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestContextAwareTransport_InjectsRequestID(t *testing.T) {
	var received string
	server := fakeOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		received = r.Header.Get(logging.RequestIDHeader)
		w.WriteHeader(http.StatusOK)
	})

	client := newHTTPClient()
	ctx := logging.WithRequestID(context.Background(), "req-123")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-123", received)
	assert.Empty(t, req.Header.Get(logging.RequestIDHeader), "caller's request must not be modified")
}

func TestContextAwareTransport_NoHeaderWithoutRequestID(t *testing.T) {
	var present bool
	server := fakeOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header[logging.RequestIDHeader]
		w.WriteHeader(http.StatusOK)
	})

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := newHTTPClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.False(t, present)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(&Config{Model: "m"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewClient(&Config{Endpoint: "http://localhost:11434/v1"}, zap.NewNop())
	assert.Error(t, err)
}

func TestClient_GenerateResponse(t *testing.T) {
	var body map[string]any
	server := fakeOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody))
	})

	client, err := NewClient(&Config{Endpoint: server.URL + "/", Model: "test-model", APIKey: "test-key"}, zap.NewNop())
	require.NoError(t, err)

	result, err := client.GenerateResponse(context.Background(), "list users", "", 0.2, 512)
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM users", result.Content)
	assert.Equal(t, 42, result.PromptTokens)
	assert.Equal(t, 5, result.CompletionTokens)
	assert.Equal(t, 47, result.TotalTokens)

	assert.Equal(t, "test-model", body["model"])
	assert.EqualValues(t, 512, body["max_tokens"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1, "no system message when none is given")
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
}

func TestClient_GenerateResponse_SystemMessage(t *testing.T) {
	var body struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := fakeOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody))
	})

	client, err := NewClient(&Config{Endpoint: server.URL, Model: "test-model"}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), "q", "you write SQL", 0, 64)
	require.NoError(t, err)

	require.Len(t, body.Messages, 2)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "you write SQL", body.Messages[0].Content)
}

func TestClient_GenerateResponse_ClassifiesHTTPErrors(t *testing.T) {
	server := fakeOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`))
	})

	client, err := NewClient(&Config{Endpoint: server.URL, Model: "test-model", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), "q", "", 0.2, 16)
	require.Error(t, err)

	var llmErr *Error
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, ErrorTypeRateLimited, llmErr.Type)
	assert.Equal(t, 429, llmErr.StatusCode)
	assert.True(t, llmErr.Retryable)
	assert.Equal(t, "test-model", llmErr.Model)
}

func TestClient_GenerateResponse_NoChoices(t *testing.T) {
	server := fakeOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	})

	client, err := NewClient(&Config{Endpoint: server.URL, Model: "test-model"}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), "q", "", 0.2, 16)
	assert.Equal(t, ErrorTypeResponse, GetErrorType(err))
}

func TestAnthropicClient_GenerateResponse(t *testing.T) {
	var body map[string]any
	server := fakeOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
  "content": [{"type": "text", "text": "SELECT 1"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 12, "output_tokens": 3}
}`))
	})

	client, err := NewAnthropicClient(&Config{Endpoint: server.URL, Model: "claude-test", APIKey: "test-key"}, zap.NewNop())
	require.NoError(t, err)

	result, err := client.GenerateResponse(context.Background(), "one", "be terse", 0.2, 256)
	require.NoError(t, err)

	assert.Equal(t, "SELECT 1", result.Content)
	assert.Equal(t, 12, result.PromptTokens)
	assert.Equal(t, 3, result.CompletionTokens)
	assert.Equal(t, 15, result.TotalTokens)
	assert.Equal(t, "claude-test", body["model"])
	assert.Equal(t, "be terse", body["system"])
	assert.EqualValues(t, 256, body["max_tokens"])
}

func TestAnthropicClient_RequiresKeyAndModel(t *testing.T) {
	_, err := NewAnthropicClient(&Config{Model: "claude-test"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewAnthropicClient(&Config{APIKey: "k"}, zap.NewNop())
	assert.Error(t, err)
}

func TestGuardedClient_RetriesRetryableErrors(t *testing.T) {
	var calls atomic.Int32
	mock := NewMockLLMClient("")
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, temperature float64, maxTokens int) (*GenerateResponseResult, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("HTTP 503 Service Unavailable")
		}
		return &GenerateResponseResult{Content: "SELECT 1"}, nil
	}

	guarded := NewGuardedClient(mock, "openai",
		NewCircuitBreaker(CircuitBreakerConfig{Threshold: 10, ResetAfter: time.Minute}),
		&retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, Multiplier: 1},
		zap.NewNop())

	result, err := guarded.GenerateResponse(context.Background(), "q", "", 0.2, 16)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", result.Content)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, CircuitClosed, guarded.Breaker().State())
}

func TestGuardedClient_DoesNotRetryPermanentErrors(t *testing.T) {
	mock := NewMockLLMClient("")
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, temperature float64, maxTokens int) (*GenerateResponseResult, error) {
		return nil, errors.New("HTTP 401 Unauthorized")
	}

	guarded := NewGuardedClient(mock, "openai",
		NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		&retry.Config{MaxRetries: 3, InitialDelay: time.Millisecond, Multiplier: 1},
		zap.NewNop())

	_, err := guarded.GenerateResponse(context.Background(), "q", "", 0.2, 16)
	assert.Equal(t, ErrorTypeAuth, GetErrorType(err))
	assert.Equal(t, 1, mock.Calls())
}

func TestGuardedClient_CircuitOpensAndFailsFast(t *testing.T) {
	mock := NewMockLLMClient("")
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, temperature float64, maxTokens int) (*GenerateResponseResult, error) {
		return nil, errors.New("HTTP 400 bad request")
	}

	guarded := NewGuardedClient(mock, "openai",
		NewCircuitBreaker(CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Hour}),
		nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := guarded.GenerateResponse(context.Background(), "q", "", 0.2, 16)
		require.Error(t, err)
	}
	require.Equal(t, CircuitOpen, guarded.Breaker().State())

	_, err := guarded.GenerateResponse(context.Background(), "q", "", 0.2, 16)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, mock.Calls(), "open circuit must not reach the provider")
}

func TestGuardedClient_CancelledCallDoesNotWedgeCircuit(t *testing.T) {
	var calls atomic.Int32
	mock := NewMockLLMClient("")
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, temperature float64, maxTokens int) (*GenerateResponseResult, error) {
		switch calls.Add(1) {
		case 1:
			return nil, errors.New("HTTP 400 bad request")
		case 2:
			return nil, context.Canceled
		default:
			return &GenerateResponseResult{Content: "SELECT 1"}, nil
		}
	}

	breaker, clock := newTestBreaker(1, 10*time.Second)
	guarded := NewGuardedClient(mock, "openai", breaker, nil, zap.NewNop())

	_, err := guarded.GenerateResponse(context.Background(), "q", "", 0.2, 16)
	require.Error(t, err)
	require.Equal(t, CircuitOpen, breaker.State())

	clock.Advance(10 * time.Second)
	_, err = guarded.GenerateResponse(context.Background(), "q", "", 0.2, 16)
	require.Error(t, err)
	assert.Equal(t, CircuitOpen, breaker.State(), "abandoned call must hand the slot back")

	result, err := guarded.GenerateResponse(context.Background(), "q", "", 0.2, 16)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", result.Content)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, CircuitClosed, breaker.State())
}

func TestNewClientFromConfig(t *testing.T) {
	server := fakeOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody))
	})

	client, err := NewClientFromConfig(config.LLMConfig{
		Provider:            "openai",
		BaseURL:             server.URL,
		Model:               "test-model",
		MaxRetries:          1,
		CircuitThreshold:    5,
		CircuitResetSeconds: 30,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "test-model", client.GetModel())
	assert.Equal(t, server.URL, client.GetEndpoint())

	result, err := client.GenerateResponse(context.Background(), "q", "", 0.2, 16)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users", result.Content)

	anthropicClient, err := NewClientFromConfig(config.LLMConfig{Provider: "anthropic", Model: "claude-test", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultAnthropicBaseURL, anthropicClient.GetEndpoint())

	_, err = NewClientFromConfig(config.LLMConfig{Provider: "bogus", Model: "m"}, zap.NewNop())
	assert.Error(t, err)
}
