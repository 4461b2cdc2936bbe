package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-muro/internal/domain"
)

type recordedRequest struct {
	mu  sync.Mutex
	req openai.ChatCompletionRequest
}

func newProvider(t *testing.T, handler http.HandlerFunc, mutate func(*Config)) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL + "/v1"
	if mutate != nil {
		mutate(cfg)
	}
	p, err := NewOpenAIProvider(cfg, wordCounter{})
	require.NoError(t, err)
	return p
}

func capture(t *testing.T, rec *recordedRequest, r *http.Request) {
	t.Helper()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NoError(t, json.NewDecoder(r.Body).Decode(&rec.req))
}

func TestGetCompletionBuildsMessages(t *testing.T) {
	rec := &recordedRequest{}
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		capture(t, rec, r)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Sure, here's a summary."},"finish_reason":"stop"}]}`)
	}, nil)

	out, err := p.GetCompletion(context.Background(), Request{
		System:  "be helpful",
		History: []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}, {Role: domain.RoleAssistant, Content: "hello"}},
		Prompt:  "Summarize the HVAC scope?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sure, here's a summary.", out)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "gpt-4o-mini", rec.req.Model)
	assert.Equal(t, 1024, rec.req.MaxTokens)
	require.Len(t, rec.req.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, rec.req.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, rec.req.Messages[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, rec.req.Messages[2].Role)
	assert.Equal(t, "Summarize the HVAC scope?", rec.req.Messages[3].Content)
}

func TestGetCompletionTrimsHistoryToBudget(t *testing.T) {
	rec := &recordedRequest{}
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		capture(t, rec, r)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}, func(c *Config) {
		c.MaxTokens = 10
		// system(1) + prompt(1) + max(10) = 12 reserved, 6 tokens left: only the newest message fits
		c.ContextMaxTokens = 18
	})

	_, err := p.GetCompletion(context.Background(), Request{
		System:  "sys",
		History: []domain.ChatMessage{{Role: domain.RoleUser, Content: "old old"}, {Role: domain.RoleAssistant, Content: "new"}},
		Prompt:  "now",
	})
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.req.Messages, 3)
	assert.Equal(t, "new", rec.req.Messages[1].Content)
}

func TestGetCompletionClassifiesAPIErrors(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`)
	}, nil)

	_, err := p.GetCompletion(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)

	var aiErr *AIError
	require.ErrorAs(t, err, &aiErr)
	assert.Equal(t, http.StatusTooManyRequests, aiErr.Code)
	assert.Equal(t, ErrTypeQuota, aiErr.Type)
	assert.Equal(t, MsgQuota, UserMessage(err))
}

func TestStreamCompletionDeliversDeltas(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Sure", ", here's", " a summary."} {
			fmt.Fprintf(w, "data: {\"id\":\"s\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}, nil)

	var got []string
	err := p.StreamCompletion(context.Background(), Request{Prompt: "hi"}, func(delta string) error {
		got = append(got, delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Sure", ", here's", " a summary."}, got)
	assert.Equal(t, "Sure, here's a summary.", strings.Join(got, ""))
}

func TestStreamCompletionStopsOnCallbackError(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"b\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}, nil)

	stop := fmt.Errorf("stop")
	calls := 0
	err := p.StreamCompletion(context.Background(), Request{Prompt: "hi"}, func(string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(DefaultConfig(), nil)
	var aiErr *AIError
	require.ErrorAs(t, err, &aiErr)
	assert.Equal(t, ErrTypeConfig, aiErr.Type)
}
