package ai

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		typ  ErrorType
		msg  string
	}{
		{"unauthorized status", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad"}, ErrTypeConfig, MsgConfig},
		{"forbidden status", &openai.APIError{HTTPStatusCode: http.StatusForbidden}, ErrTypeConfig, MsgConfig},
		{"api key text", errors.New("Incorrect API key provided"), ErrTypeConfig, MsgConfig},
		{"rate limited status", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Code: "rate_limit_exceeded"}, ErrTypeRateLimit, MsgRateLimit},
		{"rate limit text", errors.New("hit the rate limit"), ErrTypeRateLimit, MsgRateLimit},
		{"quota on 429", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Code: "insufficient_quota"}, ErrTypeQuota, MsgQuota},
		{"quota text", errors.New("insufficient_quota"), ErrTypeQuota, MsgQuota},
		{"server error", &openai.APIError{HTTPStatusCode: http.StatusBadGateway}, ErrTypeUnavailable, MsgUnavailable},
		{"network", errors.New("connection reset by peer"), ErrTypeUnavailable, MsgUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			typ, msg := Classify(tc.err)
			assert.Equal(t, tc.typ, typ)
			assert.Equal(t, tc.msg, msg)
		})
	}
}

func TestClassifySeesThroughWrapping(t *testing.T) {
	inner := &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}
	wrapped := fmt.Errorf("turn: %w", NewProviderError("completion", "failed", inner))

	assert.Equal(t, MsgRateLimit, UserMessage(wrapped))

	var aiErr *AIError
	assert.True(t, errors.As(wrapped, &aiErr))
	assert.Equal(t, http.StatusTooManyRequests, aiErr.Code)
	assert.Equal(t, ErrTypeRateLimit, aiErr.Type)
	assert.ErrorIs(t, wrapped, inner)
}

func TestClassifyNil(t *testing.T) {
	assert.Equal(t, MsgUnavailable, UserMessage(nil))
}
