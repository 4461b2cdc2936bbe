// File: internal/services/ai/errors.go
package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type ErrorType string

const (
	ErrTypeConfig      ErrorType = "CONFIG"
	ErrTypeRateLimit   ErrorType = "RATE_LIMIT"
	ErrTypeQuota       ErrorType = "QUOTA"
	ErrTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrTypeProvider    ErrorType = "PROVIDER"
)

// User-facing messages, one per category.
const (
	MsgConfig      = "AI service configuration error. Please contact support."
	MsgRateLimit   = "AI service is busy. Please try again in a moment."
	MsgQuota       = "AI service quota exceeded. Please contact support."
	MsgUnavailable = "AI service temporarily unavailable. Please try again."
)

type AIError struct {
	Type      ErrorType
	Code      int // upstream HTTP status, 0 when unknown
	Message   string
	Model     string
	Operation string
	Cause     error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("AI %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("AI %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *AIError) Unwrap() error { return e.Cause }

func NewConfigError(msg string) *AIError {
	return &AIError{Type: ErrTypeConfig, Message: msg, Operation: "config"}
}

// NewProviderError wraps an upstream failure and classifies it.
func NewProviderError(operation, msg string, cause error) *AIError {
	e := &AIError{Type: ErrTypeProvider, Operation: operation, Message: msg, Cause: cause}
	e.Code = statusOf(cause)
	e.Type, _ = Classify(e)
	return e
}

// Classify maps any generation failure onto one of four categories and the
// message shown to the user for it.
func Classify(err error) (ErrorType, string) {
	if err == nil {
		return ErrTypeUnavailable, MsgUnavailable
	}

	status := statusOf(err)
	code := codeOf(err)
	text := err.Error()
	lower := strings.ToLower(text)

	switch {
	case code == "insufficient_quota" || strings.Contains(lower, "insufficient_quota"):
		return ErrTypeQuota, MsgQuota
	case status == http.StatusUnauthorized || status == http.StatusForbidden,
		code == "invalid_api_key",
		strings.Contains(text, "API key"):
		return ErrTypeConfig, MsgConfig
	case status == http.StatusTooManyRequests, strings.Contains(lower, "rate limit"):
		return ErrTypeRateLimit, MsgRateLimit
	default:
		return ErrTypeUnavailable, MsgUnavailable
	}
}

// UserMessage returns the classified message for err.
func UserMessage(err error) string {
	_, msg := Classify(err)
	return msg
}

func statusOf(err error) int {
	var aiErr *AIError
	if errors.As(err, &aiErr) && aiErr.Code != 0 {
		return aiErr.Code
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func codeOf(err error) string {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return ""
	}
	if code, ok := apiErr.Code.(string); ok && code != "" {
		return code
	}
	return apiErr.Type
}
