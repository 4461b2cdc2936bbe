// File: internal/services/chat/errors.go
package chat

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConflict   ErrorType = "CONFLICT"
	ErrTypeRetry      ErrorType = "NO_RETRYABLE_TURN"
	ErrTypeGeneration ErrorType = "GENERATION"
	ErrTypeStorage    ErrorType = "STORAGE"
)

var (
	ErrEmptyContent         = errors.New("message content cannot be empty")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrTurnInProgress       = errors.New("a response is already being generated for this conversation")
	ErrTurnSettled          = errors.New("turn already settled")

	ErrNoRetryableTurn   = errors.New("no retryable turn")
	ErrNoFailedAssistant = fmt.Errorf("%w: no failed assistant message", ErrNoRetryableTurn)
	ErrNoUserMessage     = fmt.Errorf("%w: no user message to retry", ErrNoRetryableTurn)
)

type ChatError struct {
	Type           ErrorType
	Operation      string
	Message        string
	ConversationID string
	Cause          error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Chat %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("Chat %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error { return e.Cause }

func newError(typ ErrorType, operation, conversationID string, cause error) *ChatError {
	return &ChatError{
		Type:           typ,
		Operation:      operation,
		Message:        cause.Error(),
		ConversationID: conversationID,
		Cause:          cause,
	}
}

func NewValidationError(operation, conversationID string, cause error) *ChatError {
	return newError(ErrTypeValidation, operation, conversationID, cause)
}

func NewStorageError(operation, conversationID string, cause error) *ChatError {
	e := newError(ErrTypeStorage, operation, conversationID, cause)
	e.Message = "storage failure"
	return e
}
