// File: internal/services/chat/retry.go
package chat

import (
	"context"
	"strings"

	"github.com/iyunix/go-muro/internal/domain"
)

// retryPlan is the result of locating the turn to retry.
type retryPlan struct {
	assistant domain.Message
	utterance string
	history   []domain.ChatMessage
}

// RetryTurn regenerates the latest assistant message of a conversation when
// it failed. The failed row is reused in place; no rows are inserted.
func (s *StreamingService) RetryTurn(ctx context.Context, conversationID string) (*Turn, error) {
	const op = "retry_turn"

	if err := s.requireConversation(ctx, op, conversationID); err != nil {
		return nil, err
	}

	if !s.registry.acquire(conversationID) {
		return nil, newError(ErrTypeConflict, op, conversationID, ErrTurnInProgress)
	}
	reserved := false
	defer func() {
		if !reserved {
			s.registry.release(conversationID)
		}
	}()

	loadCtx, cancel := context.WithTimeout(ctx, historyLoadTimeout)
	defer cancel()
	messages, err := s.messageRepo.FindByConversationID(loadCtx, conversationID)
	if err != nil {
		return nil, NewStorageError(op, conversationID, err)
	}

	plan, err := findRetryable(messages)
	if err != nil {
		return nil, newError(ErrTypeRetry, op, conversationID, err)
	}

	if err := s.reserveRetry(ctx, plan.assistant.ID); err != nil {
		if _, ok := err.(*ChatError); ok {
			return nil, err
		}
		return nil, newError(ErrTypeRetry, op, conversationID, err)
	}
	s.touch(conversationID)

	s.logger.Info("retry started",
		"conversation_id", conversationID,
		"message_id", plan.assistant.ID,
		"history", len(plan.history))

	reserved = true
	return s.newTurn(conversationID, plan.assistant.ID, plan.history, plan.utterance, true), nil
}

// findRetryable picks the latest assistant message, which must have failed,
// and the user message that triggered it. It reads nothing and writes nothing.
func findRetryable(messages []domain.Message) (*retryPlan, error) {
	assistantIdx := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleAssistant {
			assistantIdx = i
			break
		}
	}
	if assistantIdx < 0 || messages[assistantIdx].Status != domain.StatusFailed {
		return nil, ErrNoFailedAssistant
	}

	userIdx := -1
	for i := assistantIdx - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			userIdx = i
			break
		}
	}
	if userIdx < 0 || strings.TrimSpace(messages[userIdx].Content) == "" {
		return nil, ErrNoUserMessage
	}

	prior := make([]domain.Message, 0, len(messages))
	for i, m := range messages {
		if i == assistantIdx || i == userIdx {
			continue
		}
		prior = append(prior, m)
	}

	return &retryPlan{
		assistant: messages[assistantIdx],
		utterance: messages[userIdx].Content,
		history:   contextHistory(prior),
	}, nil
}

// reserveRetry moves the failed row back to sending. Losing the race to
// another retry means there is nothing left to retry.
func (s *StreamingService) reserveRetry(ctx context.Context, messageID string) error {
	ok, err := s.messageRepo.ResetForRetry(ctx, messageID)
	if err != nil {
		return NewStorageError("reserve_retry", "", err)
	}
	if !ok {
		return ErrNoFailedAssistant
	}
	return nil
}
