// File: internal/services/chat/streaming.go
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/iyunix/go-muro/internal/domain"
	"github.com/iyunix/go-muro/internal/repository/conversation"
	"github.com/iyunix/go-muro/internal/repository/message"
	"github.com/iyunix/go-muro/internal/services/ai"
)

// StreamingService orchestrates the turns of every conversation.
type StreamingService struct {
	config           *Config
	conversationRepo conversation.ConversationRepository
	messageRepo      message.MessageRepository
	generator        Generator
	registry         *turnRegistry
	logger           Logger
}

// NewStreamingService creates a new instance of the StreamingService.
func NewStreamingService(
	config *Config,
	conversationRepo conversation.ConversationRepository,
	messageRepo message.MessageRepository,
	generator Generator,
	logger Logger,
) (*StreamingService, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if conversationRepo == nil {
		return nil, errors.New("chat: conversation repository must not be nil")
	}
	if messageRepo == nil {
		return nil, errors.New("chat: message repository must not be nil")
	}
	if generator == nil {
		return nil, errors.New("chat: generator must not be nil")
	}
	if logger == nil {
		return nil, errors.New("chat: logger must not be nil")
	}

	return &StreamingService{
		config:           config,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		generator:        generator,
		registry:         newTurnRegistry(),
		logger:           logger,
	}, nil
}

// BeginTurn persists a user message and its assistant placeholder and returns
// the turn that will generate the reply. Nothing is written when it fails.
func (s *StreamingService) BeginTurn(ctx context.Context, conversationID, utterance string) (*Turn, error) {
	const op = "begin_turn"

	content := strings.TrimSpace(utterance)
	if content == "" {
		return nil, NewValidationError(op, conversationID, ErrEmptyContent)
	}

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

	user := &domain.Message{
		ConversationID: conversationID,
		Role:           domain.RoleUser,
		Content:        content,
		Status:         domain.StatusSent,
	}
	assistant := &domain.Message{
		ConversationID: conversationID,
		Role:           domain.RoleAssistant,
		Status:         domain.StatusSending,
	}
	if err := s.messageRepo.CreateTurn(ctx, user, assistant); err != nil {
		return nil, NewStorageError(op, conversationID, err)
	}
	s.touch(conversationID)

	s.logger.Info("turn started",
		"conversation_id", conversationID,
		"message_id", assistant.ID,
		"history", len(messages))

	reserved = true
	return s.newTurn(conversationID, assistant.ID, contextHistory(messages), content, false), nil
}

func (s *StreamingService) requireConversation(ctx context.Context, op, conversationID string) error {
	_, err := s.conversationRepo.FindByID(ctx, conversationID)
	if err == nil {
		return nil
	}
	if errors.Is(err, conversation.ErrConversationNotFound) {
		e := newError(ErrTypeNotFound, op, conversationID, ErrConversationNotFound)
		return e
	}
	return NewStorageError(op, conversationID, err)
}

// touch refreshes the conversation's activity time. Failure only costs list order.
func (s *StreamingService) touch(conversationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), dbSaveTimeout)
	defer cancel()
	if err := s.conversationRepo.TouchUpdatedAt(ctx, conversationID); err != nil {
		s.logger.Warn("failed to touch conversation", "conversation_id", conversationID, "error", err)
	}
}

func (s *StreamingService) newTurn(conversationID, assistantID string, history []domain.ChatMessage, utterance string, retry bool) *Turn {
	return &Turn{
		service:        s,
		conversationID: conversationID,
		assistantID:    assistantID,
		retry:          retry,
		request: ai.Request{
			System:  s.config.SystemInstruction,
			History: history,
			Prompt:  utterance,
		},
	}
}

// Busy reports whether a turn is in flight for the conversation.
func (s *StreamingService) Busy(conversationID string) bool {
	return s.registry.busy(conversationID)
}

// RecoverAbandoned fails turns left sending by a previous process.
func (s *StreamingService) RecoverAbandoned(ctx context.Context) (int64, error) {
	return s.messageRepo.FailAbandoned(ctx, "Server restarted before the response completed")
}

// contextHistory keeps user messages and completed assistant replies. Partial
// output of failed turns is not fed back to the model.
func contextHistory(messages []domain.Message) []domain.ChatMessage {
	kept := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == domain.RoleAssistant && m.Status != domain.StatusSent {
			continue
		}
		kept = append(kept, m)
	}
	return domain.History(kept)
}
