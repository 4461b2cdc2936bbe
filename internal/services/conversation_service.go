package services

import (
	"context"
	"errors"
	"strings"

	"github.com/iyunix/go-muro/internal/domain"
	"github.com/iyunix/go-muro/internal/repository/conversation"
	"github.com/iyunix/go-muro/internal/repository/message"
)

var (
	ErrTitleRequired        = errors.New("missing title")
	ErrConversationNotFound = conversation.ErrConversationNotFound
)

// ConversationService manages conversations and reads their messages.
type ConversationService struct {
	conversations conversation.ConversationRepository
	messages      message.MessageRepository
	logger        Logger
}

func NewConversationService(conversations conversation.ConversationRepository, messages message.MessageRepository, logger Logger) *ConversationService {
	return &ConversationService{conversations: conversations, messages: messages, logger: logger}
}

func (s *ConversationService) List(ctx context.Context) ([]domain.Conversation, error) {
	list, err := s.conversations.List(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Conversation{}
	}
	return list, nil
}

// Create starts a conversation. A blank title leaves it untitled.
func (s *ConversationService) Create(ctx context.Context, title string) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	if t := strings.TrimSpace(title); t != "" {
		c.Title = &t
	}
	created, err := s.conversations.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	s.logger.Info("conversation created", "conversation_id", created.ID)
	return created, nil
}

func (s *ConversationService) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	return s.conversations.FindByID(ctx, id)
}

func (s *ConversationService) Rename(ctx context.Context, id, title string) (*domain.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	return s.conversations.UpdateTitle(ctx, id, title)
}

func (s *ConversationService) Delete(ctx context.Context, id string) error {
	if err := s.conversations.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("conversation deleted", "conversation_id", id)
	return nil
}

// Messages returns the conversation's messages oldest first.
func (s *ConversationService) Messages(ctx context.Context, id string) ([]domain.Message, error) {
	if _, err := s.conversations.FindByID(ctx, id); err != nil {
		return nil, err
	}
	msgs, err := s.messages.FindByConversationID(ctx, id)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}
