// File: internal/repository/memory/store.go
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/iyunix/go-muro/internal/domain"
	"github.com/iyunix/go-muro/internal/repository"
	"github.com/iyunix/go-muro/internal/repository/conversation"
	"github.com/iyunix/go-muro/internal/repository/message"
)

// Store keeps conversations and messages in process memory. It satisfies the
// same contracts as the gorm repositories and is used by tests and by the
// server when DATABASE_PATH is "memory".
type Store struct {
	mu            sync.Mutex
	clock         *repository.Clock
	conversations map[string]domain.Conversation
	messages      map[string]domain.Message

	// FailNextSettle makes the next Settle call return this error once.
	FailNextSettle error
}

func NewStore() *Store {
	return &Store{
		clock:         repository.NewClock(),
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string]domain.Message),
	}
}

func (s *Store) Conversations() conversation.ConversationRepository { return conversationRepo{s} }

func (s *Store) Messages() message.MessageRepository { return messageRepo{s} }

type conversationRepo struct{ s *Store }

func (r conversationRepo) Create(_ context.Context, c *domain.Conversation) (*domain.Conversation, error) {
	if c == nil {
		return nil, errors.New("conversation cannot be nil")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := r.s.clock.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.conversations[c.ID] = *c
	return c, nil
}

func (r conversationRepo) FindByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return nil, conversation.ErrConversationNotFound
	}
	return &c, nil
}

func (r conversationRepo) List(context.Context) ([]domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	list := make([]domain.Conversation, 0, len(r.s.conversations))
	for _, c := range r.s.conversations {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (r conversationRepo) UpdateTitle(_ context.Context, id, title string) (*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return nil, conversation.ErrConversationNotFound
	}
	c.Title = &title
	c.UpdatedAt = r.s.clock.Now()
	r.s.conversations[id] = c
	return &c, nil
}

func (r conversationRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.conversations[id]; !ok {
		return conversation.ErrConversationNotFound
	}
	delete(r.s.conversations, id)
	for mid, m := range r.s.messages {
		if m.ConversationID == id {
			delete(r.s.messages, mid)
		}
	}
	return nil
}

func (r conversationRepo) TouchUpdatedAt(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return conversation.ErrConversationNotFound
	}
	c.UpdatedAt = r.s.clock.Now()
	r.s.conversations[id] = c
	return nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, m *domain.Message) (*domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.insertLocked(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r messageRepo) CreateTurn(_ context.Context, user, assistant *domain.Message) error {
	if assistant == nil {
		return errors.New("assistant placeholder is required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if user != nil {
		if err := r.s.insertLocked(user); err != nil {
			return err
		}
	}
	if err := r.s.insertLocked(assistant); err != nil {
		if user != nil {
			delete(r.s.messages, user.ID)
		}
		return err
	}
	return nil
}

func (r messageRepo) FindByID(_ context.Context, id string) (*domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok {
		return nil, message.ErrMessageNotFound
	}
	return &m, nil
}

func (r messageRepo) FindByConversationID(_ context.Context, conversationID string) ([]domain.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Message
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r messageRepo) CountByConversationID(ctx context.Context, conversationID string) (int64, error) {
	msgs, err := r.FindByConversationID(ctx, conversationID)
	return int64(len(msgs)), err
}

func (r messageRepo) Settle(_ context.Context, id string, outcome message.Outcome) (bool, error) {
	if err := outcome.Validate(); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.FailNextSettle; err != nil {
		r.s.FailNextSettle = nil
		return false, err
	}

	m, ok := r.s.messages[id]
	if !ok || m.Status != domain.StatusSending {
		return false, nil
	}
	m.Status = outcome.Status
	m.Content = outcome.Content
	m.ErrorMessage = outcome.ErrorMessage
	m.ErrorDetail = outcome.ErrorDetail
	r.s.messages[id] = m
	return true, nil
}

func (r messageRepo) ResetForRetry(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok || m.Role != domain.RoleAssistant || m.Status != domain.StatusFailed {
		return false, nil
	}
	m.Status = domain.StatusSending
	m.Content = ""
	m.ErrorMessage = nil
	m.ErrorDetail = nil
	r.s.messages[id] = m
	return true, nil
}

func (r messageRepo) FailAbandoned(_ context.Context, reason string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, m := range r.s.messages {
		if m.Status == domain.StatusSending {
			m.Status = domain.StatusFailed
			msg := reason
			m.ErrorMessage = &msg
			r.s.messages[id] = m
			n++
		}
	}
	return n, nil
}

func (s *Store) insertLocked(m *domain.Message) error {
	if m == nil {
		return errors.New("message cannot be nil")
	}
	if _, ok := s.conversations[m.ConversationID]; !ok {
		return errors.Wrap(conversation.ErrConversationNotFound, "insert message")
	}
	if !m.Role.Valid() || !m.Status.Valid() {
		return errors.Errorf("invalid message role %q or status %q", m.Role, m.Status)
	}
	if m.Role == domain.RoleUser && (m.Status != domain.StatusSent || strings.TrimSpace(m.Content) == "") {
		return errors.New("user messages are stored as sent with content")
	}
	if m.ID == "" {
		m.ID = message.NewID()
	}
	m.CreatedAt = s.clock.Now()
	s.messages[m.ID] = *m
	return nil
}
