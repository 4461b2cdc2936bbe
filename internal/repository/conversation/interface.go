// File: internal/repository/conversation/interface.go
package conversation

import (
	"context"

	"github.com/iyunix/go-muro/internal/domain"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *domain.Conversation) (*domain.Conversation, error)
	FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error)
	// List returns every conversation, most recently active first.
	List(ctx context.Context) ([]domain.Conversation, error)
	UpdateTitle(ctx context.Context, conversationID, title string) (*domain.Conversation, error)
	// Delete removes the conversation together with all of its messages.
	Delete(ctx context.Context, conversationID string) error
	TouchUpdatedAt(ctx context.Context, conversationID string) error
}
