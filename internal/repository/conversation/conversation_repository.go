// File: internal/repository/conversation/conversation_repository.go
package conversation

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/iyunix/go-muro/internal/domain"
	"github.com/iyunix/go-muro/internal/repository"
)

var ErrConversationNotFound = errors.New("conversation not found")

const maxTitleLength = 255

type gormConversationRepository struct {
	db     *gorm.DB
	clock  *repository.Clock
	logger repository.Logger
}

func NewConversationRepository(db *gorm.DB, clock *repository.Clock, logger repository.Logger) ConversationRepository {
	return &gormConversationRepository{db: db, clock: clock, logger: logger}
}

func (r *gormConversationRepository) Create(ctx context.Context, conversation *domain.Conversation) (*domain.Conversation, error) {
	if err := validateConversationInput(conversation); err != nil {
		r.logger.Warn("[ConversationRepository] validation failed", "error", err)
		return nil, errors.Wrap(err, "validation failed")
	}

	if conversation.ID == "" {
		conversation.ID = uuid.NewString()
	}
	now := r.clock.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		r.logger.Error("[ConversationRepository] create failed", "error", err)
		return nil, errors.Wrap(err, "database error creating conversation")
	}

	r.logger.Debug("[ConversationRepository] conversation created", "conversation_id", conversation.ID)
	return conversation, nil
}

func (r *gormConversationRepository) FindByID(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	if conversationID == "" {
		return nil, ErrConversationNotFound
	}

	var conversation domain.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", conversationID).First(&conversation).Error
	return r.handleFindError(err, &conversation, "FindByID")
}

func (r *gormConversationRepository) List(ctx context.Context) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	err := r.db.WithContext(ctx).
		Order("updated_at DESC, id DESC").
		Find(&conversations).Error
	if err != nil {
		r.logger.Error("[ConversationRepository] list failed", "error", err)
		return nil, errors.Wrap(err, "database error listing conversations")
	}
	return conversations, nil
}

func (r *gormConversationRepository) UpdateTitle(ctx context.Context, conversationID, title string) (*domain.Conversation, error) {
	if len(title) > maxTitleLength {
		return nil, errors.Errorf("title exceeds %d characters", maxTitleLength)
	}

	result := r.db.WithContext(ctx).Model(&domain.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{"title": title, "updated_at": r.clock.Now()})
	if result.Error != nil {
		r.logger.Error("[ConversationRepository] title update failed",
			"conversation_id", conversationID, "error", result.Error)
		return nil, errors.Wrap(result.Error, "database error updating conversation")
	}
	if result.RowsAffected == 0 {
		return nil, ErrConversationNotFound
	}
	return r.FindByID(ctx, conversationID)
}

func (r *gormConversationRepository) Delete(ctx context.Context, conversationID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&domain.Message{}).Error; err != nil {
			return errors.Wrap(err, "delete messages")
		}
		result := tx.Where("id = ?", conversationID).Delete(&domain.Conversation{})
		if result.Error != nil {
			return errors.Wrap(result.Error, "delete conversation")
		}
		if result.RowsAffected == 0 {
			return ErrConversationNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return err
		}
		r.logger.Error("[ConversationRepository] delete failed", "conversation_id", conversationID, "error", err)
		return errors.Wrap(err, "database error deleting conversation")
	}

	r.logger.Info("[ConversationRepository] conversation deleted", "conversation_id", conversationID)
	return nil
}

func (r *gormConversationRepository) TouchUpdatedAt(ctx context.Context, conversationID string) error {
	result := r.db.WithContext(ctx).Model(&domain.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", r.clock.Now())
	if result.Error != nil {
		r.logger.Error("[ConversationRepository] touch failed", "conversation_id", conversationID, "error", result.Error)
		return errors.Wrap(result.Error, "database error updating conversation timestamp")
	}
	if result.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (r *gormConversationRepository) handleFindError(err error, conversation *domain.Conversation, operation string) (*domain.Conversation, error) {
	if err == nil {
		return conversation, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	r.logger.Error("[ConversationRepository] query failed", "operation", operation, "error", err)
	return nil, errors.Wrapf(err, "database error in %s", operation)
}

func validateConversationInput(conversation *domain.Conversation) error {
	if conversation == nil {
		return errors.New("conversation cannot be nil")
	}
	if conversation.Title != nil {
		title := strings.TrimSpace(*conversation.Title)
		if len(title) > maxTitleLength {
			return errors.Errorf("title exceeds %d characters", maxTitleLength)
		}
	}
	return nil
}
