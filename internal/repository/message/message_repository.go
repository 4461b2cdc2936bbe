// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/iyunix/go-muro/internal/domain"
	"github.com/iyunix/go-muro/internal/repository"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidOutcome  = errors.New("invalid terminal outcome")
)

const maxContentLength = 100000

type gormMessageRepository struct {
	db     *gorm.DB
	clock  *repository.Clock
	logger repository.Logger
}

// NewMessageRepository returns a gorm backed MessageRepository. The clock
// stamps created_at and must be shared by every writer of the same database.
func NewMessageRepository(db *gorm.DB, clock *repository.Clock, logger repository.Logger) MessageRepository {
	return &gormMessageRepository{db: db, clock: clock, logger: logger}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if err := r.prepare(message); err != nil {
		r.logger.Warn("[MessageRepository] validation failed", "error", err)
		return nil, errors.Wrap(err, "validation failed")
	}

	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		r.logger.Error("[MessageRepository] create failed",
			"conversation_id", message.ConversationID, "error", err)
		return nil, errors.Wrap(err, "database error creating message")
	}

	r.logger.Debug("[MessageRepository] message created",
		"message_id", message.ID, "conversation_id", message.ConversationID, "role", message.Role)
	return message, nil
}

func (r *gormMessageRepository) CreateTurn(ctx context.Context, user, assistant *domain.Message) error {
	if assistant == nil {
		return errors.New("assistant placeholder is required")
	}
	if user != nil {
		if err := r.prepare(user); err != nil {
			return errors.Wrap(err, "validation failed")
		}
	}
	if err := r.prepare(assistant); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if user != nil {
			if err := tx.Create(user).Error; err != nil {
				return err
			}
		}
		return tx.Create(assistant).Error
	})
	if err != nil {
		r.logger.Error("[MessageRepository] turn insert failed",
			"conversation_id", assistant.ConversationID, "error", err)
		return errors.Wrap(err, "database error creating turn")
	}
	return nil
}

func (r *gormMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	if messageID == "" {
		return nil, errors.New("invalid message ID")
	}

	var message domain.Message
	err := r.db.WithContext(ctx).Where("id = ?", messageID).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		r.logger.Error("[MessageRepository] FindByID failed", "message_id", messageID, "error", err)
		return nil, errors.Wrap(err, "database error fetching message")
	}
	return &message, nil
}

func (r *gormMessageRepository) FindByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error) {
	if conversationID == "" {
		return nil, errors.New("invalid conversation ID")
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		r.logger.Error("[MessageRepository] history query failed",
			"conversation_id", conversationID, "error", err)
		return nil, errors.Wrap(err, "database error fetching messages")
	}
	return messages, nil
}

func (r *gormMessageRepository) CountByConversationID(ctx context.Context, conversationID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "database error counting messages")
	}
	return count, nil
}

func (r *gormMessageRepository) Settle(ctx context.Context, messageID string, outcome Outcome) (bool, error) {
	if err := outcome.Validate(); err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("id = ? AND status = ?", messageID, domain.StatusSending).
		Updates(map[string]interface{}{
			"status":        outcome.Status,
			"content":       outcome.Content,
			"error_message": outcome.ErrorMessage,
			"error_detail":  outcome.ErrorDetail,
		})
	if result.Error != nil {
		r.logger.Error("[MessageRepository] settle failed",
			"message_id", messageID, "status", outcome.Status, "error", result.Error)
		return false, errors.Wrap(result.Error, "database error settling message")
	}

	if result.RowsAffected == 0 {
		r.logger.Debug("[MessageRepository] settle skipped, row not sending", "message_id", messageID)
		return false, nil
	}
	return true, nil
}

func (r *gormMessageRepository) ResetForRetry(ctx context.Context, messageID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("id = ? AND role = ? AND status = ?", messageID, domain.RoleAssistant, domain.StatusFailed).
		Updates(map[string]interface{}{
			"status":        domain.StatusSending,
			"content":       "",
			"error_message": nil,
			"error_detail":  nil,
		})
	if result.Error != nil {
		r.logger.Error("[MessageRepository] retry reset failed", "message_id", messageID, "error", result.Error)
		return false, errors.Wrap(result.Error, "database error resetting message")
	}
	return result.RowsAffected == 1, nil
}

func (r *gormMessageRepository) FailAbandoned(ctx context.Context, reason string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("status = ?", domain.StatusSending).
		Updates(map[string]interface{}{
			"status":        domain.StatusFailed,
			"error_message": reason,
		})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "database error failing abandoned messages")
	}
	if result.RowsAffected > 0 {
		r.logger.Warn("[MessageRepository] abandoned turns marked failed", "count", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

// prepare validates the row and fills in the id and creation time.
func (r *gormMessageRepository) prepare(message *domain.Message) error {
	if err := validateMessageInput(message); err != nil {
		return err
	}
	if message.ID == "" {
		message.ID = NewID()
	}
	message.CreatedAt = r.clock.Now()
	return nil
}

func validateMessageInput(message *domain.Message) error {
	if message == nil {
		return errors.New("message cannot be nil")
	}
	if strings.TrimSpace(message.ConversationID) == "" {
		return errors.New("conversation ID is required")
	}
	if !message.Role.Valid() {
		return errors.Errorf("invalid role %q", message.Role)
	}
	if !message.Status.Valid() {
		return errors.Errorf("invalid status %q", message.Status)
	}
	if message.Role == domain.RoleUser {
		if message.Status != domain.StatusSent {
			return errors.New("user messages are stored as sent")
		}
		if strings.TrimSpace(message.Content) == "" {
			return errors.New("user message content cannot be empty")
		}
	}
	if len(message.Content) > maxContentLength {
		return errors.Errorf("message content exceeds %d characters", maxContentLength)
	}
	return nil
}

// NewID returns a time ordered UUIDv7 string.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
