// File: internal/repository/message/interface.go
package message

import (
	"context"

	"github.com/iyunix/go-muro/internal/domain"
)

// MessageRepository persists the rows of a conversation. Terminal updates are
// conditional on the current status so that concurrent settlers cannot both win.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	// CreateTurn inserts the user row (optional) and the assistant placeholder
	// in one transaction, user first.
	CreateTurn(ctx context.Context, user, assistant *domain.Message) error
	FindByID(ctx context.Context, messageID string) (*domain.Message, error)
	FindByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error)
	CountByConversationID(ctx context.Context, conversationID string) (int64, error)

	// Settle moves a sending row to its terminal outcome. It reports false when
	// the row was no longer sending.
	Settle(ctx context.Context, messageID string, outcome Outcome) (bool, error)
	// ResetForRetry moves a failed row back to sending with empty content and
	// cleared errors. It reports false when the row was no longer failed.
	ResetForRetry(ctx context.Context, messageID string) (bool, error)
	// FailAbandoned marks every row still sending as failed with reason. It
	// runs at startup, when no turn of this process can own such a row.
	FailAbandoned(ctx context.Context, reason string) (int64, error)
}

// Outcome is the terminal state written by Settle.
type Outcome struct {
	Status       domain.Status
	Content      string
	ErrorMessage *string
	ErrorDetail  *string
}

// Sent builds the outcome of a completed turn.
func Sent(content string) Outcome {
	return Outcome{Status: domain.StatusSent, Content: content}
}

// Failed builds the outcome of a failed turn.
func Failed(partial, message, detail string) Outcome {
	o := Outcome{Status: domain.StatusFailed, Content: partial, ErrorMessage: &message}
	if detail != "" {
		o.ErrorDetail = &detail
	}
	return o
}

// Validate checks that the outcome is a legal terminal state.
func (o Outcome) Validate() error {
	switch o.Status {
	case domain.StatusSent:
		if o.ErrorMessage != nil || o.ErrorDetail != nil {
			return ErrInvalidOutcome
		}
	case domain.StatusFailed:
		if o.ErrorMessage == nil {
			return ErrInvalidOutcome
		}
	case domain.StatusSending:
		return ErrInvalidOutcome
	default:
		return ErrInvalidOutcome
	}
	return nil
}
