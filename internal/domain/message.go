// File: internal/domain/message.go
package domain

import (
	"fmt"
	"time"
)

// Role identifies who authored a message. Only two roles produce visible rows.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown message role %q", s)
	}
	return r, nil
}

// Status is the lifecycle state of a message row.
//
//	assistant: sending -> sent | failed
//	           failed  -> sending (explicit retry reuses the row)
//	user:      sent (never changes)
type Status string

const (
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSending, StatusSent, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is expected from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusSent, StatusFailed:
		return true
	case StatusSending:
		return false
	default:
		return false
	}
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown message status %q", s)
	}
	return st, nil
}

// Message represents a single message within a conversation.
type Message struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	ConversationID string    `json:"conversation_id" gorm:"not null;index:idx_messages_conversation;size:36"`
	Role           Role      `json:"role" gorm:"not null;size:16"`
	Content        string    `json:"content" gorm:"type:text;not null;default:''"`
	Status         Status    `json:"status" gorm:"not null;size:16;default:'sent'"`
	ErrorMessage   *string   `json:"error_message"`
	ErrorDetail    *string   `json:"-"` // raw upstream error; diagnostics only
	CreatedAt      time.Time `json:"created_at" gorm:"index:idx_messages_conversation"`
}

// ChatMessage is the role-tagged view of a message used as generation context.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History converts stored messages into generation context.
func History(messages []Message) []ChatMessage {
	history := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return history
}
