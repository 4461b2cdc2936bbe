// File: internal/domain/chat.go
package domain

import "time"

// Conversation represents a single conversation thread.
type Conversation struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Title     *string   `json:"title"` // nil until the user names the conversation
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`

	Messages []Message `json:"-" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// DisplayTitle returns the title or a placeholder for untitled conversations.
func (c *Conversation) DisplayTitle() string {
	if c.Title == nil || *c.Title == "" {
		return "Untitled conversation"
	}
	return *c.Title
}
