// File: internal/services/ai/interface.go
package ai

import (
	"context"

	"github.com/iyunix/go-muro/internal/domain"
)

// Request is one generation call: instructions, prior turns and the new utterance.
type Request struct {
	System  string
	History []domain.ChatMessage
	Prompt  string
}

// CompletionProvider handles chat completions.
type CompletionProvider interface {
	GetCompletion(ctx context.Context, req Request) (string, error)
	// StreamCompletion calls onDelta for every non-empty delta; an error from
	// onDelta aborts the stream and is returned as is.
	StreamCompletion(ctx context.Context, req Request, onDelta func(string) error) error
}
