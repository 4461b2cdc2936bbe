// File: internal/services/chat/interface.go
package chat

import (
	"context"

	"github.com/iyunix/go-muro/internal/services/ai"
)

// Generator produces assistant text for a request.
type Generator interface {
	GetCompletion(ctx context.Context, req ai.Request) (string, error)
	StreamCompletion(ctx context.Context, req ai.Request, onDelta func(string) error) error
}

// TurnStarter is what the HTTP layer needs from the orchestrator.
type TurnStarter interface {
	BeginTurn(ctx context.Context, conversationID, utterance string) (*Turn, error)
	RetryTurn(ctx context.Context, conversationID string) (*Turn, error)
}
