// File: internal/services/chat/turn.go
package chat

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/iyunix/go-muro/internal/repository/message"
	"github.com/iyunix/go-muro/internal/services/ai"
)

const saveFailedMessage = "Failed to save the response. Please try again."

// Turn is one generation attempt for an assistant row. It settles exactly
// once: by completing, by failing, or by being aborted.
type Turn struct {
	service        *StreamingService
	conversationID string
	assistantID    string
	retry          bool
	request        ai.Request

	mu      sync.Mutex
	settled bool
	partial strings.Builder
	cancel  context.CancelFunc

	releaseOnce sync.Once
}

func (t *Turn) ConversationID() string { return t.conversationID }

// MessageID is the id of the assistant row this turn writes.
func (t *Turn) MessageID() string { return t.assistantID }

func (t *Turn) IsRetry() bool { return t.retry }

// Run generates the reply, emitting chunk events and then exactly one of done
// or error. When ctx is cancelled first the row is failed and nothing more is
// emitted.
func (t *Turn) Run(ctx context.Context, sink EventSink) error {
	defer t.release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		return ErrTurnSettled
	}
	t.cancel = cancel
	t.mu.Unlock()

	frags := make(chan string)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(frags)
		return t.produce(gctx, frags)
	})

	var sinkErr error
	for frag := range frags {
		if ctx.Err() != nil || !t.appendPartial(frag) {
			cancel()
			break
		}
		if err := sink.Send(TurnEvent{Type: EventChunk, Content: frag}); err != nil {
			sinkErr = err
			cancel()
			break
		}
	}
	genErr := g.Wait()

	logger := t.service.logger
	switch {
	case sinkErr != nil:
		logger.Warn("event sink failed", "conversation_id", t.conversationID, "error", sinkErr)
		t.Abort(DisconnectReason)
		return sinkErr

	case ctx.Err() != nil:
		t.Abort(DisconnectReason)
		logger.Info("turn cancelled", "conversation_id", t.conversationID, "message_id", t.assistantID)
		return ctx.Err()

	case genErr != nil:
		userMsg := ai.UserMessage(genErr)
		logger.Error("generation failed",
			"conversation_id", t.conversationID, "message_id", t.assistantID, "error", genErr)
		won, err := t.settle(func(partial string) message.Outcome {
			return message.Failed(partial, userMsg, genErr.Error())
		})
		if won || err != nil {
			_ = sink.Send(TurnEvent{Type: EventError, Error: userMsg})
		}
		return &ChatError{
			Type:           ErrTypeGeneration,
			Operation:      "generate",
			Message:        userMsg,
			ConversationID: t.conversationID,
			Cause:          genErr,
		}

	default:
		var content string
		won, err := t.settle(func(partial string) message.Outcome {
			content = partial
			return message.Sent(partial)
		})
		if err != nil {
			_ = sink.Send(TurnEvent{Type: EventError, Error: saveFailedMessage})
			return NewStorageError("settle", t.conversationID, err)
		}
		if !won {
			return ErrTurnSettled
		}
		logger.Info("turn completed",
			"conversation_id", t.conversationID, "message_id", t.assistantID, "length", len(content))
		return sink.Send(TurnEvent{Type: EventDone, MessageID: t.assistantID, Content: content})
	}
}

// Abort settles a turn that has not settled yet as failed with reason and
// stops generation. It emits nothing and is safe to call any number of times
// from any goroutine.
func (t *Turn) Abort(reason string) {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()

	if won, _ := t.settle(func(partial string) message.Outcome {
		return message.Failed(partial, reason, "")
	}); won {
		t.service.logger.Info("turn aborted",
			"conversation_id", t.conversationID, "message_id", t.assistantID, "reason", reason)
	}

	if cancel != nil {
		cancel()
	}
	t.release()
}

func (t *Turn) produce(ctx context.Context, out chan<- string) error {
	s := t.service
	switch s.config.Mode {
	case ModeStream:
		return produceStream(ctx, s.generator, t.request, out)
	case ModeChunked:
		return produceChunked(ctx, s.generator, t.request, s.config.StreamDelay, out)
	default:
		return produceChunked(ctx, s.generator, t.request, s.config.StreamDelay, out)
	}
}

// appendPartial records a fragment about to be emitted. It reports false once
// the turn has settled.
func (t *Turn) appendPartial(frag string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.settled {
		return false
	}
	t.partial.WriteString(frag)
	return true
}

// settle claims the turn and writes the outcome built from the accumulated
// text. It reports whether this call moved the row out of sending.
func (t *Turn) settle(build func(partial string) message.Outcome) (bool, error) {
	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		return false, nil
	}
	t.settled = true
	outcome := build(t.partial.String())
	t.mu.Unlock()

	// the request context may already be gone
	ctx, cancel := context.WithTimeout(context.Background(), dbSaveTimeout)
	defer cancel()

	won, err := t.service.messageRepo.Settle(ctx, t.assistantID, outcome)
	// the conversation is free before the terminal event reaches the client
	t.release()
	if err != nil {
		t.service.logger.Error("failed to settle turn",
			"conversation_id", t.conversationID,
			"message_id", t.assistantID,
			"status", outcome.Status,
			"error", err)
		return false, err
	}
	return won, nil
}

func (t *Turn) release() {
	t.releaseOnce.Do(func() {
		t.service.registry.release(t.conversationID)
	})
}

// IsSettled reports whether the turn reached a terminal state.
func (t *Turn) IsSettled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settled
}
