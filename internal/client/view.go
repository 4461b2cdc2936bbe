package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/iyunix/go-muro/internal/domain"
)

var (
	ErrTurnActive   = errors.New("a reply is still streaming")
	ErrEmptyMessage = errors.New("message cannot be empty")
)

// ConnectionLostMessage is recorded when a stream ends without done or error.
const ConnectionLostMessage = "Connection lost before the response completed."

type State int

const (
	StateIdle State = iota
	StateSending
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Transport is the part of Client the view needs.
type Transport interface {
	Messages(ctx context.Context, conversationID string) ([]domain.Message, error)
	SendMessage(ctx context.Context, conversationID, content string) (*Stream, error)
	Retry(ctx context.Context, conversationID string) (*Stream, error)
}

// Result is how a turn ended, from the client's point of view.
type Result struct {
	Status    domain.Status
	MessageID string
	Content   string
	Error     string
}

// ConversationView holds the visible state of one conversation: committed
// messages plus the text of the reply currently streaming.
type ConversationView struct {
	transport      Transport
	conversationID string

	mu       sync.Mutex
	messages []domain.Message
	pending  strings.Builder
	state    State
	last     *Result
}

func NewConversationView(transport Transport, conversationID string) *ConversationView {
	return &ConversationView{transport: transport, conversationID: conversationID}
}

// Load replaces the committed messages with the server's history.
func (v *ConversationView) Load(ctx context.Context) error {
	msgs, err := v.transport.Messages(ctx, v.conversationID)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateSending {
		return ErrTurnActive
	}
	v.messages = msgs
	return nil
}

// Send posts content and consumes the reply stream until it settles. onChunk,
// when set, sees every fragment as it arrives.
func (v *ConversationView) Send(ctx context.Context, content string, onChunk func(string)) (*Result, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if err := v.begin(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.messages = append(v.messages, domain.Message{
		ConversationID: v.conversationID,
		Role:           domain.RoleUser,
		Content:        content,
		Status:         domain.StatusSent,
	})
	v.mu.Unlock()

	stream, err := v.transport.SendMessage(ctx, v.conversationID, content)
	if err != nil {
		v.mu.Lock()
		v.messages = v.messages[:len(v.messages)-1]
		v.state = StateIdle
		v.mu.Unlock()
		return nil, err
	}
	defer stream.Close()
	return v.consume(stream.Decoder, onChunk), nil
}

// Retry drops the trailing failed reply, which the server reuses, and streams
// its regeneration.
func (v *ConversationView) Retry(ctx context.Context, onChunk func(string)) (*Result, error) {
	if err := v.begin(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	var removed *domain.Message
	if n := len(v.messages); n > 0 {
		last := v.messages[n-1]
		if last.Role == domain.RoleAssistant && last.Status == domain.StatusFailed {
			removed = &last
			v.messages = v.messages[:n-1]
		}
	}
	v.mu.Unlock()

	stream, err := v.transport.Retry(ctx, v.conversationID)
	if err != nil {
		v.mu.Lock()
		if removed != nil {
			v.messages = append(v.messages, *removed)
		}
		v.state = StateIdle
		v.mu.Unlock()
		return nil, err
	}
	defer stream.Close()
	return v.consume(stream.Decoder, onChunk), nil
}

func (v *ConversationView) begin() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateSending {
		return ErrTurnActive
	}
	v.state = StateSending
	v.pending.Reset()
	v.last = nil
	return nil
}

func (v *ConversationView) consume(dec *Decoder, onChunk func(string)) *Result {
	for {
		ev, err := dec.Next()
		if err != nil {
			// io.EOF or a broken connection: no terminal event arrived
			return v.settleFailed(ConnectionLostMessage)
		}

		switch e := ev.(type) {
		case ChunkEvent:
			v.mu.Lock()
			v.pending.WriteString(e.Text)
			v.mu.Unlock()
			if onChunk != nil {
				onChunk(e.Text)
			}
		case DoneEvent:
			return v.settle(domain.Message{
				ID:             e.MessageID,
				ConversationID: v.conversationID,
				Role:           domain.RoleAssistant,
				Content:        e.Content,
				Status:         domain.StatusSent,
			})
		case ErrorEvent:
			return v.settleFailed(e.Message)
		}
	}
}

func (v *ConversationView) settleFailed(reason string) *Result {
	v.mu.Lock()
	partial := v.pending.String()
	v.mu.Unlock()
	return v.settle(domain.Message{
		ConversationID: v.conversationID,
		Role:           domain.RoleAssistant,
		Content:        partial,
		Status:         domain.StatusFailed,
		ErrorMessage:   &reason,
	})
}

func (v *ConversationView) settle(m domain.Message) *Result {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.messages = append(v.messages, m)
	v.pending.Reset()
	v.state = StateSettled

	r := &Result{Status: m.Status, MessageID: m.ID, Content: m.Content}
	if m.ErrorMessage != nil {
		r.Error = *m.ErrorMessage
	}
	v.last = r
	return r
}

// Messages returns a copy of the committed messages.
func (v *ConversationView) Messages() []domain.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]domain.Message, len(v.messages))
	copy(out, v.messages)
	return out
}

// Pending is the text received so far for the streaming reply.
func (v *ConversationView) Pending() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pending.String()
}

func (v *ConversationView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// InputEnabled reports whether a new message may be sent.
func (v *ConversationView) InputEnabled() bool {
	return v.State() != StateSending
}

// LastResult is the outcome of the most recent turn, nil while one is running.
func (v *ConversationView) LastResult() *Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}
