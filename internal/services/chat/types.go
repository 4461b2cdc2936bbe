// File: internal/services/chat/types.go
package chat

// Logger defines the logging interface used across chat services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

type EventType string

const (
	EventChunk EventType = "chunk"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// TurnEvent is one event of a turn as seen by the client.
type TurnEvent struct {
	Type      EventType
	Content   string // chunk text, or the final content on done
	MessageID string // done only
	Error     string // error only
}

type chunkPayload struct {
	Content string `json:"content"`
}

type donePayload struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Payload returns the JSON body carried on the wire for the event.
func (e TurnEvent) Payload() interface{} {
	switch e.Type {
	case EventDone:
		return donePayload{MessageID: e.MessageID, Content: e.Content}
	case EventError:
		return errorPayload{Error: e.Error}
	case EventChunk:
		return chunkPayload{Content: e.Content}
	default:
		return chunkPayload{Content: e.Content}
	}
}

// Terminal reports whether the event ends the turn.
func (e TurnEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// EventSink receives the events of a running turn.
type EventSink interface {
	Send(event TurnEvent) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(TurnEvent) error

func (f EventSinkFunc) Send(event TurnEvent) error { return f(event) }
