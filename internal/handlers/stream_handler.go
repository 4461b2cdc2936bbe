// File: internal/handlers/stream_handler.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-muro/internal/services/chat"
	"github.com/iyunix/go-muro/internal/sse"
)

// StreamHandler runs turns and streams their events to the client.
type StreamHandler struct {
	turns   chat.TurnStarter
	logger  Logger
	sseOpts []sse.Option
}

func NewStreamHandler(turns chat.TurnStarter, logger Logger, opts ...sse.Option) *StreamHandler {
	return &StreamHandler{turns: turns, logger: logger, sseOpts: opts}
}

// SendMessage handles POST /conversations/{id}/messages.
func (h *StreamHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	turn, err := h.turns.BeginTurn(r.Context(), mux.Vars(r)["id"], req.Content)
	if err != nil {
		h.writeTurnError(w, err)
		return
	}
	h.stream(w, r, turn)
}

// Retry handles POST /conversations/{id}/retry.
func (h *StreamHandler) Retry(w http.ResponseWriter, r *http.Request) {
	turn, err := h.turns.RetryTurn(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeTurnError(w, err)
		return
	}
	h.stream(w, r, turn)
}

func (h *StreamHandler) stream(w http.ResponseWriter, r *http.Request, turn *chat.Turn) {
	stream, err := sse.Open(w, r, func() { turn.Abort(chat.DisconnectReason) }, h.sseOpts...)
	if err != nil {
		turn.Abort(chat.DisconnectReason)
		h.logger.Error("open event stream failed", "conversation_id", turn.ConversationID(), "error", err)
		if errors.Is(err, sse.ErrStreamingUnsupported) {
			writeError(w, "Streaming unsupported", http.StatusInternalServerError)
		}
		return
	}
	defer stream.Close()

	sink := chat.EventSinkFunc(func(e chat.TurnEvent) error {
		return stream.SendEvent(string(e.Type), e.Payload())
	})

	err = turn.Run(r.Context(), sink)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		h.logger.Info("client disconnected", "conversation_id", turn.ConversationID(), "message_id", turn.MessageID())
	default:
		h.logger.Warn("turn ended with error", "conversation_id", turn.ConversationID(), "message_id", turn.MessageID(), "error", err)
	}
}

func (h *StreamHandler) writeTurnError(w http.ResponseWriter, err error) {
	var ce *chat.ChatError
	if errors.As(err, &ce) {
		switch ce.Type {
		case chat.ErrTypeValidation:
			writeError(w, "Message content is required", http.StatusBadRequest)
			return
		case chat.ErrTypeNotFound:
			writeError(w, "Conversation not found", http.StatusNotFound)
			return
		case chat.ErrTypeConflict:
			writeError(w, ce.Message, http.StatusConflict)
			return
		case chat.ErrTypeRetry:
			writeError(w, ce.Message, http.StatusInternalServerError)
			return
		}
	}
	h.logger.Error("start turn failed", "error", err)
	writeError(w, "Failed to start response", http.StatusInternalServerError)
}
