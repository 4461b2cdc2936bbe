// File: internal/handlers/conversation_handler.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-muro/internal/domain"
	"github.com/iyunix/go-muro/internal/services"
)

// MarkdownRenderer turns message content into HTML.
type MarkdownRenderer interface {
	HTML(source string) (string, error)
}

type ConversationHandler struct {
	service  *services.ConversationService
	renderer MarkdownRenderer
	logger   Logger
}

func NewConversationHandler(service *services.ConversationService, renderer MarkdownRenderer, logger Logger) *ConversationHandler {
	return &ConversationHandler{service: service, renderer: renderer, logger: logger}
}

// messageView is a stored message plus its optional rendered form.
type messageView struct {
	domain.Message
	ContentHTML *string `json:"content_html,omitempty"`
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list conversations failed", "error", err)
		writeError(w, "Failed to fetch conversations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title *string `json:"title"`
	}
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	title := ""
	if req.Title != nil {
		title = *req.Title
	}
	c, err := h.service.Create(r.Context(), title)
	if err != nil {
		h.logger.Error("create conversation failed", "error", err)
		writeError(w, "Failed to create conversation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeLookupError(w, err, "Failed to fetch conversation")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ConversationHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := h.service.Rename(r.Context(), mux.Vars(r)["id"], req.Title)
	if errors.Is(err, services.ErrTitleRequired) {
		writeError(w, "Title is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeLookupError(w, err, "Failed to update conversation")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeLookupError(w, err, "Failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Messages lists a conversation's messages. A missing conversation is reported
// as a server error here, unlike the other lookups.
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	msgs, err := h.service.Messages(r.Context(), id)
	if err != nil {
		h.logger.Error("list messages failed", "conversation_id", id, "error", err)
		writeError(w, "Failed to fetch messages", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") != "html" {
		writeJSON(w, http.StatusOK, msgs)
		return
	}

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		v := messageView{Message: m}
		if html, err := h.renderer.HTML(m.Content); err == nil {
			v.ContentHTML = &html
		} else {
			h.logger.Warn("render markdown failed", "message_id", m.ID, "error", err)
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ConversationHandler) writeLookupError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, services.ErrConversationNotFound) {
		writeError(w, "Conversation not found", http.StatusNotFound)
		return
	}
	h.logger.Error(fallback, "error", err)
	writeError(w, fallback, http.StatusInternalServerError)
}
