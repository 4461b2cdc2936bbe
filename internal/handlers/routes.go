// File: internal/handlers/routes.go
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the API on r. streamMiddleware wraps only the two
// endpoints that start turns.
func RegisterRoutes(r *mux.Router, conv *ConversationHandler, stream *StreamHandler, streamMiddleware ...mux.MiddlewareFunc) {
	wrap := func(h http.HandlerFunc) http.Handler {
		var out http.Handler = h
		for i := len(streamMiddleware) - 1; i >= 0; i-- {
			out = streamMiddleware[i](out)
		}
		return out
	}

	r.HandleFunc("/health", Health).Methods(http.MethodGet)

	r.HandleFunc("/conversations", conv.List).Methods(http.MethodGet)
	r.HandleFunc("/conversations", conv.Create).Methods(http.MethodPost)
	r.HandleFunc("/conversations/{id}", conv.Get).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}", conv.Rename).Methods(http.MethodPatch)
	r.HandleFunc("/conversations/{id}", conv.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/conversations/{id}/messages", conv.Messages).Methods(http.MethodGet)

	r.Handle("/conversations/{id}/messages", wrap(stream.SendMessage)).Methods(http.MethodPost)
	r.Handle("/conversations/{id}/retry", wrap(stream.Retry)).Methods(http.MethodPost)
}
