package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-muro/internal/domain"
)

func fakeAPI(t *testing.T, reply string, fail bool) *httptest.Server {
	t.Helper()
	title := "Bid Comparison Analysis"
	msgs := []domain.Message{}

	r := mux.NewRouter()
	r.HandleFunc("/conversations", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.Conversation{{ID: "c-1", Title: &title}})
	}).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(msgs)
	}).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": connected\n\n")
		fmt.Fprintf(w, "event: chunk\ndata: {\"content\":%q}\n\n", reply)
		if fail {
			fmt.Fprint(w, "event: error\ndata: {\"error\":\"AI service is busy. Please try again in a moment.\"}\n\n")
			return
		}
		fmt.Fprintf(w, "event: done\ndata: {\"messageId\":\"m-2\",\"content\":%q}\n\n", reply)
	}).Methods(http.MethodPost)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestListPrintsConversations(t *testing.T) {
	srv := fakeAPI(t, "", false)
	out, err := run(t, "list", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "c-1")
	assert.Contains(t, out, "Bid Comparison Analysis")
}

func TestSendPrintsStreamedReply(t *testing.T) {
	srv := fakeAPI(t, "Acme offers the best value.", false)
	out, err := run(t, "send", "--server", srv.URL, "c-1", "Compare", "the", "bids")
	require.NoError(t, err)
	assert.Equal(t, "Acme offers the best value.\n", out)
}

func TestSendReportsFailure(t *testing.T) {
	srv := fakeAPI(t, "partial", true)
	_, err := run(t, "send", "--server", srv.URL, "c-1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AI service is busy")
	assert.Contains(t, err.Error(), "muro retry c-1")
}

func TestServerFromEnvironment(t *testing.T) {
	srv := fakeAPI(t, "", false)
	t.Setenv("MURO_SERVER", srv.URL)
	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "c-1")
}
