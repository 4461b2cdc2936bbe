package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(ctx context.Context) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/conversations/c/messages", nil).WithContext(ctx)
}

func TestStreamFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := Open(rec, newRequest(context.Background()), nil, WithKeepAliveInterval(0))
	require.NoError(t, err)

	require.NoError(t, s.SendEvent("chunk", map[string]string{"content": "Sure"}))
	require.NoError(t, s.SendEvent(EventDone, map[string]string{"messageId": "m1", "content": "Sure"}))
	assert.True(t, s.Closed())

	// dropped after close
	require.NoError(t, s.SendEvent("chunk", map[string]string{"content": "late"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	assert.Equal(t,
		": connected\n\n"+
			"event: chunk\ndata: {\"content\":\"Sure\"}\n\n"+
			"event: done\ndata: {\"content\":\"Sure\",\"messageId\":\"m1\"}\n\n",
		rec.Body.String())
}

func TestStreamChunkDoesNotClose(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := Open(rec, newRequest(context.Background()), nil, WithKeepAliveInterval(0))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendEvent("chunk", map[string]string{"content": "a"}))
	assert.False(t, s.Closed())
}

func TestStreamErrorCloses(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := Open(rec, newRequest(context.Background()), nil, WithKeepAliveInterval(0))
	require.NoError(t, err)

	require.NoError(t, s.SendEvent(EventError, map[string]string{"error": "AI service is busy. Please try again in a moment."}))
	assert.True(t, s.Closed())
	assert.Contains(t, rec.Body.String(), "event: error\n")
}

func TestStreamKeepAlive(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := Open(rec, newRequest(context.Background()), nil, WithKeepAliveInterval(5*time.Millisecond))
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	s.Close()

	assert.True(t, strings.HasPrefix(rec.Body.String(), ": connected\n\n"))
	assert.Contains(t, rec.Body.String(), ": keep-alive\n\n")
}

func TestStreamKeepAliveManualAfterClose(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := Open(rec, newRequest(context.Background()), nil, WithKeepAliveInterval(0))
	require.NoError(t, err)

	require.NoError(t, s.KeepAlive())
	s.Close()
	require.NoError(t, s.KeepAlive())
	assert.Equal(t, 1, strings.Count(rec.Body.String(), ": keep-alive"))
}

func TestDisconnectInvokesCallbackOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	s, err := Open(httptest.NewRecorder(), newRequest(ctx), func() { atomic.AddInt32(&calls, 1) }, WithKeepAliveInterval(0))
	require.NoError(t, err)

	cancel()
	require.Eventually(t, s.Closed, time.Second, 5*time.Millisecond)
	s.Close()
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestNoDisconnectCallbackAfterNormalClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	s, err := Open(httptest.NewRecorder(), newRequest(ctx), func() { atomic.AddInt32(&calls, 1) }, WithKeepAliveInterval(0))
	require.NoError(t, err)

	require.NoError(t, s.SendEvent(EventDone, map[string]string{}))
	cancel()
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

type plainWriter struct{ header http.Header }

func (p *plainWriter) Header() http.Header       { return p.header }
func (p *plainWriter) Write(b []byte) (int, error) { return len(b), nil }
func (p *plainWriter) WriteHeader(int)            {}

func TestOpenRequiresFlusher(t *testing.T) {
	_, err := Open(&plainWriter{header: http.Header{}}, newRequest(context.Background()), nil)
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}

type wrappedWriter struct{ http.ResponseWriter }

func (w wrappedWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func TestOpenFindsFlusherThroughUnwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := Open(wrappedWriter{rec}, newRequest(context.Background()), nil, WithKeepAliveInterval(0))
	require.NoError(t, err)
	s.Close()
	assert.Equal(t, ": connected\n\n", rec.Body.String())
}

func TestStreamOverRealConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := Open(w, r, nil, WithKeepAliveInterval(0))
		require.NoError(t, err)
		_ = s.SendEvent("chunk", map[string]string{"content": "hi"})
		_ = s.SendEvent(EventDone, map[string]string{"messageId": "m", "content": "hi"})
	}))
	defer server.Close()

	resp, err := http.Post(server.URL, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	assert.Equal(t, []string{
		": connected", "",
		"event: chunk", `data: {"content":"hi"}`, "",
		"event: done", `data: {"content":"hi","messageId":"m"}`, "",
	}, lines)
}
