// Package sse writes server-sent events to a single client.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const DefaultKeepAliveInterval = 10 * time.Second

var ErrStreamingUnsupported = errors.New("sse: response writer cannot flush")

// Terminal event names. The stream closes itself after sending either.
const (
	EventDone  = "done"
	EventError = "error"
)

type Option func(*Stream)

// WithKeepAliveInterval overrides the keep-alive period. Zero disables it.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(s *Stream) { s.keepAlive = d }
}

// Stream is one open event stream. All writes are serialized.
type Stream struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	keepAlive    time.Duration
	onDisconnect func()

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// Open writes the stream headers and the initial comment, then starts the
// keep-alive ticker and the disconnect watcher. onDisconnect runs at most
// once, when the client goes away before the stream was closed.
func Open(w http.ResponseWriter, r *http.Request, onDisconnect func(), opts ...Option) (*Stream, error) {
	if !canFlush(w) {
		return nil, ErrStreamingUnsupported
	}

	s := &Stream{
		w:            w,
		rc:           http.NewResponseController(w),
		keepAlive:    DefaultKeepAliveInterval,
		onDisconnect: onDisconnect,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	s.mu.Lock()
	err := s.writeLocked(": connected\n\n")
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.watch(r)
	if s.keepAlive > 0 {
		s.wg.Add(1)
		go s.pinger()
	}
	return s, nil
}

// SendEvent frames payload as JSON under the given event name. Sending done
// or error closes the stream. Writes after close are dropped.
func (s *Stream) SendEvent(name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sse: marshal %s payload: %w", name, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	err = s.writeLocked(fmt.Sprintf("event: %s\ndata: %s\n\n", name, data))
	terminal := name == EventDone || name == EventError
	if terminal {
		s.closeLocked()
	}
	s.mu.Unlock()

	if terminal {
		s.wg.Wait()
	}
	return err
}

// KeepAlive writes a single keep-alive comment.
func (s *Stream) KeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.writeLocked(": keep-alive\n\n")
}

// Close stops the background goroutines. It does not invoke onDisconnect.
func (s *Stream) Close() {
	s.mu.Lock()
	s.closeLocked()
	s.mu.Unlock()
	s.wg.Wait()
}

// Closed reports whether the stream has been closed.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Stream) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

func (s *Stream) writeLocked(frame string) error {
	if _, err := s.w.Write([]byte(frame)); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *Stream) watch(r *http.Request) {
	defer s.wg.Done()
	select {
	case <-s.done:
	case <-r.Context().Done():
		s.mu.Lock()
		wasClosed := s.closed
		s.closeLocked()
		s.mu.Unlock()
		if !wasClosed && s.onDisconnect != nil {
			s.onDisconnect()
		}
	}
}

func (s *Stream) pinger() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			_ = s.KeepAlive()
		}
	}
}

// canFlush looks through Unwrap chains for a flusher.
func canFlush(w http.ResponseWriter) bool {
	for {
		switch t := w.(type) {
		case http.Flusher:
			return true
		case interface{ Unwrap() http.ResponseWriter }:
			w = t.Unwrap()
		default:
			return false
		}
	}
}
