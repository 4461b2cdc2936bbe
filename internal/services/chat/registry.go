// File: internal/services/chat/registry.go
package chat

import "sync"

// turnRegistry tracks conversations with a turn in flight in this process.
type turnRegistry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newTurnRegistry() *turnRegistry {
	return &turnRegistry{active: make(map[string]struct{})}
}

func (r *turnRegistry) acquire(conversationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.active[conversationID]; busy {
		return false
	}
	r.active[conversationID] = struct{}{}
	return true
}

func (r *turnRegistry) release(conversationID string) {
	r.mu.Lock()
	delete(r.active, conversationID)
	r.mu.Unlock()
}

func (r *turnRegistry) busy(conversationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[conversationID]
	return ok
}
