package audit

import (
	"context"
	"sync"
)

// InMemoryRepository implements Repository using in-memory storage. Intended
// for development and tests; events do not survive a restart.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events []Event
}

// NewInMemoryRepository creates a new in-memory audit repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Append stores one event
func (r *InMemoryRepository) Append(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// FindByEmail returns events for one email, newest first
func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Event
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Email == email {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}
