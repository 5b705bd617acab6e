package events

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryBus is a thread-safe in-process event bus.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[Type][]handlerEntry
	history  []*Event
	maxHist  int
	counter  int
}

type handlerEntry struct {
	id      int
	handler Handler
}

// NewInMemoryBus creates an InMemoryBus with a 1000-event history cap.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[Type][]handlerEntry),
		maxHist:  1000,
	}
}

// Publish appends the event to history and invokes subscribers of its type
// plus wildcard subscribers.
func (b *InMemoryBus) Publish(ctx context.Context, ev *Event) error {
	b.mu.Lock()
	b.history = append(b.history, ev)
	if len(b.history) > b.maxHist {
		b.history = b.history[len(b.history)-b.maxHist:]
	}

	// Collect handlers to invoke outside the lock
	var targets []Handler
	for _, e := range b.handlers[ev.Type] {
		targets = append(targets, e.handler)
	}
	for _, e := range b.handlers[TypeAll] {
		targets = append(targets, e.handler)
	}
	b.mu.Unlock()

	var errs []error
	for _, h := range targets {
		if err := h(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("publish %s: %d handler error(s): %v", ev.Type, len(errs), errs[0])
	}
	return nil
}

// Subscribe registers a handler for events of type t.
// The returned function unsubscribes the handler.
func (b *InMemoryBus) Subscribe(t Type, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.counter++
	id := b.counter
	b.handlers[t] = append(b.handlers[t], handlerEntry{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.handlers[t]
		filtered := entries[:0]
		for _, e := range entries {
			if e.id != id {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) == 0 {
			delete(b.handlers, t)
		} else {
			b.handlers[t] = filtered
		}
	}
}

// History returns the most recent limit events, oldest first, optionally
// restricted to a single task.
func (b *InMemoryBus) History(taskID string, limit int) ([]*Event, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var result []*Event
	for i := len(b.history) - 1; i >= 0; i-- {
		ev := b.history[i]
		if taskID != "" && ev.TaskID != taskID {
			continue
		}
		result = append(result, ev)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	// Reverse to chronological order
	for l, r := 0, len(result)-1; l < r; l, r = l+1, r-1 {
		result[l], result[r] = result[r], result[l]
	}
	return result, nil
}
