// Package events provides the in-process domain event bus.
//
// The task service publishes lifecycle events here; the HTTP layer forwards
// them to SSE subscribers and serves recent history. Events carry record IDs
// and changed-field names rather than full task payloads.
package events

import (
	"context"
	"time"
)

// Type identifies the kind of domain event.
type Type string

const (
	TaskCreated   Type = "task.created"
	TaskUpdated   Type = "task.updated"
	TaskDeleted   Type = "task.deleted"
	TaskStarted   Type = "task.started"
	TaskCompleted Type = "task.completed"
	TaskCancelled Type = "task.cancelled"
	TaskArchived  Type = "task.archived"
	TaskAssigned  Type = "task.assigned"

	// TypeAll subscribes a handler to every event type.
	TypeAll Type = "*"
)

// Event records a single domain state change.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	TaskID    string    `json:"task_id"`
	ProjectID string    `json:"project_id,omitempty"`
	Actor     string    `json:"actor,omitempty"`   // user responsible for the change, when known
	Changed   []string  `json:"changed,omitempty"` // field names modified by an update
	Timestamp time.Time `json:"timestamp"`
}

// Handler processes published events.
type Handler func(ctx context.Context, ev *Event) error

// Bus distributes domain events to subscribers and retains recent history.
type Bus interface {
	// Publish delivers the event to subscribers of its type and to
	// wildcard subscribers. Handler errors are aggregated, not retried.
	Publish(ctx context.Context, ev *Event) error

	// Subscribe registers a handler for events of type t (TypeAll for
	// every type). The returned function unsubscribes the handler.
	Subscribe(t Type, handler Handler) (unsubscribe func())

	// History returns up to limit recent events, oldest first. A non-empty
	// taskID restricts the result to that task.
	History(taskID string, limit int) ([]*Event, error)
}
