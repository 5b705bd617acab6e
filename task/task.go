// Package task defines the task model, its lifecycle state machine, and
// persistence for xWin Dash work items.
package task

import "time"

// Status represents the lifecycle state of a task.
//
// Lifecycle state is a single enum; "archived" is a status like any other,
// and IsArchived is derived from it so the two can never disagree.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusArchived   Status = "archived"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusArchived:
		return true
	}
	return false
}

// Priority determines task urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Well-known task types. Type is free-form classification; these are the
// values the dashboard offers by default.
const (
	TypeTask        = "task"
	TypeBug         = "bug"
	TypeFeature     = "feature"
	TypeImprovement = "improvement"
)

// DefaultDueSoonDays is the due-soon window when none is configured.
const DefaultDueSoonDays = 3

// Task is a unit of work inside a project.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         Status     `json:"status"`
	Priority       Priority   `json:"priority"`
	Type           string     `json:"type"`
	ProjectID      string     `json:"project_id"`
	ParentTaskID   string     `json:"parent_task_id,omitempty"` // set when this is a subtask
	AssignedTo     string     `json:"assigned_to,omitempty"`    // user ID
	CreatedBy      string     `json:"created_by"`               // user ID
	Progress       float64    `json:"progress"`                 // 0..100
	EstimatedHours float64    `json:"estimated_hours,omitempty"`
	ActualHours    float64    `json:"actual_hours,omitempty"`
	SortOrder      int        `json:"sort_order"` // orders subtasks under a parent
	Version        int64      `json:"version"`    // optimistic-lock counter, bumped on every update
	DueDate        *time.Time `json:"due_date,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CanBeStarted reports whether Start would succeed.
func (t *Task) CanBeStarted() bool { return t.Status == StatusPending }

// CanBeCompleted reports whether Complete would succeed.
func (t *Task) CanBeCompleted() bool {
	return t.Status == StatusPending || t.Status == StatusInProgress
}

// CanBeCancelled reports whether Cancel would succeed.
func (t *Task) CanBeCancelled() bool {
	switch t.Status {
	case StatusCompleted, StatusCancelled, StatusArchived:
		return false
	}
	return true
}

// CanBeArchived reports whether Archive would succeed.
func (t *Task) CanBeArchived() bool {
	return t.Status == StatusCompleted || t.Status == StatusCancelled
}

// IsArchived reports whether the task has reached the archived state.
func (t *Task) IsArchived() bool { return t.Status == StatusArchived }

// IsSubtask reports whether the task belongs to a parent task.
func (t *Task) IsSubtask() bool { return t.ParentTaskID != "" }

// Start transitions a pending task to in_progress and records the start time.
func (t *Task) Start(now time.Time) error {
	if !t.CanBeStarted() {
		return &TransitionError{TaskID: t.ID, Op: "start", Status: t.Status}
	}
	t.Status = StatusInProgress
	t.StartedAt = &now
	return nil
}

// Complete transitions a pending or in-progress task to completed, forcing
// progress to 100 and recording the completion time.
func (t *Task) Complete(now time.Time) error {
	if !t.CanBeCompleted() {
		return &TransitionError{TaskID: t.ID, Op: "complete", Status: t.Status}
	}
	t.Status = StatusCompleted
	t.Progress = 100
	t.CompletedAt = &now
	return nil
}

// Cancel transitions any non-terminal task to cancelled.
func (t *Task) Cancel() error {
	if !t.CanBeCancelled() {
		return &TransitionError{TaskID: t.ID, Op: "cancel", Status: t.Status}
	}
	t.Status = StatusCancelled
	return nil
}

// Archive transitions a completed or cancelled task to archived.
func (t *Task) Archive() error {
	if !t.CanBeArchived() {
		return &TransitionError{TaskID: t.ID, Op: "archive", Status: t.Status}
	}
	t.Status = StatusArchived
	return nil
}

// SetProgress sets progress to a value in [0, 100]. Progress and status are
// independent: reaching 100 does not complete the task.
func (t *Task) SetProgress(v float64) error {
	if v < 0 || v > 100 {
		return ErrOutOfRange
	}
	t.Progress = v
	return nil
}

// AssignTo sets the assignee. Any task, terminal or not, may be reassigned.
func (t *Task) AssignTo(userID string) { t.AssignedTo = userID }

// Unassign clears the assignee.
func (t *Task) Unassign() { t.AssignedTo = "" }

// IsOverdue reports whether the task's due date has passed and the task is
// still open.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status == StatusCompleted || t.Status == StatusCancelled {
		return false
	}
	return t.DueDate.Before(now)
}

// IsDueSoon reports whether the task is open and due within the next days
// days, but not yet overdue.
func (t *Task) IsDueSoon(now time.Time, days int) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status == StatusCompleted || t.Status == StatusCancelled {
		return false
	}
	if !t.DueDate.After(now) {
		return false
	}
	return !t.DueDate.After(now.AddDate(0, 0, days))
}

// DaysUntilDue returns the number of whole days until the due date, 0 if the
// due date has passed, and -1 if the task has no due date.
func (t *Task) DaysUntilDue(now time.Time) int {
	if t.DueDate == nil {
		return -1
	}
	if t.DueDate.Before(now) {
		return 0
	}
	return int(t.DueDate.Sub(now).Hours() / 24)
}

// DurationDays returns the whole days between start and completion, or -1 if
// either timestamp is unset.
func (t *Task) DurationDays() int {
	if t.StartedAt == nil || t.CompletedAt == nil {
		return -1
	}
	return int(t.CompletedAt.Sub(*t.StartedAt).Hours() / 24)
}
