package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/xwindash/taskhub/events"
)

// ProjectDirectory answers whether a project exists. Satisfied by
// project.SQLiteStore.
type ProjectDirectory interface {
	Exists(id string) (bool, error)
}

// Service owns the task lifecycle: it enforces the state machine, keeps
// derived fields consistent, and emits a domain event for every mutation.
//
// The guarded methods (Start, Complete, Cancel, Archive) are the
// authoritative path for status changes. Update and the bulk operations set
// fields directly, bypassing the guards; they exist as administrative
// escape hatches and callers own the consequences.
type Service struct {
	store    Store
	projects ProjectDirectory
	bus      events.Bus
	logger   *slog.Logger

	now         func() time.Time
	dueSoonDays int
}

// NewService wires a Service. A nil logger falls back to slog.Default.
func NewService(store Store, projects ProjectDirectory, bus events.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       store,
		projects:    projects,
		bus:         bus,
		logger:      logger,
		now:         time.Now,
		dueSoonDays: DefaultDueSoonDays,
	}
}

// SetClock overrides the service clock. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetDueSoonDays overrides the default due-soon window.
func (s *Service) SetDueSoonDays(days int) {
	if days > 0 {
		s.dueSoonDays = days
	}
}

// Create validates and persists a new task. Zero-valued enum fields receive
// defaults (pending / medium / task). Emits TaskCreated.
func (s *Service) Create(ctx context.Context, t *Task) (*Task, error) {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Type == "" {
		t.Type = TypeTask
	}
	if err := s.validate(t); err != nil {
		return nil, err
	}

	ok, err := s.projects.Exists(t.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("check project %s: %w", t.ProjectID, err)
	}
	if !ok {
		return nil, &ValidationError{Field: "project_id", Msg: fmt.Sprintf("project %s does not exist", t.ProjectID)}
	}

	id, err := s.store.Create(t)
	if err != nil {
		s.logger.Error("create task", slog.String("project_id", t.ProjectID), slog.Any("err", err))
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.logger.Info("task created",
		slog.String("task_id", id),
		slog.String("project_id", t.ProjectID),
		slog.String("created_by", t.CreatedBy),
	)
	s.publish(ctx, events.TaskCreated, t, t.CreatedBy, nil)
	return t, nil
}

// Update persists a modified task and returns the refreshed record. The
// caller merges the partial change onto a copy fetched via Get; the stored
// version must match or the write fails with ErrStaleWrite.
//
// Status set through this path skips the transition guards.
func (s *Service) Update(ctx context.Context, t *Task) (*Task, error) {
	before, err := s.store.Get(t.ID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(t); err != nil {
		return nil, err
	}

	changed := diffFields(before, t)
	if err := s.store.Update(t); err != nil {
		s.logger.Error("update task", slog.String("task_id", t.ID), slog.Any("err", err))
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.logger.Info("task updated",
		slog.String("task_id", t.ID),
		slog.Any("changed", changed),
	)
	s.publish(ctx, events.TaskUpdated, t, "", changed)
	return s.store.Get(t.ID)
}

// Delete removes a task. Irreversible. Emits TaskDeleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	t, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(id); err != nil {
		s.logger.Error("delete task", slog.String("task_id", id), slog.Any("err", err))
		return fmt.Errorf("delete task: %w", err)
	}
	s.logger.Info("task deleted",
		slog.String("task_id", id),
		slog.String("project_id", t.ProjectID),
	)
	s.publish(ctx, events.TaskDeleted, t, "", nil)
	return nil
}

// Get retrieves a task by ID.
func (s *Service) Get(id string) (*Task, error) { return s.store.Get(id) }

// Start transitions a pending task to in_progress.
func (s *Service) Start(ctx context.Context, id string) (*Task, error) {
	return s.transition(ctx, id, events.TaskStarted, func(t *Task) error {
		return t.Start(s.now().UTC())
	})
}

// Complete transitions a pending or in-progress task to completed.
func (s *Service) Complete(ctx context.Context, id string) (*Task, error) {
	return s.transition(ctx, id, events.TaskCompleted, func(t *Task) error {
		return t.Complete(s.now().UTC())
	})
}

// Cancel transitions a non-terminal task to cancelled.
func (s *Service) Cancel(ctx context.Context, id string) (*Task, error) {
	return s.transition(ctx, id, events.TaskCancelled, (*Task).Cancel)
}

// Archive transitions a completed or cancelled task to archived.
func (s *Service) Archive(ctx context.Context, id string) (*Task, error) {
	return s.transition(ctx, id, events.TaskArchived, (*Task).Archive)
}

// transition applies a guarded state change and persists it. Guard failures
// are returned before the store is touched.
func (s *Service) transition(ctx context.Context, id string, evType events.Type, apply func(*Task) error) (*Task, error) {
	t, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	prev := t.Status
	if err := apply(t); err != nil {
		s.logger.Error("task transition rejected",
			slog.String("task_id", id),
			slog.String("status", string(prev)),
			slog.Any("err", err),
		)
		return nil, err
	}
	if err := s.store.Update(t); err != nil {
		s.logger.Error("task transition", slog.String("task_id", id), slog.Any("err", err))
		return nil, fmt.Errorf("transition task: %w", err)
	}
	s.logger.Info("task transition",
		slog.String("task_id", id),
		slog.String("from", string(prev)),
		slog.String("to", string(t.Status)),
	)
	s.publish(ctx, evType, t, "", []string{"status"})
	return t, nil
}

// UpdateProgress sets progress to a value in [0, 100] without touching
// status.
func (s *Service) UpdateProgress(ctx context.Context, id string, progress float64) (*Task, error) {
	t, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := t.SetProgress(progress); err != nil {
		return nil, err
	}
	if err := s.store.Update(t); err != nil {
		s.logger.Error("update progress", slog.String("task_id", id), slog.Any("err", err))
		return nil, fmt.Errorf("update progress: %w", err)
	}
	s.logger.Info("task progress updated",
		slog.String("task_id", id),
		slog.Float64("progress", progress),
		slog.String("status", string(t.Status)),
	)
	s.publish(ctx, events.TaskUpdated, t, "", []string{"progress"})
	return t, nil
}

// Assign sets the assignee. No status precondition: terminal tasks may be
// reassigned.
func (s *Service) Assign(ctx context.Context, id, userID string) (*Task, error) {
	t, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	t.AssignTo(userID)
	if err := s.store.Update(t); err != nil {
		s.logger.Error("assign task", slog.String("task_id", id), slog.Any("err", err))
		return nil, fmt.Errorf("assign task: %w", err)
	}
	s.logger.Info("task assigned",
		slog.String("task_id", id),
		slog.String("assigned_to", userID),
	)
	s.publish(ctx, events.TaskAssigned, t, "", []string{"assigned_to"})
	return t, nil
}

// Unassign clears the assignee.
func (s *Service) Unassign(ctx context.Context, id string) (*Task, error) {
	t, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	t.Unassign()
	if err := s.store.Update(t); err != nil {
		s.logger.Error("unassign task", slog.String("task_id", id), slog.Any("err", err))
		return nil, fmt.Errorf("unassign task: %w", err)
	}
	s.logger.Info("task unassigned", slog.String("task_id", id))
	s.publish(ctx, events.TaskAssigned, t, "", []string{"assigned_to"})
	return t, nil
}

// CreateSubtask creates a task under parentID. ProjectID and ParentTaskID
// are forced from the parent, overriding whatever the caller supplied.
func (s *Service) CreateSubtask(ctx context.Context, parentID string, t *Task) (*Task, error) {
	parent, err := s.store.Get(parentID)
	if err != nil {
		return nil, err
	}
	t.ParentTaskID = parent.ID
	t.ProjectID = parent.ProjectID
	sub, err := s.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subtask created",
		slog.String("task_id", sub.ID),
		slog.String("parent_task_id", parent.ID),
	)
	return sub, nil
}

// Subtasks lists the children of parentID ordered by sort_order.
func (s *Service) Subtasks(parentID string) ([]*Task, error) {
	return s.store.List(Filter{ParentID: parentID, SortBy: "sort_order"})
}

// BulkUpdateStatus sets status on every existing task in ids, bypassing
// transition guards, and returns the count of rows changed. Unknown IDs are
// skipped without error.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []string, status Status) (int64, error) {
	if !status.Valid() {
		return 0, &ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", status)}
	}
	n, err := s.store.BulkUpdateStatus(ids, status)
	if err != nil {
		s.logger.Error("bulk update status", slog.Any("err", err))
		return 0, fmt.Errorf("bulk update status: %w", err)
	}
	s.logger.Info("tasks bulk status updated",
		slog.Int("requested", len(ids)),
		slog.Int64("updated", n),
		slog.String("status", string(status)),
	)
	return n, nil
}

// BulkAssign sets the assignee on every existing task in ids and returns the
// count of rows changed.
func (s *Service) BulkAssign(ctx context.Context, ids []string, userID string) (int64, error) {
	n, err := s.store.BulkAssign(ids, userID)
	if err != nil {
		s.logger.Error("bulk assign", slog.Any("err", err))
		return 0, fmt.Errorf("bulk assign: %w", err)
	}
	s.logger.Info("tasks bulk assigned",
		slog.Int("requested", len(ids)),
		slog.Int64("updated", n),
		slog.String("assigned_to", userID),
	)
	return n, nil
}

// ListOptions carries the optional read-side criteria shared by the
// by-project and by-user views.
type ListOptions struct {
	Status      *Status
	Priority    *Priority
	Type        string
	AssignedTo  string
	Archived    *bool
	Overdue     bool
	DueSoon     bool
	DueSoonDays int
	SortBy      string
	SortDesc    bool
	Limit       int
	Offset      int
}

func (o ListOptions) filter() Filter {
	f := Filter{
		Status:     o.Status,
		Priority:   o.Priority,
		Type:       o.Type,
		AssignedTo: o.AssignedTo,
		Archived:   o.Archived,
		Overdue:    o.Overdue,
		SortBy:     o.SortBy,
		SortDesc:   o.SortDesc,
		Limit:      o.Limit,
		Offset:     o.Offset,
	}
	if o.DueSoon {
		f.DueWithinDays = o.DueSoonDays
	}
	return f
}

// TasksByProject returns the project's tasks, sorted by created_at
// descending unless the options say otherwise.
func (s *Service) TasksByProject(projectID string, opts ListOptions) ([]*Task, error) {
	if opts.DueSoon && opts.DueSoonDays <= 0 {
		opts.DueSoonDays = s.dueSoonDays
	}
	f := opts.filter()
	f.ProjectID = projectID
	if f.SortBy == "" {
		f.SortBy = "created_at"
		f.SortDesc = true
	}
	return s.store.List(f)
}

// TasksByUser returns tasks assigned to or created by the user, sorted by
// due_date ascending unless the options say otherwise.
func (s *Service) TasksByUser(userID string, opts ListOptions) ([]*Task, error) {
	if opts.DueSoon && opts.DueSoonDays <= 0 {
		opts.DueSoonDays = s.dueSoonDays
	}
	f := opts.filter()
	f.MemberID = userID
	f.AssignedTo = ""
	if f.SortBy == "" {
		f.SortBy = "due_date"
	}
	return s.store.List(f)
}

// OverdueTasks returns open tasks past their due date, soonest first. An
// empty projectID spans all projects.
func (s *Service) OverdueTasks(projectID string) ([]*Task, error) {
	return s.store.List(Filter{ProjectID: projectID, Overdue: true, SortBy: "due_date"})
}

// DueSoonTasks returns open tasks due within days (default window when
// days <= 0), soonest first.
func (s *Service) DueSoonTasks(projectID string, days int) ([]*Task, error) {
	if days <= 0 {
		days = s.dueSoonDays
	}
	return s.store.List(Filter{ProjectID: projectID, DueWithinDays: days, SortBy: "due_date"})
}

// validate checks field-level invariants shared by Create and Update.
func (s *Service) validate(t *Task) error {
	if t.Title == "" {
		return &ValidationError{Field: "title", Msg: "cannot be empty"}
	}
	if len(t.Title) > 255 {
		return &ValidationError{Field: "title", Msg: "cannot exceed 255 characters"}
	}
	if t.ProjectID == "" {
		return &ValidationError{Field: "project_id", Msg: "cannot be empty"}
	}
	if t.CreatedBy == "" {
		return &ValidationError{Field: "created_by", Msg: "cannot be empty"}
	}
	if !t.Status.Valid() {
		return &ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", t.Status)}
	}
	if !t.Priority.Valid() {
		return &ValidationError{Field: "priority", Msg: fmt.Sprintf("unknown priority %q", t.Priority)}
	}
	if t.Progress < 0 || t.Progress > 100 {
		return &ValidationError{Field: "progress", Msg: "must be between 0 and 100"}
	}
	if t.EstimatedHours < 0 {
		return &ValidationError{Field: "estimated_hours", Msg: "cannot be negative"}
	}
	if t.ActualHours < 0 {
		return &ValidationError{Field: "actual_hours", Msg: "cannot be negative"}
	}
	if t.SortOrder < 0 {
		return &ValidationError{Field: "sort_order", Msg: "cannot be negative"}
	}
	return nil
}

// publish emits a domain event; delivery failures are logged, not returned,
// since the state change has already been persisted.
func (s *Service) publish(ctx context.Context, evType events.Type, t *Task, actor string, changed []string) {
	if s.bus == nil {
		return
	}
	ev := &events.Event{
		ID:        uuid.New().String(),
		Type:      evType,
		TaskID:    t.ID,
		ProjectID: t.ProjectID,
		Actor:     actor,
		Changed:   changed,
		Timestamp: s.now().UTC(),
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.logger.Error("publish event",
			slog.String("type", string(evType)),
			slog.String("task_id", t.ID),
			slog.Any("err", err),
		)
	}
}

// diffFields names the fields that differ between two task snapshots.
func diffFields(before, after *Task) []string {
	var changed []string
	add := func(name string, differs bool) {
		if differs {
			changed = append(changed, name)
		}
	}
	add("title", before.Title != after.Title)
	add("description", before.Description != after.Description)
	add("status", before.Status != after.Status)
	add("priority", before.Priority != after.Priority)
	add("type", before.Type != after.Type)
	add("assigned_to", before.AssignedTo != after.AssignedTo)
	add("progress", before.Progress != after.Progress)
	add("estimated_hours", before.EstimatedHours != after.EstimatedHours)
	add("actual_hours", before.ActualHours != after.ActualHours)
	add("sort_order", before.SortOrder != after.SortOrder)
	add("due_date", !timePtrEqual(before.DueDate, after.DueDate))
	return changed
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
