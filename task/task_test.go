package task

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func TestTask_Start(t *testing.T) {
	task := &Task{ID: "t1", Status: StatusPending}
	if err := task.Start(testNow); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if task.Status != StatusInProgress {
		t.Errorf("Status = %q, want in_progress", task.Status)
	}
	if task.StartedAt == nil || !task.StartedAt.Equal(testNow) {
		t.Errorf("StartedAt = %v, want %v", task.StartedAt, testNow)
	}
}

func TestTask_Start_RejectsNonPending(t *testing.T) {
	for _, status := range []Status{StatusInProgress, StatusCompleted, StatusCancelled, StatusArchived} {
		task := &Task{ID: "t1", Status: status}
		err := task.Start(testNow)
		if err == nil {
			t.Errorf("Start from %q: expected error", status)
			continue
		}
		var te *TransitionError
		if !errors.As(err, &te) {
			t.Errorf("Start from %q: error type %T, want *TransitionError", status, err)
			continue
		}
		if te.Op != "start" || te.Status != status {
			t.Errorf("TransitionError = %+v, want op=start status=%s", te, status)
		}
		if task.Status != status {
			t.Errorf("rejected Start mutated status to %q", task.Status)
		}
	}
}

func TestTask_Complete(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusInProgress} {
		task := &Task{ID: "t1", Status: status, Progress: 40}
		if err := task.Complete(testNow); err != nil {
			t.Fatalf("Complete from %q: %v", status, err)
		}
		if task.Status != StatusCompleted {
			t.Errorf("Status = %q, want completed", task.Status)
		}
		if task.Progress != 100 {
			t.Errorf("Progress = %v, want 100", task.Progress)
		}
		if task.CompletedAt == nil || !task.CompletedAt.Equal(testNow) {
			t.Errorf("CompletedAt = %v, want %v", task.CompletedAt, testNow)
		}
	}
}

func TestTask_Complete_RejectsTerminal(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled, StatusArchived} {
		task := &Task{ID: "t1", Status: status}
		if err := task.Complete(testNow); err == nil {
			t.Errorf("Complete from %q: expected error", status)
		}
	}
}

func TestTask_Cancel(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusInProgress} {
		task := &Task{ID: "t1", Status: status}
		if err := task.Cancel(); err != nil {
			t.Fatalf("Cancel from %q: %v", status, err)
		}
		if task.Status != StatusCancelled {
			t.Errorf("Status = %q, want cancelled", task.Status)
		}
	}
	for _, status := range []Status{StatusCompleted, StatusCancelled, StatusArchived} {
		task := &Task{ID: "t1", Status: status}
		if err := task.Cancel(); err == nil {
			t.Errorf("Cancel from %q: expected error", status)
		}
	}
}

func TestTask_Archive(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled} {
		task := &Task{ID: "t1", Status: status}
		if err := task.Archive(); err != nil {
			t.Fatalf("Archive from %q: %v", status, err)
		}
		if !task.IsArchived() {
			t.Errorf("IsArchived = false after Archive from %q", status)
		}
	}
	for _, status := range []Status{StatusPending, StatusInProgress, StatusArchived} {
		task := &Task{ID: "t1", Status: status}
		if err := task.Archive(); err == nil {
			t.Errorf("Archive from %q: expected error", status)
		}
	}
}

func TestTask_SetProgress(t *testing.T) {
	task := &Task{ID: "t1", Status: StatusInProgress}
	if err := task.SetProgress(55); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if task.Progress != 55 {
		t.Errorf("Progress = %v, want 55", task.Progress)
	}

	// Progress 100 does not change status.
	if err := task.SetProgress(100); err != nil {
		t.Fatalf("SetProgress(100): %v", err)
	}
	if task.Status != StatusInProgress {
		t.Errorf("Status = %q after progress=100, want in_progress", task.Status)
	}

	for _, v := range []float64{-1, 100.5, 200} {
		if err := task.SetProgress(v); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("SetProgress(%v) = %v, want ErrOutOfRange", v, err)
		}
	}
}

func TestTask_IsOverdue(t *testing.T) {
	past := timePtr(testNow.Add(-24 * time.Hour))
	future := timePtr(testNow.Add(24 * time.Hour))

	cases := []struct {
		name string
		task Task
		want bool
	}{
		{"no due date", Task{Status: StatusPending}, false},
		{"past due, open", Task{Status: StatusInProgress, DueDate: past}, true},
		{"past due, completed", Task{Status: StatusCompleted, DueDate: past}, false},
		{"past due, cancelled", Task{Status: StatusCancelled, DueDate: past}, false},
		{"past due, archived", Task{Status: StatusArchived, DueDate: past}, true},
		{"future due", Task{Status: StatusPending, DueDate: future}, false},
	}
	for _, c := range cases {
		if got := c.task.IsOverdue(testNow); got != c.want {
			t.Errorf("%s: IsOverdue = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestTask_IsDueSoon(t *testing.T) {
	within := timePtr(testNow.AddDate(0, 0, 2))
	beyond := timePtr(testNow.AddDate(0, 0, 5))
	past := timePtr(testNow.Add(-time.Hour))

	cases := []struct {
		name string
		task Task
		want bool
	}{
		{"within window", Task{Status: StatusPending, DueDate: within}, true},
		{"beyond window", Task{Status: StatusPending, DueDate: beyond}, false},
		{"already overdue", Task{Status: StatusPending, DueDate: past}, false},
		{"completed", Task{Status: StatusCompleted, DueDate: within}, false},
		{"no due date", Task{Status: StatusPending}, false},
	}
	for _, c := range cases {
		if got := c.task.IsDueSoon(testNow, 3); got != c.want {
			t.Errorf("%s: IsDueSoon = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestTask_DaysUntilDue(t *testing.T) {
	task := &Task{}
	if got := task.DaysUntilDue(testNow); got != -1 {
		t.Errorf("no due date: got %d, want -1", got)
	}
	task.DueDate = timePtr(testNow.Add(-time.Hour))
	if got := task.DaysUntilDue(testNow); got != 0 {
		t.Errorf("past due: got %d, want 0", got)
	}
	task.DueDate = timePtr(testNow.AddDate(0, 0, 5))
	if got := task.DaysUntilDue(testNow); got != 5 {
		t.Errorf("5 days out: got %d, want 5", got)
	}
}

func TestTask_DurationDays(t *testing.T) {
	task := &Task{}
	if got := task.DurationDays(); got != -1 {
		t.Errorf("unset timestamps: got %d, want -1", got)
	}
	task.StartedAt = timePtr(testNow)
	task.CompletedAt = timePtr(testNow.AddDate(0, 0, 3))
	if got := task.DurationDays(); got != 3 {
		t.Errorf("3-day span: got %d, want 3", got)
	}
}

func TestTask_IsSubtask(t *testing.T) {
	task := &Task{}
	if task.IsSubtask() {
		t.Error("IsSubtask = true with no parent")
	}
	task.ParentTaskID = "parent-1"
	if !task.IsSubtask() {
		t.Error("IsSubtask = false with parent set")
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusArchived} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("done").Valid() {
		t.Error(`"done" should be invalid`)
	}
	if Status("").Valid() {
		t.Error("empty status should be invalid")
	}
}

func TestPriority_Valid(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent} {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	if Priority("critical").Valid() {
		t.Error(`"critical" should be invalid`)
	}
}
