package task

import (
	"errors"
	"os"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	f, err := os.CreateTemp("", "taskhub-task-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()
	path := f.Name()
	t.Cleanup(func() { os.Remove(path) })

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)

	due := testNow.AddDate(0, 0, 7)
	task := &Task{
		Title:       "Wire the login form",
		Description: "hook the form up to the auth endpoint",
		Status:      StatusPending,
		Priority:    PriorityHigh,
		Type:        TypeFeature,
		ProjectID:   "proj-1",
		CreatedBy:   "user-1",
		DueDate:     &due,
	}
	id, err := store.Create(task)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("Create returned empty ID")
	}
	if task.ID != id {
		t.Errorf("task.ID = %q, want %q", task.ID, id)
	}
	if task.Version != 1 {
		t.Errorf("Version = %d, want 1", task.Version)
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != task.Title {
		t.Errorf("Title = %q, want %q", got.Title, task.Title)
	}
	if got.Status != StatusPending {
		t.Errorf("Status = %q, want %q", got.Status, StatusPending)
	}
	if got.Priority != PriorityHigh {
		t.Errorf("Priority = %q, want %q", got.Priority, PriorityHigh)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, due)
	}
	if got.StartedAt != nil {
		t.Errorf("StartedAt = %v, want nil", got.StartedAt)
	}
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_Update(t *testing.T) {
	store := newTestStore(t)

	task := &Task{Title: "orig", Status: StatusPending, Priority: PriorityMedium, ProjectID: "p1", CreatedBy: "u1"}
	id, err := store.Create(task)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	task.Title = "updated"
	task.Status = StatusInProgress
	task.Progress = 30
	if err := store.Update(task); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if task.Version != 2 {
		t.Errorf("Version after update = %d, want 2", task.Version)
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got.Title != "updated" {
		t.Errorf("Title = %q, want updated", got.Title)
	}
	if got.Status != StatusInProgress {
		t.Errorf("Status = %q, want in_progress", got.Status)
	}
	if got.Progress != 30 {
		t.Errorf("Progress = %v, want 30", got.Progress)
	}
	if got.Version != 2 {
		t.Errorf("stored Version = %d, want 2", got.Version)
	}
}

func TestSQLiteStore_Update_NotFound(t *testing.T) {
	store := newTestStore(t)
	task := &Task{ID: "nonexistent", Title: "x", Status: StatusPending, Priority: PriorityMedium, Version: 1}
	if err := store.Update(task); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_Update_StaleVersion(t *testing.T) {
	store := newTestStore(t)

	task := &Task{Title: "contested", Status: StatusPending, Priority: PriorityMedium, ProjectID: "p1", CreatedBy: "u1"}
	if _, err := store.Create(task); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Two readers fetch the same version.
	copy1, _ := store.Get(task.ID)
	copy2, _ := store.Get(task.ID)

	copy1.Title = "writer one"
	if err := store.Update(copy1); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	copy2.Title = "writer two"
	if err := store.Update(copy2); !errors.Is(err, ErrStaleWrite) {
		t.Fatalf("second Update = %v, want ErrStaleWrite", err)
	}

	got, _ := store.Get(task.ID)
	if got.Title != "writer one" {
		t.Errorf("Title = %q, the stale write must not land", got.Title)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newTestStore(t)

	task := &Task{Title: "to delete", Status: StatusPending, Priority: PriorityMedium, ProjectID: "p1", CreatedBy: "u1"}
	id, err := store.Create(task)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_Delete_NotFound(t *testing.T) {
	store := newTestStore(t)
	if err := store.Delete("nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete = %v, want ErrNotFound", err)
	}
}

func seedTasks(t *testing.T, store *SQLiteStore, tasks []*Task) {
	t.Helper()
	for _, task := range tasks {
		if task.Status == "" {
			task.Status = StatusPending
		}
		if task.Priority == "" {
			task.Priority = PriorityMedium
		}
		if task.ProjectID == "" {
			task.ProjectID = "proj-1"
		}
		if task.CreatedBy == "" {
			task.CreatedBy = "user-1"
		}
		if _, err := store.Create(task); err != nil {
			t.Fatalf("Create %q: %v", task.Title, err)
		}
	}
}

func TestSQLiteStore_List_Filters(t *testing.T) {
	store := newTestStore(t)
	store.now = func() time.Time { return testNow }

	pastDue := testNow.Add(-48 * time.Hour)
	soonDue := testNow.AddDate(0, 0, 2)
	seedTasks(t, store, []*Task{
		{Title: "t1", ProjectID: "proj-a", Status: StatusPending, AssignedTo: "user-1", DueDate: &pastDue},
		{Title: "t2", ProjectID: "proj-a", Status: StatusCompleted, AssignedTo: "user-2", DueDate: &pastDue},
		{Title: "t3", ProjectID: "proj-b", Status: StatusInProgress, AssignedTo: "user-1", DueDate: &soonDue},
		{Title: "t4", ProjectID: "proj-b", Status: StatusArchived, CreatedBy: "user-2"},
		{Title: "t5", ProjectID: "proj-b", Status: StatusPending, Priority: PriorityUrgent},
	})

	all, err := store.List(Filter{})
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("List all: got %d, want 5", len(all))
	}

	projA, err := store.List(Filter{ProjectID: "proj-a"})
	if err != nil {
		t.Fatalf("List proj-a: %v", err)
	}
	if len(projA) != 2 {
		t.Errorf("List proj-a: got %d, want 2", len(projA))
	}

	pending := StatusPending
	pendingList, err := store.List(Filter{Status: &pending})
	if err != nil {
		t.Fatalf("List pending: %v", err)
	}
	if len(pendingList) != 2 {
		t.Errorf("List pending: got %d, want 2", len(pendingList))
	}

	urgent := PriorityUrgent
	urgentList, err := store.List(Filter{Priority: &urgent})
	if err != nil {
		t.Fatalf("List urgent: %v", err)
	}
	if len(urgentList) != 1 {
		t.Errorf("List urgent: got %d, want 1", len(urgentList))
	}

	user1, err := store.List(Filter{AssignedTo: "user-1"})
	if err != nil {
		t.Fatalf("List user-1: %v", err)
	}
	if len(user1) != 2 {
		t.Errorf("List user-1: got %d, want 2", len(user1))
	}

	// MemberID matches assigned OR created.
	member2, err := store.List(Filter{MemberID: "user-2"})
	if err != nil {
		t.Fatalf("List member user-2: %v", err)
	}
	if len(member2) != 2 {
		t.Errorf("List member user-2: got %d, want 2 (one assigned, one created)", len(member2))
	}

	archived := true
	archivedList, err := store.List(Filter{Archived: &archived})
	if err != nil {
		t.Fatalf("List archived: %v", err)
	}
	if len(archivedList) != 1 {
		t.Errorf("List archived: got %d, want 1", len(archivedList))
	}
	active := false
	activeList, err := store.List(Filter{Archived: &active})
	if err != nil {
		t.Fatalf("List active: %v", err)
	}
	if len(activeList) != 4 {
		t.Errorf("List active: got %d, want 4", len(activeList))
	}

	// Overdue excludes the completed task with a past due date.
	overdue, err := store.List(Filter{Overdue: true})
	if err != nil {
		t.Fatalf("List overdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].Title != "t1" {
		t.Errorf("List overdue: got %d, want just t1", len(overdue))
	}

	dueSoon, err := store.List(Filter{DueWithinDays: 3})
	if err != nil {
		t.Fatalf("List due soon: %v", err)
	}
	if len(dueSoon) != 1 || dueSoon[0].Title != "t3" {
		t.Errorf("List due soon: got %d, want just t3", len(dueSoon))
	}

	limited, err := store.List(Filter{Limit: 2})
	if err != nil {
		t.Fatalf("List limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List limit 2: got %d, want 2", len(limited))
	}
}

func TestSQLiteStore_List_Sort(t *testing.T) {
	store := newTestStore(t)

	seedTasks(t, store, []*Task{
		{Title: "banana"},
		{Title: "apple"},
		{Title: "cherry"},
	})

	asc, err := store.List(Filter{SortBy: "title"})
	if err != nil {
		t.Fatalf("List sort asc: %v", err)
	}
	if asc[0].Title != "apple" || asc[2].Title != "cherry" {
		t.Errorf("ascending titles = %q, %q, %q", asc[0].Title, asc[1].Title, asc[2].Title)
	}

	desc, err := store.List(Filter{SortBy: "title", SortDesc: true})
	if err != nil {
		t.Fatalf("List sort desc: %v", err)
	}
	if desc[0].Title != "cherry" {
		t.Errorf("descending first = %q, want cherry", desc[0].Title)
	}

	// Unknown sort column falls back to created_at rather than erroring.
	if _, err := store.List(Filter{SortBy: "1; DROP TABLE tasks"}); err != nil {
		t.Fatalf("List with bogus sort column: %v", err)
	}
}

func TestSQLiteStore_BulkUpdateStatus(t *testing.T) {
	store := newTestStore(t)

	a := &Task{Title: "a"}
	b := &Task{Title: "b"}
	seedTasks(t, store, []*Task{a, b})

	// One real ID, one missing: only the real one counts.
	n, err := store.BulkUpdateStatus([]string{a.ID, b.ID, "missing"}, StatusCancelled)
	if err != nil {
		t.Fatalf("BulkUpdateStatus: %v", err)
	}
	if n != 2 {
		t.Errorf("affected = %d, want 2", n)
	}

	got, _ := store.Get(a.ID)
	if got.Status != StatusCancelled {
		t.Errorf("Status = %q, want cancelled", got.Status)
	}
	if got.Version != 2 {
		t.Errorf("Version = %d, want 2 (bulk writes bump the version)", got.Version)
	}
}

func TestSQLiteStore_BulkUpdateStatus_Empty(t *testing.T) {
	store := newTestStore(t)
	n, err := store.BulkUpdateStatus(nil, StatusCancelled)
	if err != nil {
		t.Fatalf("BulkUpdateStatus(nil): %v", err)
	}
	if n != 0 {
		t.Errorf("affected = %d, want 0", n)
	}
}

func TestSQLiteStore_BulkAssign(t *testing.T) {
	store := newTestStore(t)

	a := &Task{Title: "a"}
	b := &Task{Title: "b"}
	seedTasks(t, store, []*Task{a, b})

	n, err := store.BulkAssign([]string{a.ID, b.ID}, "user-9")
	if err != nil {
		t.Fatalf("BulkAssign: %v", err)
	}
	if n != 2 {
		t.Errorf("affected = %d, want 2", n)
	}

	got, _ := store.Get(b.ID)
	if got.AssignedTo != "user-9" {
		t.Errorf("AssignedTo = %q, want user-9", got.AssignedTo)
	}
}
