package task

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	priority        TEXT NOT NULL DEFAULT 'medium',
	type            TEXT NOT NULL DEFAULT 'task',
	project_id      TEXT NOT NULL,
	parent_task_id  TEXT NOT NULL DEFAULT '',
	assigned_to     TEXT NOT NULL DEFAULT '',
	created_by      TEXT NOT NULL,
	progress        REAL NOT NULL DEFAULT 0,
	estimated_hours REAL NOT NULL DEFAULT 0,
	actual_hours    REAL NOT NULL DEFAULT 0,
	sort_order      INTEGER NOT NULL DEFAULT 0,
	version         INTEGER NOT NULL DEFAULT 1,
	due_date        DATETIME,
	started_at      DATETIME,
	completed_at    DATETIME,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assigned_to);
CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_task_id);
`

// sortColumns whitelists the columns List may sort by.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"due_date":   "due_date",
	"title":      "title",
	"status":     "status",
	"priority":   "priority",
	"progress":   "progress",
	"sort_order": "sort_order",
}

// SQLiteStore persists tasks in a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// now is the clock used for timestamps and the overdue / due-soon
	// cutoffs. Overridable in tests.
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the tasks table exists. The caller is responsible for calling Close.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Create persists a new task and sets its ID, Version, CreatedAt, and
// UpdatedAt.
func (s *SQLiteStore) Create(t *Task) (string, error) {
	t.ID = uuid.New().String()
	now := s.now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Version = 1

	_, err := s.db.Exec(`
		INSERT INTO tasks
			(id, title, description, status, priority, type, project_id, parent_task_id,
			 assigned_to, created_by, progress, estimated_hours, actual_hours, sort_order,
			 version, due_date, started_at, completed_at, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), t.Type,
		t.ProjectID, t.ParentTaskID, t.AssignedTo, t.CreatedBy,
		t.Progress, t.EstimatedHours, t.ActualHours, t.SortOrder,
		t.Version, nullTime(t.DueDate), nullTime(t.StartedAt), nullTime(t.CompletedAt),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return t.ID, nil
}

// Get retrieves a task by ID.
func (s *SQLiteStore) Get(id string) (*Task, error) {
	row := s.db.QueryRow(`SELECT * FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

// Update saves changes to an existing task using compare-and-set on the
// version column. UpdatedAt is bumped automatically.
func (s *SQLiteStore) Update(t *Task) error {
	t.UpdatedAt = s.now().UTC()

	res, err := s.db.Exec(`
		UPDATE tasks SET
			title=?, description=?, status=?, priority=?, type=?,
			parent_task_id=?, assigned_to=?,
			progress=?, estimated_hours=?, actual_hours=?, sort_order=?,
			version=version+1, due_date=?, started_at=?, completed_at=?, updated_at=?
		WHERE id=? AND version=?`,
		t.Title, t.Description, string(t.Status), string(t.Priority), t.Type,
		t.ParentTaskID, t.AssignedTo,
		t.Progress, t.EstimatedHours, t.ActualHours, t.SortOrder,
		nullTime(t.DueDate), nullTime(t.StartedAt), nullTime(t.CompletedAt), t.UpdatedAt,
		t.ID, t.Version,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Distinguish a vanished row from a stale version.
		var v int64
		err := s.db.QueryRow(`SELECT version FROM tasks WHERE id = ?`, t.ID).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return fmt.Errorf("task %s at version %d: %w", t.ID, v, ErrStaleWrite)
	}
	t.Version++
	return nil
}

// List returns tasks matching the filter.
func (s *SQLiteStore) List(filter Filter) ([]*Task, error) {
	q := strings.Builder{}
	q.WriteString("SELECT * FROM tasks WHERE 1=1")
	args := []any{}

	if filter.ProjectID != "" {
		q.WriteString(" AND project_id=?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != nil {
		q.WriteString(" AND status=?")
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		q.WriteString(" AND priority=?")
		args = append(args, string(*filter.Priority))
	}
	if filter.Type != "" {
		q.WriteString(" AND type=?")
		args = append(args, filter.Type)
	}
	if filter.AssignedTo != "" {
		q.WriteString(" AND assigned_to=?")
		args = append(args, filter.AssignedTo)
	}
	if filter.CreatedBy != "" {
		q.WriteString(" AND created_by=?")
		args = append(args, filter.CreatedBy)
	}
	if filter.MemberID != "" {
		q.WriteString(" AND (assigned_to=? OR created_by=?)")
		args = append(args, filter.MemberID, filter.MemberID)
	}
	if filter.ParentID != "" {
		q.WriteString(" AND parent_task_id=?")
		args = append(args, filter.ParentID)
	}
	if filter.Archived != nil {
		if *filter.Archived {
			q.WriteString(" AND status=?")
		} else {
			q.WriteString(" AND status<>?")
		}
		args = append(args, string(StatusArchived))
	}
	if filter.Overdue {
		q.WriteString(" AND due_date IS NOT NULL AND due_date < ? AND status NOT IN (?,?)")
		args = append(args, s.now().UTC(), string(StatusCompleted), string(StatusCancelled))
	}
	if filter.DueWithinDays > 0 {
		now := s.now().UTC()
		q.WriteString(" AND due_date IS NOT NULL AND due_date > ? AND due_date <= ? AND status NOT IN (?,?)")
		args = append(args, now, now.AddDate(0, 0, filter.DueWithinDays),
			string(StatusCompleted), string(StatusCancelled))
	}

	col, ok := sortColumns[filter.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}
	q.WriteString(" ORDER BY " + col + " " + dir)
	if filter.Limit > 0 {
		q.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
		if filter.Offset > 0 {
			q.WriteString(fmt.Sprintf(" OFFSET %d", filter.Offset))
		}
	}

	rows, err := s.db.Query(q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Delete removes a task by ID.
func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// BulkUpdateStatus sets status on every existing task in ids. Missing IDs are
// silently skipped; the returned count covers rows actually changed.
func (s *SQLiteStore) BulkUpdateStatus(ids []string, status Status) (int64, error) {
	return s.bulkSet(ids, "status", string(status))
}

// BulkAssign sets the assignee on every existing task in ids.
func (s *SQLiteStore) BulkAssign(ids []string, userID string) (int64, error) {
	return s.bulkSet(ids, "assigned_to", userID)
}

func (s *SQLiteStore) bulkSet(ids []string, column, value string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(ids)+2)
	args = append(args, value, s.now().UTC())
	for _, id := range ids {
		args = append(args, id)
	}

	// column is one of two fixed names, never caller input.
	res, err := s.db.Exec(
		"UPDATE tasks SET "+column+"=?, version=version+1, updated_at=? WHERE id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("bulk update %s: %w", column, err)
	}
	return res.RowsAffected()
}

// scanner abstracts sql.Row and sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var t Task
	var status, priority string
	var dueDate, startedAt, completedAt sql.NullTime

	err := s.Scan(
		&t.ID, &t.Title, &t.Description, &status, &priority, &t.Type,
		&t.ProjectID, &t.ParentTaskID, &t.AssignedTo, &t.CreatedBy,
		&t.Progress, &t.EstimatedHours, &t.ActualHours, &t.SortOrder,
		&t.Version, &dueDate, &startedAt, &completedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = Status(status)
	t.Priority = Priority(priority)

	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if startedAt.Valid {
		t.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return &t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
