package task

// Store persists and retrieves tasks.
type Store interface {
	// Create persists a new task and returns its assigned ID.
	Create(t *Task) (string, error)

	// Get retrieves a task by ID.
	Get(id string) (*Task, error)

	// Update saves changes to an existing task. The update succeeds only
	// when t.Version matches the stored row; on success the stored version
	// is bumped and t.Version is refreshed. A mismatch fails with
	// ErrStaleWrite.
	Update(t *Task) error

	// List returns tasks matching the given filter.
	List(filter Filter) ([]*Task, error)

	// Delete removes a task by ID.
	Delete(id string) error

	// BulkUpdateStatus sets the status of every existing task in ids,
	// bypassing transition guards, and returns the number of rows changed.
	// IDs that match no task are not counted and raise no error.
	BulkUpdateStatus(ids []string, status Status) (int64, error)

	// BulkAssign sets the assignee of every existing task in ids and
	// returns the number of rows changed.
	BulkAssign(ids []string, userID string) (int64, error)
}

// Filter controls which tasks are returned by List. Criteria present in the
// filter are combined as an AND-conjunction.
type Filter struct {
	ProjectID  string    `json:"project_id,omitempty"`
	Status     *Status   `json:"status,omitempty"`
	Priority   *Priority `json:"priority,omitempty"`
	Type       string    `json:"type,omitempty"`
	AssignedTo string    `json:"assigned_to,omitempty"`
	CreatedBy  string    `json:"created_by,omitempty"`
	// MemberID matches tasks either assigned to or created by the user.
	MemberID string `json:"member_id,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
	// Archived filters on the derived archived state (status == archived).
	Archived *bool `json:"archived,omitempty"`
	// Overdue selects open tasks whose due date has passed.
	Overdue bool `json:"overdue,omitempty"`
	// DueWithinDays selects open tasks due between now and now+N days.
	DueWithinDays int `json:"due_within_days,omitempty"`

	SortBy   string `json:"sort_by,omitempty"` // whitelisted column, default created_at
	SortDesc bool   `json:"sort_desc,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}
