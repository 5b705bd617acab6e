package task

import "time"

// ProjectStats is an aggregate snapshot over a project's tasks. Recomputed
// from a full scan on every call; nothing is maintained incrementally.
type ProjectStats struct {
	Total               int     `json:"total_tasks"`
	Pending             int     `json:"pending_tasks"`
	InProgress          int     `json:"in_progress_tasks"`
	Completed           int     `json:"completed_tasks"`
	Cancelled           int     `json:"cancelled_tasks"`
	Archived            int     `json:"archived_tasks"`
	Overdue             int     `json:"overdue_tasks"`
	DueSoon             int     `json:"due_soon_tasks"`
	HighPriority        int     `json:"high_priority_tasks"`
	UrgentPriority      int     `json:"urgent_tasks"`
	AverageProgress     float64 `json:"average_progress"`
	TotalEstimatedHours float64 `json:"total_estimated_hours"`
	TotalActualHours    float64 `json:"total_actual_hours"`
}

// UserStatusCounts aggregates one side (assigned or created) of a user's
// tasks.
type UserStatusCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Overdue    int `json:"overdue,omitempty"`
}

// UserStats pairs the assigned-to and created-by aggregates for a user.
type UserStats struct {
	Assigned UserStatusCounts `json:"assigned_tasks"`
	Created  UserStatusCounts `json:"created_tasks"`
}

// ProjectStatistics computes the aggregate snapshot for a project. An empty
// project yields zeroed counts, not an error.
func (s *Service) ProjectStatistics(projectID string) (*ProjectStats, error) {
	tasks, err := s.store.List(Filter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	stats := &ProjectStats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusPending:
			stats.Pending++
		case StatusInProgress:
			stats.InProgress++
		case StatusCompleted:
			stats.Completed++
		case StatusCancelled:
			stats.Cancelled++
		case StatusArchived:
			stats.Archived++
		}
		if t.IsOverdue(now) {
			stats.Overdue++
		}
		if t.IsDueSoon(now, s.dueSoonDays) {
			stats.DueSoon++
		}
		switch t.Priority {
		case PriorityHigh:
			stats.HighPriority++
		case PriorityUrgent:
			stats.UrgentPriority++
		}
		stats.AverageProgress += t.Progress
		stats.TotalEstimatedHours += t.EstimatedHours
		stats.TotalActualHours += t.ActualHours
	}
	if stats.Total > 0 {
		stats.AverageProgress /= float64(stats.Total)
	}
	return stats, nil
}

// UserStatistics computes aggregates over the tasks a user is assigned to
// and the tasks they created.
func (s *Service) UserStatistics(userID string) (*UserStats, error) {
	assigned, err := s.store.List(Filter{AssignedTo: userID})
	if err != nil {
		return nil, err
	}
	created, err := s.store.List(Filter{CreatedBy: userID})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	stats := &UserStats{}
	stats.Assigned = countByStatus(assigned, now, true)
	stats.Created = countByStatus(created, now, false)
	return stats, nil
}

func countByStatus(tasks []*Task, now time.Time, withOverdue bool) UserStatusCounts {
	c := UserStatusCounts{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusPending:
			c.Pending++
		case StatusInProgress:
			c.InProgress++
		case StatusCompleted:
			c.Completed++
		}
		if withOverdue && t.IsOverdue(now) {
			c.Overdue++
		}
	}
	return c
}
