// Package project defines the project record tasks belong to.
//
// Only the fields the task core needs live here: the existence check for
// task-creation validation and enough metadata for the dashboard's project
// list.
package project

import "time"

// Status represents the project state.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Project groups tasks under a single owner.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store persists and retrieves projects.
type Store interface {
	Create(p *Project) (string, error)
	Get(id string) (*Project, error)
	List() ([]*Project, error)
	Delete(id string) error

	// Exists reports whether a project with the given ID exists. Used by
	// the task service during creation validation.
	Exists(id string) (bool, error)
}
