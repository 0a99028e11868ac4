package models

import "time"

type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultProjectStatus is stored when a project is created without a status.
const DefaultProjectStatus = "planned"

// CreateProjectRequest represents the request body for creating a project
type CreateProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// UpdateProjectRequest carries only the fields present in the request body.
// A null description clears it; name and status may not be null.
type UpdateProjectRequest struct {
	Name        Optional `json:"name"`
	Description Optional `json:"description"`
	Status      Optional `json:"status"`
}

// Empty reports whether no field was supplied.
func (r UpdateProjectRequest) Empty() bool {
	return !r.Name.Set && !r.Description.Set && !r.Status.Set
}
