package models

type Task struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Summary   *string `json:"summary"`
	Status    string  `json:"status"`
	Priority  string  `json:"priority"`
	ProjectID int64   `json:"project_id"`
}

// CreateTaskRequest represents the request body for creating a task under a project
type CreateTaskRequest struct {
	Name     string  `json:"name"`
	Summary  *string `json:"summary,omitempty"`
	Status   string  `json:"status"`
	Priority string  `json:"priority"`
}

// UpdateTaskRequest carries only the fields present in the request body.
type UpdateTaskRequest struct {
	Name     Optional `json:"name"`
	Summary  Optional `json:"summary"`
	Status   Optional `json:"status"`
	Priority Optional `json:"priority"`
}

func (r UpdateTaskRequest) Empty() bool {
	return !r.Name.Set && !r.Summary.Set && !r.Status.Set && !r.Priority.Set
}
