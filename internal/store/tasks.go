package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"project-tracker-api/internal/models"
	"project-tracker-api/internal/storage"
)

const taskColumns = `id, name, summary, status, priority, project_id`

// TaskFilter narrows ListByProject.
type TaskFilter struct {
	Status   string
	Priority string
	Sort     string
}

var taskSort = map[string]string{
	"id":       "id",
	"name":     "name",
	"status":   "status",
	"priority": "priority",
}

// TaskStore owns task rows. Every successful create or update touches the
// parent project through projects.
type TaskStore struct {
	db       storage.Querier
	projects *ProjectStore
}

func NewTaskStore(db storage.Querier, projects *ProjectStore) *TaskStore {
	return &TaskStore{db: db, projects: projects}
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	if err := row.Scan(&t.ID, &t.Name, &t.Summary, &t.Status, &t.Priority, &t.ProjectID); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByProject returns the project's tasks, or an empty slice. The project
// itself is not required to exist.
func (s *TaskStore) ListByProject(ctx context.Context, projectID int64, f TaskFilter) ([]models.Task, error) {
	clauses := []string{"project_id = $1"}
	args := []any{projectID}

	if st := strings.TrimSpace(f.Status); st != "" {
		args = append(args, st)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if pr := strings.TrimSpace(f.Priority); pr != "" {
		args = append(args, pr)
		clauses = append(clauses, fmt.Sprintf("priority = $%d", len(args)))
	}

	sqlStr := "SELECT " + taskColumns + " FROM tasks WHERE " + strings.Join(clauses, " AND ") +
		buildOrderBy(f.Sort, taskSort)

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks of project %d: %w", projectID, err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks of project %d: %w", projectID, err)
	}
	return tasks, nil
}

func (s *TaskStore) Get(ctx context.Context, projectID, id int64) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1 AND project_id = $2", id, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d in project %d: %w", id, projectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// GetByName returns the oldest task of the project with a case-insensitively matching name.
func (s *TaskStore) GetByName(ctx context.Context, projectID int64, name string) (*models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE project_id = $1 AND LOWER(name) = $2 ORDER BY id ASC LIMIT 1",
		projectID, strings.ToLower(strings.TrimSpace(name))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %q in project %d: %w", name, projectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %q: %w", name, err)
	}
	return t, nil
}

func (s *TaskStore) requireProject(ctx context.Context, projectID int64) error {
	ok, err := s.projects.exists(ctx, projectID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	return nil
}

// Create inserts a task under an existing project and touches the project.
// Nothing is written when the project does not exist.
func (s *TaskStore) Create(ctx context.Context, projectID int64, in models.CreateTaskRequest) (*models.Task, error) {
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	if err := validateShort("status", in.Status); err != nil {
		return nil, err
	}
	if err := validateShort("priority", in.Priority); err != nil {
		return nil, err
	}
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}

	t := &models.Task{
		Name:      in.Name,
		Summary:   in.Summary,
		Status:    in.Status,
		Priority:  in.Priority,
		ProjectID: projectID,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (project_id, name, summary, status, priority)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		t.ProjectID, t.Name, t.Summary, t.Status, t.Priority).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if err := s.projects.Touch(ctx, projectID); err != nil {
		return nil, err
	}
	return t, nil
}

// Update applies the fields present in in and touches the parent project,
// whether or not anything changed. A null summary is stored as NULL.
func (s *TaskStore) Update(ctx context.Context, projectID, id int64, in models.UpdateTaskRequest) (*models.Task, error) {
	type set struct {
		sql string
		val any
	}
	sets := make([]set, 0, 4)
	if in.Name.Set {
		name, err := nonNull("name", in.Name)
		if err == nil {
			err = validateName(name)
		}
		if err != nil {
			return nil, err
		}
		sets = append(sets, set{"name = $%d", name})
	}
	if in.Summary.Set {
		sets = append(sets, set{"summary = $%d", in.Summary.Value})
	}
	for _, f := range []struct {
		name string
		in   models.Optional
	}{{"status", in.Status}, {"priority", in.Priority}} {
		if !f.in.Set {
			continue
		}
		v, err := nonNull(f.name, f.in)
		if err == nil {
			err = validateShort(f.name, v)
		}
		if err != nil {
			return nil, err
		}
		sets = append(sets, set{f.name + " = $%d", v})
	}

	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}

	if in.Empty() {
		if _, err := s.Get(ctx, projectID, id); err != nil {
			return nil, err
		}
	} else {
		args := make([]any, 0, len(sets)+2)
		parts := make([]string, 0, len(sets))
		for i, st := range sets {
			parts = append(parts, fmt.Sprintf(st.sql, i+1))
			args = append(args, st.val)
		}
		args = append(args, id, projectID)
		sqlStr := "UPDATE tasks SET " + strings.Join(parts, ", ") +
			fmt.Sprintf(" WHERE id = $%d AND project_id = $%d", len(args)-1, len(args))

		res, err := s.db.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			return nil, fmt.Errorf("update task %d: %w", id, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, fmt.Errorf("update task %d: %w", id, err)
		} else if n == 0 {
			return nil, fmt.Errorf("task %d in project %d: %w", id, projectID, ErrNotFound)
		}
	}

	if err := s.projects.Touch(ctx, projectID); err != nil {
		return nil, err
	}
	return s.Get(ctx, projectID, id)
}

// Delete removes the task. The parent project is touched only when
// TouchOnTaskDelete is set.
func (s *TaskStore) Delete(ctx context.Context, projectID, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1 AND project_id = $2", id, projectID)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("task %d in project %d: %w", id, projectID, ErrNotFound)
	}
	if s.projects.opts.TouchOnTaskDelete {
		return s.projects.Touch(ctx, projectID)
	}
	return nil
}
