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

const (
	maxNameLen   = 100
	maxStatusLen = 50
)

const projectColumns = `id, name, description, status, created_at, updated_at`

// ProjectFilter narrows List. The zero value lists every project in id order.
type ProjectFilter struct {
	Query  string // case-insensitive substring of name
	Status string
	Sort   string
}

var projectSort = map[string]string{
	"id":         "id",
	"name":       "name",
	"status":     "status",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// ProjectStore owns project rows.
type ProjectStore struct {
	db   storage.Querier
	opts Options
}

func NewProjectStore(db storage.Querier, opts Options) *ProjectStore {
	return &ProjectStore{db: db, opts: opts}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *ProjectStore) List(ctx context.Context, f ProjectFilter) ([]models.Project, error) {
	clauses := []string{}
	args := []any{}

	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}
	if st := strings.TrimSpace(f.Status); st != "" {
		args = append(args, st)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	sqlStr := "SELECT " + projectColumns + " FROM projects"
	if len(clauses) > 0 {
		sqlStr += " WHERE " + strings.Join(clauses, " AND ")
	}
	sqlStr += buildOrderBy(f.Sort, projectSort)

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (s *ProjectStore) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return p, nil
}

// GetByName returns the oldest project whose name matches case-insensitively.
func (s *ProjectStore) GetByName(ctx context.Context, name string) (*models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE LOWER(name) = $1 ORDER BY id ASC LIMIT 1",
		strings.ToLower(strings.TrimSpace(name))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %q: %w", name, err)
	}
	return p, nil
}

func (s *ProjectStore) exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check project %d: %w", id, err)
	}
	return exists, nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return required("name")
	}
	if len([]rune(name)) > maxNameLen {
		return tooLong("name", maxNameLen)
	}
	return nil
}

func validateShort(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return required(field)
	}
	if len([]rune(v)) > maxStatusLen {
		return tooLong(field, maxStatusLen)
	}
	return nil
}

// nonNull returns the value of a supplied field that may not be cleared.
func nonNull(field string, o models.Optional) (string, error) {
	if o.Value == nil {
		return "", required(field)
	}
	return *o.Value, nil
}

// Create validates and inserts a project; created_at and updated_at are both now.
func (s *ProjectStore) Create(ctx context.Context, in models.CreateProjectRequest) (*models.Project, error) {
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	status := models.DefaultProjectStatus
	if in.Status != nil {
		status = *in.Status
		if err := validateShort("status", status); err != nil {
			return nil, err
		}
	}

	now := s.opts.now()
	p := &models.Project{
		Name:        in.Name,
		Description: in.Description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO projects (name, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		p.Name, p.Description, p.Status, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// Update applies the fields present in in; a null description is stored as
// NULL. updated_at moves only when TouchOnProjectUpdate is set.
func (s *ProjectStore) Update(ctx context.Context, id int64, in models.UpdateProjectRequest) (*models.Project, error) {
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
	if in.Description.Set {
		sets = append(sets, set{"description = $%d", in.Description.Value})
	}
	if in.Status.Set {
		status, err := nonNull("status", in.Status)
		if err == nil {
			err = validateShort("status", status)
		}
		if err != nil {
			return nil, err
		}
		sets = append(sets, set{"status = $%d", status})
	}
	if in.Empty() && !s.opts.TouchOnProjectUpdate {
		return s.GetByID(ctx, id)
	}
	if s.opts.TouchOnProjectUpdate {
		sets = append(sets, set{"updated_at = CASE WHEN updated_at < $%[1]d THEN $%[1]d ELSE updated_at END", s.opts.now()})
	}

	args := make([]any, 0, len(sets)+1)
	parts := make([]string, 0, len(sets))
	for i, st := range sets {
		parts = append(parts, fmt.Sprintf(st.sql, i+1))
		args = append(args, st.val)
	}
	args = append(args, id)
	sqlStr := "UPDATE projects SET " + strings.Join(parts, ", ") + fmt.Sprintf(" WHERE id = $%d", len(args))

	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("update project %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update project %d: %w", id, err)
	} else if n == 0 {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return s.GetByID(ctx, id)
}

// Delete removes the project row. Its tasks are removed in the same
// transaction only when CascadeProjectDelete is set.
func (s *ProjectStore) Delete(ctx context.Context, id int64) error {
	return storage.InTx(ctx, s.db, func(q storage.Querier) error {
		res, err := q.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("delete project %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete project %d: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("project %d: %w", id, ErrNotFound)
		}
		if s.opts.CascadeProjectDelete {
			if _, err := q.ExecContext(ctx, "DELETE FROM tasks WHERE project_id = $1", id); err != nil {
				return fmt.Errorf("delete tasks of project %d: %w", id, err)
			}
		}
		return nil
	})
}

// Touch sets updated_at to now if the project exists. It never moves the
// timestamp backwards and is a no-op for unknown ids.
func (s *ProjectStore) Touch(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE projects SET updated_at = $1 WHERE id = $2 AND updated_at < $1", s.opts.now(), id)
	if err != nil {
		return fmt.Errorf("touch project %d: %w", id, err)
	}
	return nil
}
