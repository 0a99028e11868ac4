package importer

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"project-tracker-api/internal/models"
	"project-tracker-api/internal/storage"
	"project-tracker-api/internal/store"

	"github.com/google/uuid"
	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"
)

//go:embed mapping.yaml
var defaultMapping []byte

var (
	// ErrInvalidWorkbook means the upload could not be read as an .xlsx file
	// or the mapping did not describe it.
	ErrInvalidWorkbook = errors.New("invalid workbook")
	// ErrTooManyErrors aborts an import once more than MaxErrors rows failed.
	ErrTooManyErrors = errors.New("too many row errors")
)

// ImportOptions defines the configuration for Excel import operations
type ImportOptions struct {
	MappingPath  string // empty uses the embedded mapping.yaml
	DryRun       bool
	MaxErrors    int // default 50
	StoreOptions store.Options
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SheetSummary contains the import statistics for a single sheet
type SheetSummary struct {
	Name     string     `json:"name"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	BatchID  string         `json:"batch_id"`
	Inserted int            `json:"inserted"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Sheets   []SheetSummary `json:"sheets"`
	DryRun   bool           `json:"dry_run"`
}

func (s *ImportSummary) add(sheet SheetSummary) {
	s.Sheets = append(s.Sheets, sheet)
	s.Inserted += sheet.Inserted
	s.Updated += sheet.Updated
	s.Skipped += sheet.Skipped
	s.Errors += sheet.Errors
}

const maxSamples = 10

func (s *SheetSummary) fail(row int, err error) {
	s.Errors++
	if len(s.Samples) < maxSamples {
		s.Samples = append(s.Samples, RowError{Sheet: s.Name, Row: row, Message: err.Error()})
	}
}

// Mapping is the YAML description of the workbook layout.
type Mapping struct {
	Version  int          `yaml:"version"`
	Projects SheetMapping `yaml:"projects"`
	Tasks    SheetMapping `yaml:"tasks"`
}

type SheetMapping struct {
	Sheet   string              `yaml:"sheet"`
	Aliases map[string][]string `yaml:"aliases"`
}

// LoadMapping reads a mapping file, or the embedded default when path is empty.
func LoadMapping(path string) (*Mapping, error) {
	data := defaultMapping
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read mapping: %w", err)
		}
	}
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	if m.Projects.Sheet == "" || m.Tasks.Sheet == "" {
		return nil, errors.New("mapping must name both the projects and the tasks sheet")
	}
	return &m, nil
}

// ImportExcel upserts the projects and tasks found in an .xlsx workbook.
// Projects are matched by name and tasks by project and name. All writes go
// through the stores inside one transaction, which is rolled back for a dry
// run or when more than MaxErrors rows fail.
func ImportExcel(ctx context.Context, db *storage.DB, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{
		BatchID: uuid.NewString(),
		DryRun:  opts.DryRun,
		Sheets:  []SheetSummary{},
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 50
	}

	mapping, err := LoadMapping(opts.MappingPath)
	if err != nil {
		return summary, fmt.Errorf("failed to load mapping config: %w", err)
	}

	// xlsx needs random access, so the whole upload is buffered
	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("failed to read Excel file: %w", err)
	}
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}

	projectSheet := findSheet(wb, mapping.Projects.Sheet)
	taskSheet := findSheet(wb, mapping.Tasks.Sheet)
	if projectSheet == nil && taskSheet == nil {
		return summary, fmt.Errorf("%w: neither %q nor %q sheet found",
			ErrInvalidWorkbook, mapping.Projects.Sheet, mapping.Tasks.Sheet)
	}

	tx, err := db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	projects := store.NewProjectStore(tx, opts.StoreOptions)
	tasks := store.NewTaskStore(tx, projects)

	// Projects first so task rows can reference projects from the same workbook
	if projectSheet != nil {
		sheet, err := importProjects(ctx, projects, projectSheet, mapping.Projects)
		summary.add(sheet)
		if err != nil {
			return summary, err
		}
		if summary.Errors > opts.MaxErrors {
			return summary, fmt.Errorf("%w (%d), stopping import", ErrTooManyErrors, summary.Errors)
		}
	}
	if taskSheet != nil {
		sheet, err := importTasks(ctx, projects, tasks, taskSheet, mapping.Tasks)
		summary.add(sheet)
		if err != nil {
			return summary, err
		}
		if summary.Errors > opts.MaxErrors {
			return summary, fmt.Errorf("%w (%d), stopping import", ErrTooManyErrors, summary.Errors)
		}
	}

	if opts.DryRun {
		return summary, nil
	}
	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("commit import: %w", err)
	}
	return summary, nil
}

func findSheet(wb *xlsx.File, name string) *xlsx.Sheet {
	for _, sh := range wb.Sheets {
		if strings.EqualFold(strings.TrimSpace(sh.Name), name) {
			return sh
		}
	}
	return nil
}

// sheetRows maps mapping fields to columns using the sheet's header row.
type sheetRows struct {
	sheet   *xlsx.Sheet
	columns map[string]int
}

func newSheetRows(sheet *xlsx.Sheet, m SheetMapping) (*sheetRows, error) {
	headers := map[string]int{}
	for col := 0; col < sheet.MaxCol; col++ {
		cell, err := sheet.Cell(0, col)
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		h := strings.ToLower(strings.TrimSpace(cell.String()))
		if _, seen := headers[h]; h != "" && !seen {
			headers[h] = col
		}
	}

	columns := map[string]int{}
	for field, aliases := range m.Aliases {
		for _, name := range append([]string{field}, aliases...) {
			if col, ok := headers[strings.ToLower(strings.TrimSpace(name))]; ok {
				columns[field] = col
				break
			}
		}
	}
	return &sheetRows{sheet: sheet, columns: columns}, nil
}

func (s *sheetRows) has(field string) bool {
	_, ok := s.columns[field]
	return ok
}

// row returns the non-empty mapped values of sheet row idx; row 0 is the header.
func (s *sheetRows) row(idx int) (map[string]string, error) {
	values := map[string]string{}
	for field, col := range s.columns {
		cell, err := s.sheet.Cell(idx, col)
		if err != nil {
			return nil, err
		}
		if v := strings.TrimSpace(cell.String()); v != "" {
			values[field] = v
		}
	}
	return values, nil
}

func optional(values map[string]string, field string) *string {
	if v, ok := values[field]; ok {
		return &v
	}
	return nil
}

// present leaves a blank cell out of an update, so it never clears a value.
func present(values map[string]string, field string) models.Optional {
	if v, ok := values[field]; ok {
		return models.Present(v)
	}
	return models.Optional{}
}

// rowFailure reports whether err is a per-row problem to record rather than
// a storage failure that ends the import.
func rowFailure(err error) bool {
	var verr *store.ValidationError
	return errors.Is(err, store.ErrNotFound) || errors.As(err, &verr)
}

func importProjects(ctx context.Context, projects *store.ProjectStore, sheet *xlsx.Sheet, m SheetMapping) (SheetSummary, error) {
	summary := SheetSummary{Name: sheet.Name}

	rows, err := newSheetRows(sheet, m)
	if err != nil {
		return summary, fmt.Errorf("%w: sheet %s: %v", ErrInvalidWorkbook, sheet.Name, err)
	}
	if !rows.has("name") {
		return summary, fmt.Errorf("%w: sheet %s has no name column", ErrInvalidWorkbook, sheet.Name)
	}

	for idx := 1; idx < sheet.MaxRow; idx++ {
		values, err := rows.row(idx)
		if err != nil {
			summary.fail(idx+1, err)
			continue
		}
		if len(values) == 0 {
			summary.Skipped++
			continue
		}

		existing, err := projects.GetByName(ctx, values["name"])
		switch {
		case err == nil:
			_, err = projects.Update(ctx, existing.ID, models.UpdateProjectRequest{
				Description: present(values, "description"),
				Status:      present(values, "status"),
			})
			if err == nil {
				summary.Updated++
			}
		case errors.Is(err, store.ErrNotFound):
			_, err = projects.Create(ctx, models.CreateProjectRequest{
				Name:        values["name"],
				Description: optional(values, "description"),
				Status:      optional(values, "status"),
			})
			if err == nil {
				summary.Inserted++
			}
		}
		if err != nil {
			if !rowFailure(err) {
				return summary, fmt.Errorf("sheet %s row %d: %w", sheet.Name, idx+1, err)
			}
			summary.fail(idx+1, err)
		}
	}
	return summary, nil
}

func importTasks(ctx context.Context, projects *store.ProjectStore, tasks *store.TaskStore, sheet *xlsx.Sheet, m SheetMapping) (SheetSummary, error) {
	summary := SheetSummary{Name: sheet.Name}

	rows, err := newSheetRows(sheet, m)
	if err != nil {
		return summary, fmt.Errorf("%w: sheet %s: %v", ErrInvalidWorkbook, sheet.Name, err)
	}
	if !rows.has("project") || !rows.has("name") {
		return summary, fmt.Errorf("%w: sheet %s needs project and name columns", ErrInvalidWorkbook, sheet.Name)
	}

	for idx := 1; idx < sheet.MaxRow; idx++ {
		values, err := rows.row(idx)
		if err != nil {
			summary.fail(idx+1, err)
			continue
		}
		if len(values) == 0 {
			summary.Skipped++
			continue
		}
		if err := importTask(ctx, projects, tasks, values, &summary); err != nil {
			if !rowFailure(err) {
				return summary, fmt.Errorf("sheet %s row %d: %w", sheet.Name, idx+1, err)
			}
			summary.fail(idx+1, err)
		}
	}
	return summary, nil
}

func importTask(ctx context.Context, projects *store.ProjectStore, tasks *store.TaskStore, values map[string]string, summary *SheetSummary) error {
	if values["project"] == "" {
		return &store.ValidationError{Field: "project", Message: "is required"}
	}
	project, err := projects.GetByName(ctx, values["project"])
	if err != nil {
		return err
	}

	existing, err := tasks.GetByName(ctx, project.ID, values["name"])
	if errors.Is(err, store.ErrNotFound) {
		_, err = tasks.Create(ctx, project.ID, models.CreateTaskRequest{
			Name:     values["name"],
			Summary:  optional(values, "summary"),
			Status:   values["status"],
			Priority: values["priority"],
		})
		if err == nil {
			summary.Inserted++
		}
		return err
	}
	if err != nil {
		return err
	}

	_, err = tasks.Update(ctx, project.ID, existing.ID, models.UpdateTaskRequest{
		Summary:  present(values, "summary"),
		Status:   present(values, "status"),
		Priority: present(values, "priority"),
	})
	if err == nil {
		summary.Updated++
	}
	return err
}
