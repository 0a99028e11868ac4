package importer_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"project-tracker-api/internal/store"
	"project-tracker-api/internal/testutil"
	"project-tracker-api/pkg/importer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sheet struct {
	name string
	rows [][]string
}

func workbook(t *testing.T, sheets ...sheet) *bytes.Buffer {
	t.Helper()
	f := xlsx.NewFile()
	for _, s := range sheets {
		sh, err := f.AddSheet(s.name)
		require.NoError(t, err)
		for _, values := range s.rows {
			row := sh.AddRow()
			for _, v := range values {
				row.AddCell().SetString(v)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

var (
	projectSheet = sheet{name: "Projects", rows: [][]string{
		{"Name", "Description", "Status"},
		{"Website", "Company site", "active"},
		{"Mobile App", "", ""},
	}}
	taskSheet = sheet{name: "Tasks", rows: [][]string{
		{"Project", "Task", "Summary", "Status", "Priority"},
		{"website", "Design mockups", "First pass", "todo", "high"},
		{"Mobile App", "Login screen", "", "todo", "low"},
	}}
)

func TestImportExcel(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	bad := taskSheet
	bad.rows = append(append([][]string{}, taskSheet.rows...), []string{"Unknown", "Orphan", "", "todo", "low"})

	sum, err := importer.ImportExcel(ctx, db, workbook(t, projectSheet, bad), importer.ImportOptions{
		StoreOptions: store.DefaultOptions(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, sum.BatchID)
	assert.False(t, sum.DryRun)
	assert.Equal(t, 4, sum.Inserted)
	assert.Equal(t, 0, sum.Updated)
	assert.Equal(t, 1, sum.Errors)
	require.Len(t, sum.Sheets, 2)
	assert.Equal(t, "Projects", sum.Sheets[0].Name)
	assert.Equal(t, 2, sum.Sheets[0].Inserted)
	assert.Equal(t, "Tasks", sum.Sheets[1].Name)
	assert.Equal(t, 2, sum.Sheets[1].Inserted)
	require.Len(t, sum.Sheets[1].Samples, 1)
	assert.Equal(t, 4, sum.Sheets[1].Samples[0].Row)
	assert.Contains(t, sum.Sheets[1].Samples[0].Message, "not found")

	projects := store.NewProjectStore(db.SQL, store.DefaultOptions())
	tasks := store.NewTaskStore(db.SQL, projects)

	website, err := projects.GetByName(ctx, "Website")
	require.NoError(t, err)
	require.NotNil(t, website.Description)
	assert.Equal(t, "Company site", *website.Description)
	assert.Equal(t, "active", website.Status)

	mobile, err := projects.GetByName(ctx, "Mobile App")
	require.NoError(t, err)
	assert.Nil(t, mobile.Description)
	assert.Equal(t, "planned", mobile.Status)

	list, err := tasks.ListByProject(ctx, website.ID, store.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Design mockups", list[0].Name)
	require.NotNil(t, list[0].Summary)
	assert.Equal(t, "First pass", *list[0].Summary)
	assert.Equal(t, "high", list[0].Priority)

	list, err = tasks.ListByProject(ctx, mobile.ID, store.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Summary)
}

func TestImportExcelUpserts(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	opts := importer.ImportOptions{StoreOptions: store.DefaultOptions()}

	_, err := importer.ImportExcel(ctx, db, workbook(t, projectSheet, taskSheet), opts)
	require.NoError(t, err)

	changed := taskSheet
	changed.rows = [][]string{
		{"Project", "Task", "Status", "Priority"},
		{"Website", "design MOCKUPS", "done", "high"},
	}
	sum, err := importer.ImportExcel(ctx, db, workbook(t, projectSheet, changed), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Inserted)
	assert.Equal(t, 3, sum.Updated)

	projects := store.NewProjectStore(db.SQL, store.DefaultOptions())
	all, err := projects.List(ctx, store.ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	tasks := store.NewTaskStore(db.SQL, projects)
	list, err := tasks.ListByProject(ctx, all[0].ID, store.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Design mockups", list[0].Name)
	assert.Equal(t, "done", list[0].Status)
	require.NotNil(t, list[0].Summary, "summary column absent, value kept")
	assert.Equal(t, "First pass", *list[0].Summary)
}

func TestImportExcelTouchesProjects(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	clock := testutil.NewClock()
	opts := store.DefaultOptions()
	opts.Now = clock.Now

	_, err := importer.ImportExcel(ctx, db, workbook(t, projectSheet, taskSheet), importer.ImportOptions{StoreOptions: opts})
	require.NoError(t, err)

	p, err := store.NewProjectStore(db.SQL, opts).GetByName(ctx, "Website")
	require.NoError(t, err)
	assert.True(t, p.UpdatedAt.After(p.CreatedAt), "task create must touch its project")
}

func TestImportExcelDryRun(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	sum, err := importer.ImportExcel(ctx, db, workbook(t, projectSheet, taskSheet), importer.ImportOptions{
		DryRun:       true,
		StoreOptions: store.DefaultOptions(),
	})
	require.NoError(t, err)
	assert.True(t, sum.DryRun)
	assert.Equal(t, 4, sum.Inserted)

	all, err := store.NewProjectStore(db.SQL, store.DefaultOptions()).List(ctx, store.ProjectFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestImportExcelTooManyErrors(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	orphans := sheet{name: "Tasks", rows: [][]string{
		{"Project", "Name", "Status", "Priority"},
		{"Nope", "a", "todo", "low"},
		{"Nope", "b", "todo", "low"},
		{"Nope", "c", "todo", "low"},
	}}
	sum, err := importer.ImportExcel(ctx, db, workbook(t, projectSheet, orphans), importer.ImportOptions{
		MaxErrors:    1,
		StoreOptions: store.DefaultOptions(),
	})
	require.ErrorIs(t, err, importer.ErrTooManyErrors)
	assert.Equal(t, 3, sum.Errors)

	all, err := store.NewProjectStore(db.SQL, store.DefaultOptions()).List(ctx, store.ProjectFilter{})
	require.NoError(t, err)
	assert.Empty(t, all, "failed import must roll back")
}

func TestImportExcelRowValidation(t *testing.T) {
	db := testutil.NewTestDB(t)

	missing := sheet{name: "Tasks", rows: [][]string{
		{"Project", "Name", "Status", "Priority"},
		{"Website", "No priority", "todo", ""},
	}}
	sum, err := importer.ImportExcel(context.Background(), db, workbook(t, projectSheet, missing), importer.ImportOptions{
		StoreOptions: store.DefaultOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Errors)
	require.Len(t, sum.Sheets[1].Samples, 1)
	assert.Equal(t, "priority is required", sum.Sheets[1].Samples[0].Message)
}

func TestImportExcelInvalidWorkbook(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	opts := importer.ImportOptions{StoreOptions: store.DefaultOptions()}

	t.Run("not a workbook", func(t *testing.T) {
		_, err := importer.ImportExcel(ctx, db, strings.NewReader("not a workbook"), opts)
		assert.ErrorIs(t, err, importer.ErrInvalidWorkbook)
	})

	t.Run("no mapped sheets", func(t *testing.T) {
		other := sheet{name: "Other", rows: [][]string{{"x"}}}
		_, err := importer.ImportExcel(ctx, db, workbook(t, other), opts)
		assert.ErrorIs(t, err, importer.ErrInvalidWorkbook)
	})

	t.Run("task sheet without project column", func(t *testing.T) {
		tasksOnly := sheet{name: "Tasks", rows: [][]string{{"Name", "Status"}, {"a", "todo"}}}
		_, err := importer.ImportExcel(ctx, db, workbook(t, tasksOnly), opts)
		assert.ErrorIs(t, err, importer.ErrInvalidWorkbook)
	})
}

func TestLoadMapping(t *testing.T) {
	t.Run("embedded default", func(t *testing.T) {
		m, err := importer.LoadMapping("")
		require.NoError(t, err)
		assert.Equal(t, "Projects", m.Projects.Sheet)
		assert.Equal(t, "Tasks", m.Tasks.Sheet)
		assert.Contains(t, m.Tasks.Aliases["name"], "Task")
	})

	t.Run("custom file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mapping.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
version: 1
projects:
  sheet: Backlog
tasks:
  sheet: Items
  aliases:
    project: [Epic]
`), 0o600))

		m, err := importer.LoadMapping(path)
		require.NoError(t, err)
		assert.Equal(t, "Backlog", m.Projects.Sheet)
		assert.Equal(t, []string{"Epic"}, m.Tasks.Aliases["project"])
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := importer.LoadMapping(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("sheet names required", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mapping.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 1\nprojects:\n  sheet: P\n"), 0o600))
		_, err := importer.LoadMapping(path)
		assert.Error(t, err)
	})
}
