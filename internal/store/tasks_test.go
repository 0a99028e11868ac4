package store_test

import (
	"context"
	"testing"

	"project-tracker-api/internal/models"
	"project-tracker-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createProject(t *testing.T, projects *store.ProjectStore, name string) *models.Project {
	t.Helper()
	p, err := projects.Create(context.Background(), models.CreateProjectRequest{
		Name: name, Description: strPtr("desc"), Status: strPtr("planned"),
	})
	require.NoError(t, err)
	return p
}

func designMockups() models.CreateTaskRequest {
	return models.CreateTaskRequest{Name: "Design mockups", Summary: strPtr(""), Status: "todo", Priority: "high"}
}

func TestTaskStore_CreateTouchesProject(t *testing.T) {
	projects, tasks, _ := newStores(t, store.DefaultOptions())
	ctx := context.Background()
	p := createProject(t, projects, "Website")

	task, err := tasks.Create(ctx, p.ID, designMockups())
	require.NoError(t, err)
	assert.Equal(t, int64(1), task.ID)
	assert.Equal(t, p.ID, task.ProjectID)
	require.NotNil(t, task.Summary)
	assert.Equal(t, "", *task.Summary)

	after, err := projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(p.UpdatedAt), "updated_at %v should be after %v", after.UpdatedAt, p.UpdatedAt)
	assert.True(t, after.CreatedAt.Equal(p.CreatedAt))
}

func TestTaskStore_CreateUnknownProject(t *testing.T) {
	_, tasks, _ := newStores(t, store.DefaultOptions())
	ctx := context.Background()

	_, err := tasks.Create(ctx, 999, designMockups())
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := tasks.ListByProject(ctx, 999, store.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTaskStore_CreateValidation(t *testing.T) {
	projects, tasks, _ := newStores(t, store.DefaultOptions())
	p := createProject(t, projects, "Website")

	tests := []struct {
		name  string
		in    models.CreateTaskRequest
		field string
	}{
		{"missing name", models.CreateTaskRequest{Status: "todo", Priority: "high"}, "name"},
		{"missing status", models.CreateTaskRequest{Name: "n", Priority: "high"}, "status"},
		{"missing priority", models.CreateTaskRequest{Name: "n", Status: "todo"}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tasks.Create(context.Background(), p.ID, tt.in)
			var verr *store.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	// Validation comes before the project lookup.
	_, err := tasks.Create(context.Background(), 999, models.CreateTaskRequest{})
	var verr *store.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTaskStore_Get(t *testing.T) {
	projects, tasks, _ := newStores(t, store.DefaultOptions())
	ctx := context.Background()
	p := createProject(t, projects, "Website")
	other := createProject(t, projects, "Other")

	created, err := tasks.Create(ctx, p.ID, designMockups())
	require.NoError(t, err)

	got, err := tasks.Get(ctx, p.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)

	_, err = tasks.Get(ctx, other.ID, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTaskStore_UpdatePartial(t *testing.T) {
	projects, tasks, _ := newStores(t, store.DefaultOptions())
	ctx := context.Background()
	p := createProject(t, projects, "Website")

	created, err := tasks.Create(ctx, p.ID, designMockups())
	require.NoError(t, err)
	before, err := projects.GetByID(ctx, p.ID)
	require.NoError(t, err)

	got, err := tasks.Update(ctx, p.ID, created.ID, models.UpdateTaskRequest{Status: models.Present("doing")})
	require.NoError(t, err)
	assert.Equal(t, "doing", got.Status)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Priority, got.Priority)
	assert.Equal(t, *created.Summary, *got.Summary)

	after, err := projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestTaskStore_UpdateNull(t *testing.T) {
	projects, tasks, _ := newStores(t, store.DefaultOptions())
	ctx := context.Background()
	p := createProject(t, projects, "Website")

	created, err := tasks.Create(ctx, p.ID, models.CreateTaskRequest{
		Name: "Design mockups", Summary: strPtr("s"), Status: "todo", Priority: "high",
	})
	require.NoError(t, err)

	got, err := tasks.Update(ctx, p.ID, created.ID, models.UpdateTaskRequest{Summary: models.Null()})
	require.NoError(t, err)
	assert.Nil(t, got.Summary)
	assert.Equal(t, "todo", got.Status)

	for _, tt := range []struct {
		field string
		in    models.UpdateTaskRequest
	}{
		{"name", models.UpdateTaskRequest{Name: models.Null()}},
		{"status", models.UpdateTaskRequest{Status: models.Null()}},
		{"priority", models.UpdateTaskRequest{Priority: models.Null()}},
	} {
		_, err := tasks.Update(ctx, p.ID, created.ID, tt.in)
		var verr *store.ValidationError
		require.ErrorAs(t, err, &verr, tt.field)
		assert.Equal(t, tt.field, verr.Field)
	}

	stored, err := tasks.Get(ctx, p.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Design mockups", stored.Name)
	assert.Equal(t, "high", stored.Priority)
}

func TestTaskStore_UpdateWithoutChangesStillTouches(t *testing.T) {
	projects, tasks, _ := newStores(t, store.DefaultOptions())
	ctx := context.Background()
	p := createProject(t, projects, "Website")

	created, err := tasks.Create(ctx, p.ID, designMockups())
	require.NoError(t, err)
	before, err := projects.GetByID(ctx, p.ID)
	require.NoError(t, err)

	got, err := tasks.Update(ctx, p.ID, created.ID, models.UpdateTaskRequest{})
	require.NoError(t, err)
	assert.Equal(t, *created, *got)

	after, err := projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestTaskStore_UpdateNotFound(t *testing.T) {
	projects, tasks, _ := newStores(t, store.DefaultOptions())
	ctx := context.Background()
	p := createProject(t, projects, "Website")
	other := createProject(t, projects, "Other")

	created, err := tasks.Create(ctx, p.ID, designMockups())
	require.NoError(t, err)

	tests := []struct {
		name      string
		projectID int64
		taskID    int64
		in        models.UpdateTaskRequest
	}{
		{"missing project", 999, created.ID, models.UpdateTaskRequest{Status: models.Present("done")}},
		{"missing task", p.ID, 999, models.UpdateTaskRequest{Status: models.Present("done")}},
		{"missing task, empty body", p.ID, 999, models.UpdateTaskRequest{}},
		{"task of another project", other.ID, created.ID, models.UpdateTaskRequest{Status: models.Present("done")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tasks.Update(ctx, tt.projectID, tt.taskID, tt.in)
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}

	got, err := tasks.Get(ctx, p.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "todo", got.Status)
}

func TestTaskStore_DeleteDoesNotTouchByDefault(t *testing.T) {
	projects, tasks, _ := newStores(t, store.DefaultOptions())
	ctx := context.Background()
	p := createProject(t, projects, "Website")

	created, err := tasks.Create(ctx, p.ID, designMockups())
	require.NoError(t, err)
	before, err := projects.GetByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, tasks.Delete(ctx, p.ID, created.ID))

	after, err := projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.Equal(before.UpdatedAt))

	_, err = tasks.Get(ctx, p.ID, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, tasks.Delete(ctx, p.ID, created.ID), store.ErrNotFound)
}

func TestTaskStore_DeleteTouchesWhenEnabled(t *testing.T) {
	opts := store.DefaultOptions()
	opts.TouchOnTaskDelete = true
	projects, tasks, _ := newStores(t, opts)
	ctx := context.Background()
	p := createProject(t, projects, "Website")

	created, err := tasks.Create(ctx, p.ID, designMockups())
	require.NoError(t, err)
	before, err := projects.GetByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, tasks.Delete(ctx, p.ID, created.ID))

	after, err := projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestTaskStore_ListByProject(t *testing.T) {
	projects, tasks, _ := newStores(t, store.DefaultOptions())
	ctx := context.Background()
	p := createProject(t, projects, "Website")
	other := createProject(t, projects, "Other")

	for _, in := range []models.CreateTaskRequest{
		{Name: "Design mockups", Status: "todo", Priority: "high"},
		{Name: "Write copy", Status: "doing", Priority: "low"},
		{Name: "Buy domain", Status: "todo", Priority: "low"},
	} {
		_, err := tasks.Create(ctx, p.ID, in)
		require.NoError(t, err)
	}
	_, err := tasks.Create(ctx, other.ID, designMockups())
	require.NoError(t, err)

	all, err := tasks.ListByProject(ctx, p.ID, store.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, task := range all {
		assert.Equal(t, p.ID, task.ProjectID)
	}

	todo, err := tasks.ListByProject(ctx, p.ID, store.TaskFilter{Status: "todo", Sort: "name"})
	require.NoError(t, err)
	require.Len(t, todo, 2)
	assert.Equal(t, "Buy domain", todo[0].Name)

	low, err := tasks.ListByProject(ctx, p.ID, store.TaskFilter{Priority: "low"})
	require.NoError(t, err)
	assert.Len(t, low, 2)
}
