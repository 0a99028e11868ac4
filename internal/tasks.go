package internal

import (
	"fmt"
	"net/http"

	"project-tracker-api/internal/models"
)

// listTasks answers [] for a project with no tasks, including one that does not exist.
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusOK, []models.Task{})
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	tasks, err := s.Tasks.ListByProject(ctx, projectID, parseListParams(r).taskFilter())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// taskPath resolves both path ids; it writes the 404 itself on failure.
func taskPath(w http.ResponseWriter, r *http.Request) (projectID, taskID int64, ok bool) {
	if projectID, ok = pathID(r, "id"); ok {
		taskID, ok = pathID(r, "taskID")
	}
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
	}
	return projectID, taskID, ok
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	projectID, taskID, ok := taskPath(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	t, err := s.Tasks.Get(ctx, projectID, taskID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
		return
	}
	var in models.CreateTaskRequest
	if !s.decodeBody(w, r, &in) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	t, err := s.Tasks.Create(ctx, projectID, in)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.Metrics.RecordMutation("task", "create")
	w.Header().Set("Location", fmt.Sprintf("/projects/%d/tasks/%d", projectID, t.ID))
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	projectID, taskID, ok := taskPath(w, r)
	if !ok {
		return
	}
	var in models.UpdateTaskRequest
	if !s.decodeBody(w, r, &in) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	t, err := s.Tasks.Update(ctx, projectID, taskID, in)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.Metrics.RecordMutation("task", "update")
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	projectID, taskID, ok := taskPath(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.Tasks.Delete(ctx, projectID, taskID); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.Metrics.RecordMutation("task", "delete")
	w.WriteHeader(http.StatusNoContent)
}
