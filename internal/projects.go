package internal

import (
	"fmt"
	"net/http"

	"project-tracker-api/internal/models"
)

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	projects, err := s.Projects.List(ctx, parseListParams(r).projectFilter())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	p, err := s.Projects.GetByID(ctx, id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var in models.CreateProjectRequest
	if !s.decodeBody(w, r, &in) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	p, err := s.Projects.Create(ctx, in)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.Metrics.RecordMutation("project", "create")
	w.Header().Set("Location", fmt.Sprintf("/projects/%d", p.ID))
	writeJSON(w, http.StatusOK, p)
}

// updateProject serves both PUT and PATCH; only fields present in the body change.
func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
		return
	}
	var in models.UpdateProjectRequest
	if !s.decodeBody(w, r, &in) {
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	p, err := s.Projects.Update(ctx, id, in)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.Metrics.RecordMutation("project", "update")
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
		return
	}
	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.Projects.Delete(ctx, id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.Metrics.RecordMutation("project", "delete")
	w.WriteHeader(http.StatusNoContent)
}
