package internal

import (
	"net/http"
	"strings"

	"project-tracker-api/internal/store"
)

// listParams holds the query parameters shared by the list endpoints
type listParams struct {
	q        string
	status   string
	priority string
	sort     string
}

// parseListParams reads q, status, priority and sort from the request.
// Unknown sort keys are dropped later by the store.
func parseListParams(r *http.Request) listParams {
	values := r.URL.Query()
	return listParams{
		q:        strings.TrimSpace(values.Get("q")),
		status:   strings.TrimSpace(values.Get("status")),
		priority: strings.TrimSpace(values.Get("priority")),
		sort:     strings.TrimSpace(values.Get("sort")),
	}
}

func (p listParams) projectFilter() store.ProjectFilter {
	return store.ProjectFilter{Query: p.q, Status: p.status, Sort: p.sort}
}

func (p listParams) taskFilter() store.TaskFilter {
	return store.TaskFilter{Status: p.status, Priority: p.priority, Sort: p.sort}
}
