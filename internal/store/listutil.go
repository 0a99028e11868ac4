package store

import (
	"strings"

	"github.com/lib/pq"
)

// buildOrderBy builds a safe ORDER BY clause using a whitelist of allowed keys.
// allowed maps incoming sort keys (e.g., "name") to actual column identifiers.
// Input sort is comma-separated; prefix with '-' for DESC.
// Returns a string starting with " ORDER BY ...". Defaults to " ORDER BY "id" ASC".
func buildOrderBy(sortParam string, allowed map[string]string) string {
	fallback := " ORDER BY " + pq.QuoteIdentifier("id") + " ASC"

	parts := strings.Split(sortParam, ",")
	clauses := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, raw := range parts {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		dir := " ASC"
		if strings.HasPrefix(s, "-") {
			dir = " DESC"
			s = strings.TrimPrefix(s, "-")
		}
		col, ok := allowed[s]
		if !ok || seen[col] {
			continue
		}
		seen[col] = true
		clauses = append(clauses, pq.QuoteIdentifier(col)+dir)
	}
	if len(clauses) == 0 {
		return fallback
	}
	// id breaks ties so listings stay in insertion order within equal keys.
	if !seen["id"] {
		clauses = append(clauses, pq.QuoteIdentifier("id")+" ASC")
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}
