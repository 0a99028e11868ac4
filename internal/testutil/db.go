package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"project-tracker-api/internal/storage"

	"github.com/lib/pq"
)

// NewTestDB opens a migrated test database. TEST_DATABASE_URL selects a
// PostgreSQL server; otherwise a private in-memory SQLite database is used.
func NewTestDB(t *testing.T) *storage.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		url = "sqlite://:memory:"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := storage.Open(ctx, url)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})

	if _, err := storage.Migrate(ctx, db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	ResetSchema(t, db)

	return db
}

// ResetSchema empties the domain tables. On PostgreSQL the id sequences are
// restarted as well so ids start from 1 again.
func ResetSchema(t *testing.T, db *storage.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tables := []string{"tasks", "projects"}
	for _, table := range tables {
		var stmt string
		switch db.Dialect {
		case storage.Postgres:
			stmt = "TRUNCATE " + pq.QuoteIdentifier(table) + " RESTART IDENTITY"
		default:
			stmt = "DELETE FROM " + pq.QuoteIdentifier(table)
		}
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("Failed to reset %s: %v", table, err)
		}
	}
	if db.Dialect == storage.SQLite {
		if _, err := db.SQL.ExecContext(ctx, "DELETE FROM sqlite_sequence"); err != nil {
			t.Fatalf("Failed to reset sqlite_sequence: %v", err)
		}
	}
}

// RequireIntegration skips the test unless INTEGRATION=1
func RequireIntegration(t *testing.T) {
	if os.Getenv("INTEGRATION") != "1" {
		t.Skip("Skipping integration test. Set INTEGRATION=1 to run.")
	}
}

// Clock is a manual clock for store options; each call to Now advances it by Step.
type Clock struct {
	T    time.Time
	Step time.Duration
}

func NewClock() *Clock {
	return &Clock{T: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), Step: time.Second}
}

func (c *Clock) Now() time.Time {
	now := c.T
	c.T = c.T.Add(c.Step)
	return now
}
