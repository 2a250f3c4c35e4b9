// Package testutil provides a shared test helper: an in-memory database
// with the schema applied.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/onnwee/twt/db"
)

// SetupTestDB opens an in-memory SQLite database and runs migrations.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Connect(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(context.Background(), database); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}
