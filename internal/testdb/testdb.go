// Package testdb opens throwaway in-memory SQLite databases for tests.
package testdb

import (
	"context"
	"testing"

	"github.com/murmurlabs/murmur/infrastructure/persistence"
	"github.com/murmurlabs/murmur/internal/database"
)

// New returns a migrated in-memory SQLite database that closes itself when
// the test ends.
func New(t *testing.T) database.Database {
	t.Helper()

	db, err := database.NewDatabase(context.Background(), "sqlite:///:memory:")
	if err != nil {
		t.Fatalf("testdb.New: open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := persistence.AutoMigrate(db); err != nil {
		t.Fatalf("testdb.New: auto migrate: %v", err)
	}
	return db
}
