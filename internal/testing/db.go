// Package testing provides helpers shared by package tests.
package testing

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/aristath/papertrader/internal/database"
)

// NewTestDB opens a file-backed database in the test's temp directory and
// applies the named schema. The database is closed when the test ends.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), fmt.Sprintf("%s.db", name)),
		Profile: database.ProfileLedger,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("failed to open test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database %s: %v", name, err)
	}
	return db
}
