// Package testing provides shared test helpers for the cartera project.
package testing

import (
	"fmt"
	"os"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/ivanmoreno/cartera/internal/database"
)

// profiles maps database names to their connection profiles, mirroring the
// production wiring in internal/di.
var profiles = map[string]database.Profile{
	"ledger": database.ProfileLedger,
	"cache":  database.ProfileCache,
}

// NewTestDB creates a file-backed SQLite database for one test, migrated to
// the named schema (ledger, portfolio, market, history, cache). Each call
// returns an isolated database and a cleanup function.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	profile, ok := profiles[name]
	if !ok {
		profile = database.ProfileStandard
	}

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database %s: %v", name, err)
		}
	}
}
