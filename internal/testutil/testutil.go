// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/vault"
)

// Layout is the standard directory layout tests run against.
var Layout = vault.Layout{
	TasksDir:    "tasks",
	ProjectsDir: "projects",
	AreasDir:    "areas",
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "dagaz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault with the standard directory layout.
func TestVault(t *testing.T) (string, vault.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	for _, dir := range []string{
		Layout.TasksDir,
		filepath.Join(Layout.TasksDir, "archive"),
		Layout.ProjectsDir,
		Layout.AreasDir,
	} {
		if err := os.MkdirAll(filepath.Join(vaultDir, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	store, err := vault.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}
