package tests

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poskernel/pkg/storedb"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.sqlite3")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return path
}

func twoScriptInfo() storedb.Info {
	return storedb.Info{
		StoreName:     "acme",
		TargetVersion: 2,
		Scripts: []storedb.MigrationScript{
			{Version: 1, Name: "001_create_widgets", SQL: `CREATE TABLE widgets (id TEXT PRIMARY KEY);`},
			{Version: 2, Name: "002_add_widgets_name", SQL: `ALTER TABLE widgets ADD COLUMN name TEXT;`},
		},
	}
}

func TestRunAppliesPendingScriptsInOrder(t *testing.T) {
	path := tempDBPath(t)
	runner := storedb.NewRunner(storedb.SQLite)

	err := runner.Run(context.Background(), path, twoScriptInfo())
	require.NoError(t, err)

	db, err := storedb.Open(storedb.SQLite, path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM schema_version`))
	assert.Equal(t, 2, count)
}

// Property 7: migration idempotence — running twice leaves schema_version
// unchanged after the first successful run (spec §8).
func TestRunIsIdempotent(t *testing.T) {
	path := tempDBPath(t)
	runner := storedb.NewRunner(storedb.SQLite)
	info := twoScriptInfo()

	require.NoError(t, runner.Run(context.Background(), path, info))
	require.NoError(t, runner.Run(context.Background(), path, info))

	db, err := storedb.Open(storedb.SQLite, path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM schema_version`))
	assert.Equal(t, 2, count)
}

// Property 8: altering the body of an already-applied script produces a
// checksum-mismatch failure on the next run (spec §8).
func TestRunDetectsTampering(t *testing.T) {
	path := tempDBPath(t)
	runner := storedb.NewRunner(storedb.SQLite)
	info := twoScriptInfo()
	require.NoError(t, runner.Run(context.Background(), path, info))

	tampered := twoScriptInfo()
	tampered.Scripts[0].SQL = `CREATE TABLE widgets (id TEXT PRIMARY KEY, extra TEXT);`

	err := runner.Run(context.Background(), path, tampered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tampering")
}

func TestRunFailsOnScriptGap(t *testing.T) {
	path := tempDBPath(t)
	runner := storedb.NewRunner(storedb.SQLite)
	info := storedb.Info{
		StoreName: "acme",
		Scripts: []storedb.MigrationScript{
			{Version: 1, Name: "001", SQL: `CREATE TABLE a (id TEXT);`},
			{Version: 3, Name: "003", SQL: `CREATE TABLE b (id TEXT);`},
		},
	}

	err := runner.Run(context.Background(), path, info)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gap")
}

func TestRunFailsWhenAppliedVersionExceedsCode(t *testing.T) {
	path := tempDBPath(t)
	runner := storedb.NewRunner(storedb.SQLite)
	require.NoError(t, runner.Run(context.Background(), path, twoScriptInfo()))

	outdated := storedb.Info{
		StoreName: "acme",
		Scripts: []storedb.MigrationScript{
			{Version: 1, Name: "001_create_widgets", SQL: twoScriptInfo().Scripts[0].SQL},
		},
	}

	err := runner.Run(context.Background(), path, outdated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outdated")
}

func TestRunFailsWhenDatabaseMissing(t *testing.T) {
	runner := storedb.NewRunner(storedb.SQLite)

	err := runner.Run(context.Background(), filepath.Join(t.TempDir(), "missing.sqlite3"), twoScriptInfo())

	require.Error(t, err)
}

func TestRunCreatesBackupBeforeFirstPendingScript(t *testing.T) {
	path := tempDBPath(t)
	dir := filepath.Dir(path)
	runner := storedb.NewRunner(storedb.SQLite)

	require.NoError(t, runner.Run(context.Background(), path, twoScriptInfo()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	prefix := filepath.Base(path) + ".bak-"
	var sawBackup bool
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			sawBackup = true
		}
	}
	assert.True(t, sawBackup, "expected a .bak-<timestamp> file alongside the database")
}
