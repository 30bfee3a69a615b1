// Package repotest opens migrated throwaway databases for repository and
// service tests.
package repotest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/classmint/internal/server/migrations"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// SQLiteDSN returns a DSN for a fresh database file under t.TempDir().
func SQLiteDSN(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "classmint.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// OpenSQLite opens a fully migrated SQLite database that is closed when the
// test ends.
func OpenSQLite(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", SQLiteDSN(t))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	fsys, err := migrations.Dir("sqlite")
	require.NoError(t, err)
	p, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	require.NoError(t, err)
	_, err = p.Up(context.Background())
	require.NoError(t, err)

	return db
}

// DropLedgerGuards removes the append-only triggers so tests can tamper
// with stored blocks.
func DropLedgerGuards(t testing.TB, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`DROP TRIGGER ledger_no_update`)
	require.NoError(t, err)
	_, err = db.Exec(`DROP TRIGGER ledger_no_delete`)
	require.NoError(t, err)
}
