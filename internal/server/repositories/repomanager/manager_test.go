package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/claims"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/ledger"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/tokens"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsDialect(t *testing.T) {
	m, err := New(DriverPostgres)
	require.NoError(t, err)
	require.IsType(t, &PostgresRepositoryManager{}, m)
	require.Equal(t, "pgx", m.Driver())

	m, err = New(DriverSQLite)
	require.NoError(t, err)
	require.IsType(t, &SQLiteRepositoryManager{}, m)

	_, err = New("mysql")
	require.ErrorContains(t, err, `unsupported database driver "mysql"`)
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pg := NewPostgresRepositoryManager()
	require.IsType(t, &tokens.PostgresRepository{}, pg.Tokens(db))
	require.IsType(t, &claims.PostgresRepository{}, pg.Claims(db))
	require.IsType(t, &ledger.PostgresRepository{}, pg.Ledger(db))

	lite := NewSQLiteRepositoryManager()
	require.IsType(t, &tokens.SQLiteRepository{}, lite.Tokens(db))
	require.IsType(t, &claims.SQLiteRepository{}, lite.Claims(db))
	require.IsType(t, &ledger.SQLiteRepository{}, lite.Ledger(db))
}

func TestRunMigrations_UsesDialectDir(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var gotDialect goose.Dialect
	var gotFiles []string
	orig := gooseUp
	gooseUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
		gotDialect = dialect
		gotFiles, _ = fs.Glob(fsys, "*.sql")
		return nil
	}
	defer func() { gooseUp = orig }()

	require.NoError(t, NewPostgresRepositoryManager().RunMigrations(context.Background(), db))
	require.Equal(t, goose.DialectPostgres, gotDialect)
	require.Contains(t, gotFiles, "00001_init.sql")

	require.NoError(t, NewSQLiteRepositoryManager().RunMigrations(context.Background(), db))
	require.Equal(t, goose.DialectSQLite3, gotDialect)
}

func TestRunMigrations_Error(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	gooseUp = func(context.Context, goose.Dialect, *sql.DB, fs.FS) error { return errors.New("boom") }
	defer func() { gooseUp = orig }()

	err = NewPostgresRepositoryManager().RunMigrations(context.Background(), db)
	require.ErrorContains(t, err, "migrate: boom")
}

func TestOpen_SQLiteMigratesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "nested", "dir", "classmint.db")

	db, m, err := Open(ctx, DriverSQLite, dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, m.RunMigrations(ctx, db))
	require.NoError(t, m.RunMigrations(ctx, db))

	n, err := m.Ledger(db).Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), "oracle", "x")
	require.Error(t, err)
}

func TestSQLitePath(t *testing.T) {
	require.Equal(t, "/tmp/a.db", sqlitePath("file:/tmp/a.db?_pragma=foreign_keys(1)"))
	require.Equal(t, "a.db", sqlitePath("a.db"))
}
