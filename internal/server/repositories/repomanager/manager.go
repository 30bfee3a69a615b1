// Package repomanager binds the repositories to a database dialect and runs
// the schema migrations for it.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/classmint/internal/dbx"
	"github.com/dmitrijs2005/classmint/internal/filex"
	"github.com/dmitrijs2005/classmint/internal/server/migrations"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/claims"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/ledger"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/tokens"
	"github.com/pressly/goose/v3"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

type RepositoryManager interface {
	// Driver is the database/sql driver name the manager targets.
	Driver() string
	RunMigrations(ctx context.Context, db *sql.DB) error
	Tokens(db dbx.DBTX) tokens.Repository
	Claims(db dbx.DBTX) claims.Repository
	Ledger(db dbx.DBTX) ledger.Repository
}

// gooseUp applies every pending migration in fsys. Tests replace it.
var gooseUp = func(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) error {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

func runMigrations(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string) error {
	fsys, err := migrations.Dir(dir)
	if err != nil {
		return fmt.Errorf("migrations %s: %w", dir, err)
	}
	if err := gooseUp(ctx, dialect, db, fsys); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// New returns the manager for a driver name.
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgresRepositoryManager(), nil
	case DriverSQLite:
		return NewSQLiteRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects to the database, checks it is reachable and returns it with
// the matching manager. SQLite gets a single connection and its parent
// directory is created when missing.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, RepositoryManager, error) {
	m, err := New(driver)
	if err != nil {
		return nil, nil, err
	}

	if driver == DriverSQLite {
		if _, err := filex.EnsureParentDir(sqlitePath(dsn)); err != nil {
			return nil, nil, err
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}
	return db, m, nil
}
