package repomanager

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/classmint/internal/dbx"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/claims"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/ledger"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/tokens"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Driver() string { return DriverSQLite }

func (m *SQLiteRepositoryManager) Tokens(db dbx.DBTX) tokens.Repository {
	return tokens.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Claims(db dbx.DBTX) claims.Repository {
	return claims.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Ledger(db dbx.DBTX) ledger.Repository {
	return ledger.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, goose.DialectSQLite3, "sqlite")
}

// sqlitePath strips the "file:" scheme and query options from a DSN.
func sqlitePath(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn = dsn[:i]
	}
	return dsn
}
