package tokens

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/classmint/internal/dbx"
	"github.com/dmitrijs2005/classmint/internal/server/models"
)

// SQLiteRepository implements Repository for the embedded SQLite store.
// SQLite serializes writers, so FindByIDForUpdate needs no row lock.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, t *models.Token) (*models.Token, error) {
	query := `
		INSERT INTO tokens (token, amount, one_time, expires_at, issued_by, status, created_at, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		t.Token, t.Amount, t.OneTime, t.ExpiresAt.Unix(), t.IssuedBy, string(models.TokenActive), t.CreatedAt.Unix(), t.Description,
	).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.Status = models.TokenActive
	return t, nil
}

func (r *SQLiteRepository) FindByToken(ctx context.Context, token string) (*models.Token, error) {
	return scanToken(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM tokens WHERE token = ?`, token))
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (*models.Token, error) {
	return scanToken(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM tokens WHERE id = ?`, id))
}

func (r *SQLiteRepository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Token, error) {
	return r.FindByID(ctx, id)
}

func (r *SQLiteRepository) MarkUsed(ctx context.Context, id int64) error {
	return checkMarkUsed(r.db.ExecContext(ctx, `UPDATE tokens SET status = 'USED' WHERE id = ? AND status = 'ACTIVE'`, id))
}

func (r *SQLiteRepository) Void(ctx context.Context, id int64) (bool, error) {
	return checkVoid(r.db.ExecContext(ctx, `UPDATE tokens SET status = 'VOID' WHERE id = ? AND status = 'ACTIVE'`, id))
}

func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]*models.Token, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM tokens ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select tokens: %w", err)
	}
	return scanTokens(rows)
}

func (r *SQLiteRepository) Stats(ctx context.Context) (*models.TokenStats, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'ACTIVE' THEN amount ELSE 0 END), 0)
		FROM tokens
	`
	var s models.TokenStats
	if err := r.db.QueryRowContext(ctx, query).Scan(&s.TotalTokens, &s.ActiveAmount); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &s, nil
}
