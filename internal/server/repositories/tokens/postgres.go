package tokens

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/classmint/internal/dbx"
	"github.com/dmitrijs2005/classmint/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Token) (*models.Token, error) {
	query := `
		INSERT INTO tokens (token, amount, one_time, expires_at, issued_by, status, created_at, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
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

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.Token, error) {
	query := `SELECT ` + columns + ` FROM tokens WHERE token = $1`
	return scanToken(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.Token, error) {
	query := `SELECT ` + columns + ` FROM tokens WHERE id = $1`
	return scanToken(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Token, error) {
	query := `SELECT ` + columns + ` FROM tokens WHERE id = $1 FOR UPDATE`
	return scanToken(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id int64) error {
	query := `UPDATE tokens SET status = 'USED' WHERE id = $1 AND status = 'ACTIVE'`
	return checkMarkUsed(r.db.ExecContext(ctx, query, id))
}

func (r *PostgresRepository) Void(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE tokens SET status = 'VOID' WHERE id = $1 AND status = 'ACTIVE'`
	return checkVoid(r.db.ExecContext(ctx, query, id))
}

func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*models.Token, error) {
	query := `SELECT ` + columns + ` FROM tokens ORDER BY id DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select tokens: %w", err)
	}
	return scanTokens(rows)
}

func (r *PostgresRepository) Stats(ctx context.Context) (*models.TokenStats, error) {
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
