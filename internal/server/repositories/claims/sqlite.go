package claims

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/classmint/internal/dbx"
	"github.com/dmitrijs2005/classmint/internal/server/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, c *models.Claim) (*models.Claim, error) {
	query := `INSERT INTO claims (token_id, claimer, amount, created_at) VALUES (?, ?, ?, ?) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, c.TokenID, c.Claimer, c.Amount, c.CreatedAt.Unix()).Scan(&c.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ExistsForToken(ctx context.Context, tokenID int64) (bool, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM claims WHERE token_id = ?`, tokenID).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Totals(ctx context.Context) (*models.ClaimTotals, error) {
	var t models.ClaimTotals
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM claims`).Scan(&t.Count, &t.Amount); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &t, nil
}
