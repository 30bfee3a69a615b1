package claims

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/classmint/internal/dbx"
	"github.com/dmitrijs2005/classmint/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Claim) (*models.Claim, error) {
	query := `
		INSERT INTO claims (token_id, claimer, amount, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query, c.TokenID, c.Claimer, c.Amount, c.CreatedAt.Unix()).Scan(&c.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ExistsForToken(ctx context.Context, tokenID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM claims WHERE token_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, tokenID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Totals(ctx context.Context) (*models.ClaimTotals, error) {
	var t models.ClaimTotals
	query := `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM claims`
	if err := r.db.QueryRowContext(ctx, query).Scan(&t.Count, &t.Amount); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &t, nil
}
