package ledger

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

// LockChain does nothing: SQLite admits one writer at a time.
func (r *SQLiteRepository) LockChain(ctx context.Context) error {
	return nil
}

func (r *SQLiteRepository) Last(ctx context.Context) (*models.Block, error) {
	return scanBlock(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM ledger ORDER BY id DESC LIMIT 1`))
}

func (r *SQLiteRepository) Create(ctx context.Context, b *models.Block) error {
	query := `INSERT INTO ledger (id, tx_id, prev_hash, record_hash, created_at, block_payload) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, b.ID, nullable(b.TxID), b.PrevHash, b.RecordHash, b.CreatedAt, string(b.Payload))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.Block, error) {
	return scanBlock(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM ledger WHERE id = ?`, id))
}

func (r *SQLiteRepository) ScanAll(ctx context.Context) ([]models.Block, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM ledger ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select blocks: %w", err)
	}
	return scanBlocks(rows)
}

func (r *SQLiteRepository) ScanAfter(ctx context.Context, afterID int64) ([]models.Block, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM ledger WHERE id > ? ORDER BY id`, afterID)
	if err != nil {
		return nil, fmt.Errorf("failed to select blocks: %w", err)
	}
	return scanBlocks(rows)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]models.BlockSummary, error) {
	query := `
		SELECT l.id, l.tx_id, l.record_hash, l.created_at, COALESCE(c.claimer, ''), COALESCE(c.amount, 0)
		FROM ledger l
		LEFT JOIN claims c ON c.id = l.tx_id
		ORDER BY l.id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select blocks: %w", err)
	}
	return scanSummaries(rows)
}
