// Package ledger persists the hash-linked redemption blocks. The table is
// append-only; there is no update or delete here and the schema refuses both.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/server/models"
)

type Repository interface {
	// LockChain serializes appenders for the rest of the current
	// transaction. It is a no-op where the database already serializes
	// writers.
	LockChain(ctx context.Context) error

	// Last returns the chain tip or common.ErrorNotFound for an empty chain.
	Last(ctx context.Context) (*models.Block, error)

	// Create inserts b with the id chosen by the caller.
	Create(ctx context.Context, b *models.Block) error

	Get(ctx context.Context, id int64) (*models.Block, error)

	// ScanAll returns every block in ascending id order.
	ScanAll(ctx context.Context) ([]models.Block, error)

	// ScanAfter returns the blocks with id greater than afterID, ascending.
	ScanAfter(ctx context.Context, afterID int64) ([]models.Block, error)

	Count(ctx context.Context) (int64, error)

	// Recent returns up to limit newest blocks joined with their claims.
	Recent(ctx context.Context, limit int) ([]models.BlockSummary, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const columns = `id, tx_id, prev_hash, record_hash, created_at, block_payload`

func scanBlock(row rowScanner) (*models.Block, error) {
	var (
		b    models.Block
		txID sql.NullInt64
	)
	if err := row.Scan(&b.ID, &txID, &b.PrevHash, &b.RecordHash, &b.CreatedAt, &b.Payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if txID.Valid {
		b.TxID = &txID.Int64
	}
	return &b, nil
}

func scanBlocks(rows *sql.Rows) ([]models.Block, error) {
	defer rows.Close()
	var result []models.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanSummaries(rows *sql.Rows) ([]models.BlockSummary, error) {
	defer rows.Close()
	var result []models.BlockSummary
	for rows.Next() {
		var (
			s    models.BlockSummary
			txID sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &txID, &s.RecordHash, &s.CreatedAt, &s.Claimer, &s.Amount); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if txID.Valid {
			s.TxID = &txID.Int64
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullable(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
