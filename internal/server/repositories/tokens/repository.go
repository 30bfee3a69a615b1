// Package tokens declares and implements the registry storage for issued
// reward tokens.
package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/server/models"
)

// Repository persists token records. Status updates only ever move a row
// out of ACTIVE.
type Repository interface {
	// Create inserts t as ACTIVE and fills in its ID.
	Create(ctx context.Context, t *models.Token) (*models.Token, error)

	// FindByToken looks a record up by its exact signed string.
	FindByToken(ctx context.Context, token string) (*models.Token, error)

	FindByID(ctx context.Context, id int64) (*models.Token, error)

	// FindByIDForUpdate is FindByID that also locks the row for the
	// surrounding transaction where the database supports it.
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Token, error)

	// MarkUsed moves an ACTIVE token to USED. It returns
	// common.ErrTokenInactive when the row was not ACTIVE.
	MarkUsed(ctx context.Context, id int64) error

	// Void moves an ACTIVE token to VOID and reports whether it did.
	Void(ctx context.Context, id int64) (bool, error)

	// ListRecent returns up to limit tokens, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.Token, error)

	Stats(ctx context.Context) (*models.TokenStats, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const columns = `id, token, amount, one_time, expires_at, issued_by, status, created_at, description`

func scanToken(row rowScanner) (*models.Token, error) {
	var (
		t                    models.Token
		status               string
		expiresAt, createdAt int64
	)
	err := row.Scan(&t.ID, &t.Token, &t.Amount, &t.OneTime, &expiresAt, &t.IssuedBy, &status, &createdAt, &t.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.Status = models.TokenStatus(status)
	t.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &t, nil
}

func scanTokens(rows *sql.Rows) ([]*models.Token, error) {
	defer rows.Close()
	var result []*models.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func checkMarkUsed(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrTokenInactive
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func checkVoid(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}
