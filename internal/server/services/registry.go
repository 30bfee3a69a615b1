// Package services holds the reward core: the token registry, the ledger
// store and verifier, the claim processor and the RewardService facade the
// transport calls into.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/dbx"
	"github.com/dmitrijs2005/classmint/internal/server/models"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/tokens"
)

// TokenRegistry keeps the status of issued tokens. Its records, not the
// signed payloads, are authoritative at redemption.
type TokenRegistry struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewTokenRegistry(db *sql.DB, m repomanager.RepositoryManager, now func() time.Time) *TokenRegistry {
	if now == nil {
		now = time.Now
	}
	return &TokenRegistry{db: db, repomanager: m, now: now}
}

func (r *TokenRegistry) repo(db dbx.DBTX) tokens.Repository {
	return r.repomanager.Tokens(db)
}

// Issue stores token, the signed form of p, as a new ACTIVE record.
func (r *TokenRegistry) Issue(ctx context.Context, token string, p models.TokenPayload, issuer string) (*models.Token, error) {
	now := r.now()
	if p.Amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	if p.ExpiresAt <= now.Unix() {
		return nil, common.ErrInvalidExpiry
	}

	t, err := r.repo(r.db).Create(ctx, &models.Token{
		Token:       token,
		Amount:      p.Amount,
		OneTime:     p.OneTime,
		ExpiresAt:   time.Unix(p.ExpiresAt, 0).UTC(),
		IssuedBy:    issuer,
		CreatedAt:   now.UTC().Truncate(time.Second),
		Description: p.Description,
	})
	if err != nil {
		return nil, common.StorageError("issue token", err)
	}
	return t, nil
}

// Lookup finds a record by its exact token string.
func (r *TokenRegistry) Lookup(ctx context.Context, token string) (*models.Token, error) {
	return lookup(r.repo(r.db).FindByToken(ctx, token))
}

func (r *TokenRegistry) LookupByID(ctx context.Context, id int64) (*models.Token, error) {
	return lookup(r.repo(r.db).FindByID(ctx, id))
}

func lookup(t *models.Token, err error) (*models.Token, error) {
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrUnknownToken
	}
	if err != nil {
		return nil, common.StorageError("lookup token", err)
	}
	return t, nil
}

// MarkUsed moves an ACTIVE token to USED and fails with
// common.ErrTokenInactive otherwise.
func (r *TokenRegistry) MarkUsed(ctx context.Context, id int64) error {
	return r.markUsed(ctx, r.db, id)
}

func (r *TokenRegistry) markUsed(ctx context.Context, db dbx.DBTX, id int64) error {
	err := r.repo(db).MarkUsed(ctx, id)
	if err != nil && !errors.Is(err, common.ErrTokenInactive) {
		return common.StorageError("mark used", err)
	}
	return err
}

// Void moves an ACTIVE token to VOID. For any other status, or an unknown
// id, it does nothing. The result reports whether a row changed.
func (r *TokenRegistry) Void(ctx context.Context, id int64) (bool, error) {
	changed, err := r.repo(r.db).Void(ctx, id)
	if err != nil {
		return false, common.StorageError("void token", err)
	}
	return changed, nil
}

// Recent lists up to limit tokens, newest first.
func (r *TokenRegistry) Recent(ctx context.Context, limit int) ([]*models.Token, error) {
	list, err := r.repo(r.db).ListRecent(ctx, limit)
	if err != nil {
		return nil, common.StorageError("list tokens", err)
	}
	return list, nil
}

func (r *TokenRegistry) Stats(ctx context.Context) (*models.TokenStats, error) {
	s, err := r.repo(r.db).Stats(ctx)
	if err != nil {
		return nil, common.StorageError("token stats", err)
	}
	return s, nil
}
