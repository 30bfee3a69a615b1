package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/dbx"
	"github.com/dmitrijs2005/classmint/internal/logging"
	"github.com/dmitrijs2005/classmint/internal/server/chain"
	"github.com/dmitrijs2005/classmint/internal/server/models"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/repomanager"
)

// TokenVerifier checks a token string and returns its signed payload.
type TokenVerifier interface {
	Verify(token string) (models.TokenPayload, error)
}

// ClaimResult is what a successful redemption hands back.
type ClaimResult struct {
	ClaimID     int64
	Amount      int64
	BlockID     int64
	BlockHash   string
	Description string
}

// ClaimProcessor redeems tokens. The status, expiry and one-time checks,
// the claim insert, the block append and the status change run in one
// transaction under the chain lock, so a failed redemption leaves no trace
// and two redemptions of a one-time token cannot both succeed.
type ClaimProcessor struct {
	verifier    TokenVerifier
	registry    *TokenRegistry
	ledger      *LedgerStore
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

type ClaimOption func(*ClaimProcessor)

// WithClock sets the time source used for the expiry check.
func WithClock(now func() time.Time) ClaimOption {
	return func(p *ClaimProcessor) { p.now = now }
}

func WithClaimLogger(l logging.Logger) ClaimOption {
	return func(p *ClaimProcessor) { p.logger = l }
}

func NewClaimProcessor(v TokenVerifier, r *TokenRegistry, l *LedgerStore, m repomanager.RepositoryManager, opts ...ClaimOption) *ClaimProcessor {
	p := &ClaimProcessor{
		verifier:    v,
		registry:    r,
		ledger:      l,
		repomanager: m,
		logger:      logging.Discard(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Claim redeems token on behalf of claimer.
func (p *ClaimProcessor) Claim(ctx context.Context, token, claimer string) (*ClaimResult, error) {
	if token == "" || claimer == "" {
		return nil, common.ErrInvalidInput
	}

	if _, err := p.verifier.Verify(token); err != nil {
		return nil, common.ErrBadSignature
	}

	rec, err := p.registry.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	var res *ClaimResult
	err = p.ledger.withChainLock(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		// Re-read under the lock; the copy from Lookup may be stale.
		t, err := p.repomanager.Tokens(tx).FindByIDForUpdate(ctx, rec.ID)
		if err != nil {
			return common.StorageError("reload token", err)
		}

		if t.Status != models.TokenActive {
			return common.ErrTokenInactive
		}

		now := p.now()
		if now.Unix() > t.ExpiresAt.Unix() {
			return common.ErrTokenExpired
		}

		claims := p.repomanager.Claims(tx)
		if t.OneTime {
			claimed, err := claims.ExistsForToken(ctx, t.ID)
			if err != nil {
				return common.StorageError("check claims", err)
			}
			if claimed {
				return common.ErrAlreadyClaimed
			}
		}

		c, err := claims.Create(ctx, &models.Claim{
			TokenID:   t.ID,
			Claimer:   claimer,
			Amount:    t.Amount,
			CreatedAt: now,
		})
		if err != nil {
			return common.StorageError("insert claim", err)
		}

		b, err := p.ledger.appendTx(ctx, tx, &c.ID, &chain.ClaimData{
			Claimer:     claimer,
			Amount:      c.Amount,
			TokenID:     t.ID,
			Description: t.Description,
		})
		if err != nil {
			return err
		}

		if t.OneTime {
			if err := p.registry.markUsed(ctx, tx, t.ID); err != nil {
				return err
			}
		}

		res = &ClaimResult{
			ClaimID:     c.ID,
			Amount:      c.Amount,
			BlockID:     b.ID,
			BlockHash:   b.RecordHash,
			Description: t.Description,
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("claim", err)
	}

	p.logger.Debug(ctx, "token claimed", "token_id", rec.ID, "claim_id", res.ClaimID, "block_id", res.BlockID)
	return res, nil
}
