package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/server/chain"
)

// LedgerVerifier replays the stored chain. It never writes.
type LedgerVerifier struct {
	ledger *LedgerStore
}

func NewLedgerVerifier(l *LedgerStore) *LedgerVerifier {
	return &LedgerVerifier{ledger: l}
}

// Verify replays the whole chain from genesis. A broken chain is reported
// in the result; the error is only for storage failures.
func (v *LedgerVerifier) Verify(ctx context.Context) (chain.Result, error) {
	blocks, err := v.ledger.ScanAll(ctx)
	if err != nil {
		return chain.Result{}, err
	}
	return chain.Verify(blocks, chain.Checkpoint{}, 0), nil
}

// VerifyFrom checks that the checkpoint block still carries the checkpoint
// hash and then replays only the blocks after it.
func (v *LedgerVerifier) VerifyFrom(ctx context.Context, cp chain.Checkpoint) (chain.Result, error) {
	if cp.BlockID == 0 {
		return v.Verify(ctx)
	}

	b, err := v.ledger.Get(ctx, cp.BlockID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return chain.Result{BrokenAt: cp.BlockID, Expected: cp.Hash}, nil
	case err != nil:
		return chain.Result{}, err
	case b.RecordHash != cp.Hash:
		return chain.Result{BrokenAt: cp.BlockID, Expected: cp.Hash, Actual: b.RecordHash}, nil
	}

	blocks, err := v.ledger.ScanAfter(ctx, cp.BlockID)
	if err != nil {
		return chain.Result{}, err
	}
	// Block ids are gap-free, so the checkpoint id is the covered length.
	return chain.Verify(blocks, cp, cp.BlockID), nil
}
