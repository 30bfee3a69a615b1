package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/dbx"
	"github.com/dmitrijs2005/classmint/internal/server/chain"
	"github.com/dmitrijs2005/classmint/internal/server/models"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/repomanager"
)

// LedgerStore appends blocks to the hash chain and reads them back.
// Appends form one total order: within the process they are serialized by
// mu, across processes by the repository's chain lock.
type LedgerStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time

	mu sync.Mutex
}

func NewLedgerStore(db *sql.DB, m repomanager.RepositoryManager, now func() time.Time) *LedgerStore {
	if now == nil {
		now = time.Now
	}
	return &LedgerStore{db: db, repomanager: m, now: now}
}

// withChainLock runs fn in one transaction holding the chain lock. fn must
// only use tx.
func (s *LedgerStore) withChainLock(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Ledger(tx).LockChain(ctx); err != nil {
			return common.StorageError("lock chain", err)
		}
		return fn(ctx, tx)
	})
}

// appendTx links a new block to the current tip inside tx. The caller holds
// the chain lock.
func (s *LedgerStore) appendTx(ctx context.Context, tx dbx.DBTX, txID *int64, claim *chain.ClaimData) (*models.Block, error) {
	repo := s.repomanager.Ledger(tx)

	var (
		prevHash string
		nextID   int64 = 1
	)
	last, err := repo.Last(ctx)
	switch {
	case err == nil:
		prevHash = last.RecordHash
		nextID = last.ID + 1
	case errors.Is(err, common.ErrorNotFound):
	default:
		return nil, common.StorageError("read chain tip", err)
	}

	// Sampled once: the same value is hashed, embedded and stored.
	createdAt := s.now().Unix()

	payload, err := chain.Encode(chain.Payload{
		TxID:      txID,
		Timestamp: createdAt,
		PrevHash:  prevHash,
		ClaimData: claim,
	})
	if err != nil {
		return nil, err
	}

	b := &models.Block{
		ID:         nextID,
		TxID:       txID,
		PrevHash:   prevHash,
		RecordHash: chain.Hash(prevHash, payload, createdAt),
		CreatedAt:  createdAt,
		Payload:    payload,
	}
	if err := repo.Create(ctx, b); err != nil {
		return nil, common.StorageError("append block", err)
	}
	return b, nil
}

// Append adds a block on its own. Claims append through ClaimProcessor so
// the claim and its block commit together.
func (s *LedgerStore) Append(ctx context.Context, txID *int64, claim *chain.ClaimData) (*models.Block, error) {
	var b *models.Block
	err := s.withChainLock(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		b, err = s.appendTx(ctx, tx, txID, claim)
		return err
	})
	if err != nil {
		return nil, storageErr("append block", err)
	}
	return b, nil
}

// ScanAll returns every block in ascending id order.
func (s *LedgerStore) ScanAll(ctx context.Context) ([]models.Block, error) {
	blocks, err := s.repomanager.Ledger(s.db).ScanAll(ctx)
	if err != nil {
		return nil, common.StorageError("scan ledger", err)
	}
	return blocks, nil
}

func (s *LedgerStore) ScanAfter(ctx context.Context, afterID int64) ([]models.Block, error) {
	blocks, err := s.repomanager.Ledger(s.db).ScanAfter(ctx, afterID)
	if err != nil {
		return nil, common.StorageError("scan ledger", err)
	}
	return blocks, nil
}

// Get returns one block or common.ErrorNotFound.
func (s *LedgerStore) Get(ctx context.Context, id int64) (*models.Block, error) {
	b, err := s.repomanager.Ledger(s.db).Get(ctx, id)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, common.StorageError("get block", err)
	}
	return b, err
}

func (s *LedgerStore) Count(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Ledger(s.db).Count(ctx)
	if err != nil {
		return 0, common.StorageError("count blocks", err)
	}
	return n, nil
}

// Recent returns up to limit newest blocks with their claim details.
func (s *LedgerStore) Recent(ctx context.Context, limit int) ([]models.BlockSummary, error) {
	list, err := s.repomanager.Ledger(s.db).Recent(ctx, limit)
	if err != nil {
		return nil, common.StorageError("recent blocks", err)
	}
	return list, nil
}

// storageErr keeps tagged domain errors as they are and marks anything else
// as a storage failure.
func storageErr(op string, err error) error {
	if err == nil || common.Tag(err) != common.TagInternal {
		return err
	}
	return common.StorageError(op, err)
}
