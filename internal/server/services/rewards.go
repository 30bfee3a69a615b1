package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/logging"
	"github.com/dmitrijs2005/classmint/internal/server/chain"
	"github.com/dmitrijs2005/classmint/internal/server/codec"
	"github.com/dmitrijs2005/classmint/internal/server/metrics"
	"github.com/dmitrijs2005/classmint/internal/server/models"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/repomanager"
)

const (
	DefaultRecentBlocks = 5
	DefaultListLimit    = 20
	MaxListLimit        = 100
)

// TokenSigner produces token strings and verifies them.
type TokenSigner interface {
	TokenVerifier
	Sign(p models.TokenPayload) (string, error)
}

// LedgerExporter ships a verified chain to external storage and returns
// where it went.
type LedgerExporter interface {
	Export(ctx context.Context, blocks []models.Block, cp chain.Checkpoint) (string, error)
}

type IssueRequest struct {
	Amount      int64
	OneTime     bool
	TTLSeconds  int64
	Description string
	IssuedBy    string
}

type IssuedToken struct {
	TokenID   int64
	Token     string
	ExpiresAt time.Time
}

type LedgerStatus struct {
	TotalBlocks  int64
	TotalClaims  int64
	TotalAmount  int64
	RecentBlocks []models.BlockSummary
}

// Stats are the dashboard figures.
type Stats struct {
	TotalTokens  int64
	ActiveAmount int64
	TotalClaims  int64
	ChainLength  int64
}

type ExportResult struct {
	Location  string
	Blocks    int64
	FinalHash string
}

// RewardService is the entry point used by the transport layer.
type RewardService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	signer      TokenSigner

	registry  *TokenRegistry
	ledger    *LedgerStore
	verifier  *LedgerVerifier
	processor *ClaimProcessor

	exporter     LedgerExporter
	metrics      *metrics.Metrics
	logger       logging.Logger
	now          func() time.Time
	recentBlocks int
}

type Option func(*RewardService)

func WithLogger(l logging.Logger) Option {
	return func(s *RewardService) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *RewardService) { s.metrics = m }
}

// WithExporter enables ExportLedger.
func WithExporter(e LedgerExporter) Option {
	return func(s *RewardService) { s.exporter = e }
}

func WithRecentBlocks(n int) Option {
	return func(s *RewardService) {
		if n > 0 {
			s.recentBlocks = n
		}
	}
}

// WithNow sets the clock for issuance, expiry checks and block timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *RewardService) { s.now = now }
}

// NewRewardService wires the core over an already migrated database.
func NewRewardService(db *sql.DB, m repomanager.RepositoryManager, signer TokenSigner, opts ...Option) *RewardService {
	s := &RewardService{
		db:           db,
		repomanager:  m,
		signer:       signer,
		logger:       logging.Discard(),
		now:          time.Now,
		recentBlocks: DefaultRecentBlocks,
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("module", "rewards")

	s.registry = NewTokenRegistry(db, m, s.now)
	s.ledger = NewLedgerStore(db, m, s.now)
	s.verifier = NewLedgerVerifier(s.ledger)
	s.processor = NewClaimProcessor(signer, s.registry, s.ledger, m,
		WithClock(s.now),
		WithClaimLogger(s.logger.With("module", "claims")),
	)
	return s
}

// IssueToken signs and registers a new token worth amount minor units that
// expires ttlSeconds from now.
func (s *RewardService) IssueToken(ctx context.Context, req IssueRequest) (*IssuedToken, error) {
	if req.Amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	if req.TTLSeconds <= 0 {
		return nil, common.ErrInvalidExpiry
	}

	nonce, err := codec.NewNonce()
	if err != nil {
		return nil, err
	}

	p := models.TokenPayload{
		Amount:      req.Amount,
		OneTime:     req.OneTime,
		ExpiresAt:   s.now().Unix() + req.TTLSeconds,
		Nonce:       nonce,
		Description: req.Description,
	}
	token, err := s.signer.Sign(p)
	if err != nil {
		return nil, err
	}

	rec, err := s.registry.Issue(ctx, token, p, req.IssuedBy)
	if err != nil {
		s.logger.Warn(ctx, "issue failed", "tag", common.Tag(err), "error", err)
		return nil, err
	}

	s.metrics.TokenIssued()
	s.logger.Info(ctx, "token issued", "token_id", rec.ID, "amount", rec.Amount, "one_time", rec.OneTime, "issued_by", rec.IssuedBy)
	return &IssuedToken{TokenID: rec.ID, Token: rec.Token, ExpiresAt: rec.ExpiresAt}, nil
}

// RedeemToken claims token for claimer.
func (s *RewardService) RedeemToken(ctx context.Context, token, claimer string) (*ClaimResult, error) {
	res, err := s.processor.Claim(ctx, token, claimer)
	tag := common.Tag(err)
	s.metrics.Redemption(tag)
	if err != nil {
		s.logger.Info(ctx, "redemption refused", "tag", tag, "claimer", claimer)
		return nil, err
	}

	s.metrics.BlockAppended()
	s.logger.Info(ctx, "token redeemed", "claim_id", res.ClaimID, "amount", res.Amount, "block_id", res.BlockID)
	return res, nil
}

// VoidToken deactivates an ACTIVE token. Repeating it, or voiding a used
// or unknown token, is a no-op.
func (s *RewardService) VoidToken(ctx context.Context, tokenID int64) error {
	changed, err := s.registry.Void(ctx, tokenID)
	if err != nil {
		return err
	}
	if changed {
		s.metrics.TokenVoided()
		s.logger.Info(ctx, "token voided", "token_id", tokenID)
	}
	return nil
}

// VerifyLedger replays the chain from genesis.
func (s *RewardService) VerifyLedger(ctx context.Context) (chain.Result, error) {
	res, err := s.verifier.Verify(ctx)
	if err != nil {
		return res, err
	}
	s.recordVerification(ctx, res)
	return res, nil
}

// VerifyLedgerFrom replays only the blocks after a previously verified
// checkpoint.
func (s *RewardService) VerifyLedgerFrom(ctx context.Context, cp chain.Checkpoint) (chain.Result, error) {
	res, err := s.verifier.VerifyFrom(ctx, cp)
	if err != nil {
		return res, err
	}
	s.recordVerification(ctx, res)
	return res, nil
}

func (s *RewardService) recordVerification(ctx context.Context, res chain.Result) {
	s.metrics.Verification(res.OK, res.Length)
	if !res.OK {
		s.logger.Error(ctx, "ledger integrity broken", "block_id", res.BrokenAt, "expected", res.Expected, "actual", res.Actual)
	}
	if len(res.Malformed) > 0 {
		s.logger.Warn(ctx, "malformed ledger payloads", "block_ids", res.Malformed)
	}
}

func (s *RewardService) claimTotals(ctx context.Context) (*models.ClaimTotals, error) {
	t, err := s.repomanager.Claims(s.db).Totals(ctx)
	if err != nil {
		return nil, common.StorageError("claim totals", err)
	}
	return t, nil
}

// LedgerStatus reports chain size, claim totals and the newest blocks.
func (s *RewardService) LedgerStatus(ctx context.Context) (*LedgerStatus, error) {
	n, err := s.ledger.Count(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.claimTotals(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.ledger.Recent(ctx, s.recentBlocks)
	if err != nil {
		return nil, err
	}
	return &LedgerStatus{
		TotalBlocks:  n,
		TotalClaims:  totals.Count,
		TotalAmount:  totals.Amount,
		RecentBlocks: recent,
	}, nil
}

func (s *RewardService) Stats(ctx context.Context) (*Stats, error) {
	ts, err := s.registry.Stats(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.claimTotals(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.ledger.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalTokens:  ts.TotalTokens,
		ActiveAmount: ts.ActiveAmount,
		TotalClaims:  totals.Count,
		ChainLength:  n,
	}, nil
}

// ListTokens returns the newest tokens. limit is clamped to
// [1, MaxListLimit]; zero or less means DefaultListLimit.
func (s *RewardService) ListTokens(ctx context.Context, limit int) ([]*models.Token, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return s.registry.Recent(ctx, limit)
}

// ExportLedger verifies the chain and hands it to the exporter. A broken
// chain is never exported.
func (s *RewardService) ExportLedger(ctx context.Context) (*ExportResult, error) {
	if s.exporter == nil {
		return nil, common.ErrExportDisabled
	}

	blocks, err := s.ledger.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	res := chain.Verify(blocks, chain.Checkpoint{}, 0)
	s.recordVerification(ctx, res)
	if err := res.Err(); err != nil {
		return nil, err
	}

	loc, err := s.exporter.Export(ctx, blocks, res.Checkpoint())
	if err != nil {
		s.logger.Error(ctx, "ledger export failed", "error", err)
		return nil, err
	}

	s.logger.Info(ctx, "ledger exported", "location", loc, "blocks", res.Length)
	return &ExportResult{Location: loc, Blocks: res.Length, FinalHash: res.FinalHash}, nil
}
