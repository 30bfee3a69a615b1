package grpc

import (
	"context"

	"github.com/dmitrijs2005/classmint/internal/api"
	"github.com/dmitrijs2005/classmint/internal/server/chain"
	"github.com/dmitrijs2005/classmint/internal/server/models"
	"github.com/dmitrijs2005/classmint/internal/server/services"
	"google.golang.org/protobuf/types/known/structpb"
)

// defaultClaimer is recorded when a redemption names nobody.
const defaultClaimer = "unknown"

func (s *GRPCServer) IssueToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	amount, err := intField(in, api.FieldAmount)
	if err != nil {
		return nil, toStatus(err)
	}
	ttl, err := intField(in, api.FieldTTLSeconds)
	if err != nil {
		return nil, toStatus(err)
	}
	oneTime, err := boolField(in, api.FieldOneTime)
	if err != nil {
		return nil, toStatus(err)
	}
	desc, err := stringField(in, api.FieldDescription)
	if err != nil {
		return nil, toStatus(err)
	}

	tok, err := s.rewards.IssueToken(ctx, services.IssueRequest{
		Amount:      amount,
		OneTime:     oneTime,
		TTLSeconds:  ttl,
		Description: desc,
		IssuedBy:    issuerFromContext(ctx),
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return response(map[string]any{
		api.FieldTokenID:   tok.TokenID,
		api.FieldToken:     tok.Token,
		api.FieldExpiresAt: tok.ExpiresAt.Unix(),
	})
}

func (s *GRPCServer) RedeemToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	token, err := stringField(in, api.FieldToken)
	if err != nil {
		return nil, toStatus(err)
	}
	claimer, err := stringField(in, api.FieldClaimer)
	if err != nil {
		return nil, toStatus(err)
	}
	if claimer == "" {
		claimer = defaultClaimer
	}

	res, err := s.rewards.RedeemToken(ctx, token, claimer)
	if err != nil {
		return nil, toStatus(err)
	}

	return response(map[string]any{
		api.FieldClaimID:     res.ClaimID,
		api.FieldAmount:      res.Amount,
		api.FieldBlockID:     res.BlockID,
		api.FieldBlockHash:   res.BlockHash,
		api.FieldDescription: res.Description,
	})
}

func (s *GRPCServer) VoidToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := intField(in, api.FieldTokenID)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.rewards.VoidToken(ctx, id); err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{api.FieldTokenID: id})
}

// VerifyLedger reports a broken chain in the response, not as an error.
func (s *GRPCServer) VerifyLedger(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	cpIn, err := structField(in, api.FieldCheckpoint)
	if err != nil {
		return nil, toStatus(err)
	}

	var res chain.Result
	if cpIn != nil {
		id, err := intField(cpIn, api.FieldBlockID)
		if err != nil {
			return nil, toStatus(err)
		}
		hash, err := stringField(cpIn, api.FieldHash)
		if err != nil {
			return nil, toStatus(err)
		}
		res, err = s.rewards.VerifyLedgerFrom(ctx, chain.Checkpoint{BlockID: id, Hash: hash})
		if err != nil {
			return nil, toStatus(err)
		}
	} else {
		res, err = s.rewards.VerifyLedger(ctx)
		if err != nil {
			return nil, toStatus(err)
		}
	}

	out := map[string]any{
		api.FieldOK:        res.OK,
		api.FieldLength:    res.Length,
		api.FieldFinalHash: res.FinalHash,
	}
	if !res.OK {
		out[api.FieldBrokenAt] = res.BrokenAt
		out[api.FieldExpected] = res.Expected
		out[api.FieldActual] = res.Actual
	}
	if len(res.Malformed) > 0 {
		ids := make([]any, len(res.Malformed))
		for i, id := range res.Malformed {
			ids[i] = id
		}
		out[api.FieldMalformed] = ids
	}
	return response(out)
}

func (s *GRPCServer) LedgerStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	st, err := s.rewards.LedgerStatus(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	recent := make([]any, 0, len(st.RecentBlocks))
	for _, b := range st.RecentBlocks {
		recent = append(recent, blockFields(b))
	}
	return response(map[string]any{
		api.FieldTotalBlocks:  st.TotalBlocks,
		api.FieldTotalClaims:  st.TotalClaims,
		api.FieldTotalAmount:  st.TotalAmount,
		api.FieldRecentBlocks: recent,
	})
}

func blockFields(b models.BlockSummary) map[string]any {
	var txID any
	if b.TxID != nil {
		txID = *b.TxID
	}
	return map[string]any{
		api.FieldID:         b.ID,
		api.FieldTxID:       txID,
		api.FieldRecordHash: b.RecordHash,
		api.FieldCreatedAt:  b.CreatedAt,
		api.FieldClaimer:    b.Claimer,
		api.FieldAmount:     b.Amount,
	}
}

func (s *GRPCServer) Stats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	st, err := s.rewards.Stats(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{
		api.FieldTotalTokens:  st.TotalTokens,
		api.FieldActiveAmount: st.ActiveAmount,
		api.FieldTotalClaims:  st.TotalClaims,
		api.FieldChainLength:  st.ChainLength,
	})
}

func (s *GRPCServer) ListTokens(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	limit, err := intField(in, api.FieldLimit)
	if err != nil {
		return nil, toStatus(err)
	}
	list, err := s.rewards.ListTokens(ctx, int(limit))
	if err != nil {
		return nil, toStatus(err)
	}

	out := make([]any, 0, len(list))
	for _, t := range list {
		out = append(out, map[string]any{
			api.FieldID:          t.ID,
			api.FieldToken:       t.Token,
			api.FieldAmount:      t.Amount,
			api.FieldOneTime:     t.OneTime,
			api.FieldExpiresAt:   t.ExpiresAt.Unix(),
			api.FieldStatus:      string(t.Status),
			api.FieldIssuedBy:    t.IssuedBy,
			api.FieldCreatedAt:   t.CreatedAt.Unix(),
			api.FieldDescription: t.Description,
		})
	}
	return response(map[string]any{api.FieldTokens: out})
}

func (s *GRPCServer) ExportLedger(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.rewards.ExportLedger(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return response(map[string]any{
		api.FieldLocation:  res.Location,
		api.FieldBlocks:    res.Blocks,
		api.FieldFinalHash: res.FinalHash,
	})
}

func (s *GRPCServer) Ping(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return response(map[string]any{api.FieldStatus: "OK"})
}
