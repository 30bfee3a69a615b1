// Package api names the classmint.v1.RewardService RPC surface shared by
// the server and the CLI. Messages are google.protobuf.Struct values; the
// field names below are the wire contract.
package api

import (
	"context"

	"github.com/dmitrijs2005/classmint/internal/common"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "classmint.v1.RewardService"

const (
	MethodIssueToken   = "IssueToken"
	MethodRedeemToken  = "RedeemToken"
	MethodVoidToken    = "VoidToken"
	MethodVerifyLedger = "VerifyLedger"
	MethodLedgerStatus = "LedgerStatus"
	MethodStats        = "Stats"
	MethodListTokens   = "ListTokens"
	MethodExportLedger = "ExportLedger"
	MethodPing         = "Ping"
)

// AdminMethods require an admin access token.
var AdminMethods = map[string]bool{
	MethodIssueToken:   true,
	MethodVoidToken:    true,
	MethodListTokens:   true,
	MethodExportLedger: true,
}

// FullMethod returns the gRPC path of a method, e.g.
// "/classmint.v1.RewardService/Ping".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Request and response field names.
const (
	FieldAmount       = "amount"
	FieldOneTime      = "one_time"
	FieldTTLSeconds   = "ttl_seconds"
	FieldDescription  = "description"
	FieldToken        = "token"
	FieldTokenID      = "token_id"
	FieldExpiresAt    = "expires_at"
	FieldClaimer      = "claimer"
	FieldClaimID      = "claim_id"
	FieldBlockID      = "block_id"
	FieldBlockHash    = "block_hash"
	FieldLimit        = "limit"
	FieldCheckpoint   = "checkpoint"
	FieldHash         = "hash"
	FieldOK           = "ok"
	FieldLength       = "length"
	FieldFinalHash    = "final_hash"
	FieldBrokenAt     = "broken_at"
	FieldExpected     = "expected"
	FieldActual       = "actual"
	FieldMalformed    = "malformed"
	FieldTotalBlocks  = "total_blocks"
	FieldTotalClaims  = "total_claims"
	FieldTotalAmount  = "total_amount"
	FieldRecentBlocks = "recent_blocks"
	FieldTotalTokens  = "total_tokens"
	FieldActiveAmount = "active_amount"
	FieldChainLength  = "chain_length"
	FieldTokens       = "tokens"
	FieldLocation     = "location"
	FieldBlocks       = "blocks"
	FieldStatus       = "status"
	FieldID           = "id"
	FieldTxID         = "tx_id"
	FieldRecordHash   = "record_hash"
	FieldCreatedAt    = "created_at"
	FieldIssuedBy     = "issued_by"
)

// Client calls RewardService methods over any gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call sends fields to method and returns the response struct.
func (c *Client) Call(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ErrorTag extracts the classmint ErrorInfo reason from a status error. It
// returns "" when there is none.
func ErrorTag(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.Domain == common.ErrorDomain {
			return info.Reason
		}
	}
	return ""
}
