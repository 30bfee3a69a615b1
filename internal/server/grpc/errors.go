package grpc

import (
	"errors"
	"strconv"

	"github.com/dmitrijs2005/classmint/internal/common"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var tagCodes = map[string]codes.Code{
	common.TagInvalidInput:          codes.InvalidArgument,
	common.TagBadSignature:          codes.InvalidArgument,
	common.TagUnknownToken:          codes.NotFound,
	common.TagTokenInactive:         codes.FailedPrecondition,
	common.TagTokenExpired:          codes.FailedPrecondition,
	common.TagAlreadyClaimed:        codes.FailedPrecondition,
	common.TagLedgerIntegrityBroken: codes.DataLoss,
	common.TagUnauthorized:          codes.Unauthenticated,
	common.TagExportDisabled:        codes.Unimplemented,
	common.TagStorageFailure:        codes.Internal,
	common.TagInternal:              codes.Internal,
}

// toStatus maps err onto a gRPC status carrying its tag as ErrorInfo.
// Storage and internal failures do not expose their message.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	tag := common.Tag(err)
	code, ok := tagCodes[tag]
	if !ok {
		code = codes.Internal
	}

	msg := err.Error()
	if code == codes.Internal {
		msg = "internal error"
	}

	info := &errdetails.ErrorInfo{Reason: tag, Domain: common.ErrorDomain}
	var ie *common.IntegrityError
	if errors.As(err, &ie) {
		info.Metadata = map[string]string{
			"block_id": strconv.FormatInt(ie.BlockID, 10),
			"expected": ie.Expected,
			"actual":   ie.Actual,
		}
	}

	st, derr := status.New(code, msg).WithDetails(info)
	if derr != nil {
		return status.Error(code, msg)
	}
	return st.Err()
}
