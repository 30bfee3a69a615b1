package grpc

import (
	"context"

	"github.com/dmitrijs2005/classmint/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// RewardServer is the server side of api.ServiceName.
type RewardServer interface {
	IssueToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RedeemToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VoidToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyLedger(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LedgerStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTokens(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportLedger(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(RewardServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, fn unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			rs := srv.(RewardServer)
			if interceptor == nil {
				return fn(rs, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: api.FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(rs, ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*RewardServer)(nil),
	Methods: []grpc.MethodDesc{
		method(api.MethodIssueToken, RewardServer.IssueToken),
		method(api.MethodRedeemToken, RewardServer.RedeemToken),
		method(api.MethodVoidToken, RewardServer.VoidToken),
		method(api.MethodVerifyLedger, RewardServer.VerifyLedger),
		method(api.MethodLedgerStatus, RewardServer.LedgerStatus),
		method(api.MethodStats, RewardServer.Stats),
		method(api.MethodListTokens, RewardServer.ListTokens),
		method(api.MethodExportLedger, RewardServer.ExportLedger),
		method(api.MethodPing, RewardServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "classmint/v1/reward.proto",
}
