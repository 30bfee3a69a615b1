package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/classmint/internal/api"
	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/server/auth"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const issuerIDKey ctxKey = "issuerID"

const requestIDHeader = "x-request-id"

func issuerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(issuerIDKey).(string)
	return id
}

func methodName(fullMethod string) string {
	return fullMethod[strings.LastIndexByte(fullMethod, '/')+1:]
}

func firstValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// loggingInterceptor tags each call with a request id, echoes it in the
// response header and logs the outcome.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	reqID := firstValue(ctx, requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, reqID))

	start := time.Now()
	resp, err := handler(ctx, req)

	args := []any{
		"request_id", reqID,
		"method", methodName(info.FullMethod),
		"duration", time.Since(start),
		"code", status.Code(err).String(),
	}
	if err != nil {
		args = append(args, "tag", api.ErrorTag(err))
		s.logger.Warn(ctx, "rpc failed", args...)
	} else {
		s.logger.Info(ctx, "rpc", args...)
	}
	return resp, err
}

// accessTokenInterceptor requires a valid admin token on admin methods and
// stores its issuer id in the context.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !api.AdminMethods[methodName(info.FullMethod)] {
		return handler(ctx, req)
	}

	accessToken := firstValue(ctx, common.AccessTokenHeaderName)
	if accessToken == "" {
		return nil, toStatus(common.ErrorUnauthorized)
	}

	issuerID, err := auth.GetIssuerIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, toStatus(err)
	}

	return handler(context.WithValue(ctx, issuerIDKey, issuerID), req)
}
