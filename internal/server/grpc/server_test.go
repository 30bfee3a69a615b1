package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/classmint/internal/api"
	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/logging"
	"github.com/dmitrijs2005/classmint/internal/server/auth"
	"github.com/dmitrijs2005/classmint/internal/server/codec"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/classmint/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/classmint/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

var jwtSecret = []byte("admin-jwt-secret-admin-jwt-secret")

type harness struct {
	client *api.Client
	admin  context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := repotest.OpenSQLite(t)
	c, err := codec.New([]byte("token-mac-key-token-mac-key-0000"), 0)
	require.NoError(t, err)
	rs := services.NewRewardService(db, repomanager.NewSQLiteRepositoryManager(), c)

	srv := NewGRPCServer("bufnet", logging.Discard(), rs, jwtSecret)
	lis := bufconn.Listen(1 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		require.NoError(t, <-done)
	})

	token, err := auth.GenerateToken("teacher-1", jwtSecret, time.Minute)
	require.NoError(t, err)

	return &harness{
		client: api.NewClient(conn),
		admin:  metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, token),
	}
}

func requireCode(t *testing.T, err error, code codes.Code, tag string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, status.Code(err), err.Error())
	assert.Equal(t, tag, api.ErrorTag(err))
}

func num(s *structpb.Struct, key string) int64 {
	return int64(s.GetFields()[key].GetNumberValue())
}

func TestServer_Ping(t *testing.T) {
	h := newHarness(t)

	var header metadata.MD
	out, err := h.client.Call(context.Background(), api.MethodPing, nil, grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, "OK", out.GetFields()[api.FieldStatus].GetStringValue())
	assert.NotEmpty(t, header.Get(requestIDHeader))
}

func TestServer_AdminMethodsNeedToken(t *testing.T) {
	h := newHarness(t)

	for _, m := range []string{api.MethodIssueToken, api.MethodVoidToken, api.MethodListTokens, api.MethodExportLedger} {
		_, err := h.client.Call(context.Background(), m, nil)
		requireCode(t, err, codes.Unauthenticated, common.TagUnauthorized)
	}

	bad := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "nope")
	_, err := h.client.Call(bad, api.MethodIssueToken, map[string]any{api.FieldAmount: 1, api.FieldTTLSeconds: 60})
	requireCode(t, err, codes.Unauthenticated, common.TagUnauthorized)
}

func TestServer_IssueRedeemFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	issued, err := h.client.Call(h.admin, api.MethodIssueToken, map[string]any{
		api.FieldAmount: 500, api.FieldOneTime: true, api.FieldTTLSeconds: 60, api.FieldDescription: "quiz",
	})
	require.NoError(t, err)
	token := issued.GetFields()[api.FieldToken].GetStringValue()
	require.NotEmpty(t, token)
	assert.Greater(t, num(issued, api.FieldExpiresAt), time.Now().Unix())

	redeemed, err := h.client.Call(ctx, api.MethodRedeemToken, map[string]any{api.FieldToken: token, api.FieldClaimer: "s001"})
	require.NoError(t, err)
	assert.Equal(t, int64(500), num(redeemed, api.FieldAmount))
	assert.Equal(t, "quiz", redeemed.GetFields()[api.FieldDescription].GetStringValue())
	assert.Len(t, redeemed.GetFields()[api.FieldBlockHash].GetStringValue(), 64)

	_, err = h.client.Call(ctx, api.MethodRedeemToken, map[string]any{api.FieldToken: token, api.FieldClaimer: "s001"})
	requireCode(t, err, codes.FailedPrecondition, common.TagTokenInactive)

	_, err = h.client.Call(ctx, api.MethodRedeemToken, map[string]any{api.FieldToken: token + "x"})
	requireCode(t, err, codes.InvalidArgument, common.TagBadSignature)

	verified, err := h.client.Call(ctx, api.MethodVerifyLedger, nil)
	require.NoError(t, err)
	assert.True(t, verified.GetFields()[api.FieldOK].GetBoolValue())
	assert.Equal(t, int64(1), num(verified, api.FieldLength))

	inc, err := h.client.Call(ctx, api.MethodVerifyLedger, map[string]any{
		api.FieldCheckpoint: map[string]any{
			api.FieldBlockID: 1,
			api.FieldHash:    verified.GetFields()[api.FieldFinalHash].GetStringValue(),
		},
	})
	require.NoError(t, err)
	assert.True(t, inc.GetFields()[api.FieldOK].GetBoolValue())

	st, err := h.client.Call(ctx, api.MethodLedgerStatus, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), num(st, api.FieldTotalBlocks))
	assert.Equal(t, int64(500), num(st, api.FieldTotalAmount))
	recent := st.GetFields()[api.FieldRecentBlocks].GetListValue().GetValues()
	require.Len(t, recent, 1)
	assert.Equal(t, "s001", recent[0].GetStructValue().GetFields()[api.FieldClaimer].GetStringValue())

	stats, err := h.client.Call(ctx, api.MethodStats, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), num(stats, api.FieldTotalTokens))
	assert.Equal(t, int64(0), num(stats, api.FieldActiveAmount))

	list, err := h.client.Call(h.admin, api.MethodListTokens, map[string]any{api.FieldLimit: 10})
	require.NoError(t, err)
	tokens := list.GetFields()[api.FieldTokens].GetListValue().GetValues()
	require.Len(t, tokens, 1)
	first := tokens[0].GetStructValue().GetFields()
	assert.Equal(t, "teacher-1", first[api.FieldIssuedBy].GetStringValue())
	assert.Equal(t, "USED", first[api.FieldStatus].GetStringValue())
}

func TestServer_RedeemDefaultsClaimer(t *testing.T) {
	h := newHarness(t)

	issued, err := h.client.Call(h.admin, api.MethodIssueToken, map[string]any{api.FieldAmount: 5, api.FieldTTLSeconds: 60})
	require.NoError(t, err)

	_, err = h.client.Call(context.Background(), api.MethodRedeemToken, map[string]any{
		api.FieldToken: issued.GetFields()[api.FieldToken].GetStringValue(),
	})
	require.NoError(t, err)

	st, err := h.client.Call(context.Background(), api.MethodLedgerStatus, nil)
	require.NoError(t, err)
	recent := st.GetFields()[api.FieldRecentBlocks].GetListValue().GetValues()
	require.Len(t, recent, 1)
	assert.Equal(t, defaultClaimer, recent[0].GetStructValue().GetFields()[api.FieldClaimer].GetStringValue())
}

func TestServer_IssueValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.Call(h.admin, api.MethodIssueToken, map[string]any{api.FieldAmount: 1.5, api.FieldTTLSeconds: 60})
	requireCode(t, err, codes.InvalidArgument, common.TagInvalidInput)

	_, err = h.client.Call(h.admin, api.MethodIssueToken, map[string]any{api.FieldAmount: "ten", api.FieldTTLSeconds: 60})
	requireCode(t, err, codes.InvalidArgument, common.TagInvalidInput)

	_, err = h.client.Call(h.admin, api.MethodIssueToken, map[string]any{api.FieldAmount: 10, api.FieldTTLSeconds: 0})
	requireCode(t, err, codes.InvalidArgument, common.TagInvalidInput)
}

func TestServer_VoidIsIdempotent(t *testing.T) {
	h := newHarness(t)

	issued, err := h.client.Call(h.admin, api.MethodIssueToken, map[string]any{api.FieldAmount: 5, api.FieldOneTime: true, api.FieldTTLSeconds: 60})
	require.NoError(t, err)
	id := num(issued, api.FieldTokenID)

	for i := 0; i < 2; i++ {
		_, err = h.client.Call(h.admin, api.MethodVoidToken, map[string]any{api.FieldTokenID: id})
		require.NoError(t, err)
	}

	_, err = h.client.Call(context.Background(), api.MethodRedeemToken, map[string]any{
		api.FieldToken: issued.GetFields()[api.FieldToken].GetStringValue(), api.FieldClaimer: "s001",
	})
	requireCode(t, err, codes.FailedPrecondition, common.TagTokenInactive)
}

func TestServer_ExportDisabled(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.Call(h.admin, api.MethodExportLedger, nil)
	requireCode(t, err, codes.Unimplemented, common.TagExportDisabled)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Discard(), nil, jwtSecret)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Discard(), nil, jwtSecret)

	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
