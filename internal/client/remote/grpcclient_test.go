package remote

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type staticToken string

func (s staticToken) Get() string { return string(s) }

/*************
 * Fake connection
 *************/

type fakeConn struct {
	// inputs captured
	method string
	req    map[string]any
	hasDL  bool

	// outputs preset
	resp map[string]any
	err  error
}

func (f *fakeConn) Invoke(ctx context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	f.method = method
	f.req = args.(*structpb.Struct).AsMap()
	_, f.hasDL = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	out, err := structpb.NewStruct(f.resp)
	if err != nil {
		return err
	}
	proto.Merge(reply.(*structpb.Struct), out)
	return nil
}

func (f *fakeConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("not implemented")
}

func newFakeClient(f *fakeConn) *GRPCClient {
	return &GRPCClient{conn: f, timeout: time.Second}
}

/*************
 * Interceptor
 *************/

func TestInterceptor_AttachesTokenAndRequestID(t *testing.T) {
	c := &GRPCClient{tokens: staticToken("S1")}

	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		require.Equal(t, []string{"S1"}, md.Get(common.AccessTokenHeaderName))
		ids := md.Get(common.RequestIDHeaderName)
		require.Len(t, ids, 1)
		require.NotEmpty(t, ids[0])
		return nil
	}

	require.NoError(t, c.sessionTokenInterceptor(context.Background(), MethodLogin, nil, nil, nil, invoker))
}

func TestInterceptor_NoTokenWhenLoggedOut(t *testing.T) {
	c := &GRPCClient{tokens: staticToken("")}

	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		require.Empty(t, md.Get(common.AccessTokenHeaderName))
		return nil
	}

	require.NoError(t, c.sessionTokenInterceptor(context.Background(), MethodLogin, nil, nil, nil, invoker))
}

func TestWithAccessToken_ReplacesExisting(t *testing.T) {
	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "old", "k", "v")
	ctx = withAccessToken(ctx, "new")

	md, _ := metadata.FromOutgoingContext(ctx)
	require.Equal(t, []string{"new"}, md.Get(common.AccessTokenHeaderName))
	require.Equal(t, []string{"v"}, md.Get("k"))
}

/*************
 * Calls
 *************/

func TestLogin_SendsCredentialsAndSplitsProfile(t *testing.T) {
	f := &fakeConn{resp: map[string]any{"Token": "S1", "RefreshToken": "L1", "uid": "u-1"}}
	c := newFakeClient(f)

	res, err := c.Login(context.Background(), Credentials{Email: "a@b.c", Password: "pw", VerificationToken: "cap"})
	require.NoError(t, err)

	require.Equal(t, MethodLogin, f.method)
	require.Equal(t, map[string]any{"email": "a@b.c", "password": "pw", "token": "cap"}, f.req)
	require.True(t, f.hasDL)

	require.Equal(t, "S1", res.Token)
	require.Equal(t, "L1", res.RefreshToken)
	require.Equal(t, map[string]any{"uid": "u-1"}, res.Profile)
}

func TestLogin_MissingTokenPairIsMalformed(t *testing.T) {
	f := &fakeConn{resp: map[string]any{"Token": "S1"}}

	_, err := newFakeClient(f).Login(context.Background(), Credentials{})
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestLogin_RejectedMapsToUnauthorized(t *testing.T) {
	f := &fakeConn{err: status.Error(codes.Unauthenticated, "bad password")}

	_, err := newFakeClient(f).Login(context.Background(), Credentials{})
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Contains(t, err.Error(), "bad password")
}

func TestRegister_SendsRegistration(t *testing.T) {
	f := &fakeConn{resp: map[string]any{"Token": "S1", "RefreshToken": "L1"}}

	res, err := newFakeClient(f).Register(context.Background(), Registration{
		UserName: "ann", Email: "a@b.c", Password: "pw", Code: "123",
	})
	require.NoError(t, err)
	require.Equal(t, MethodRegister, f.method)
	require.Equal(t, map[string]any{"userName": "ann", "email": "a@b.c", "password": "pw", "code": "123"}, f.req)
	require.Equal(t, "S1", res.Token)
	require.Empty(t, res.Profile)
}

func TestRefresh(t *testing.T) {
	f := &fakeConn{resp: map[string]any{"Token": "S2"}}

	tok, err := newFakeClient(f).Refresh(context.Background(), "L1")
	require.NoError(t, err)
	require.Equal(t, "S2", tok)
	require.Equal(t, MethodRefreshToken, f.method)
	require.Equal(t, map[string]any{"token": "L1"}, f.req)
}

func TestRefresh_EmptyResponse(t *testing.T) {
	f := &fakeConn{resp: map[string]any{}}

	tok, err := newFakeClient(f).Refresh(context.Background(), "L1")
	require.NoError(t, err)
	require.Empty(t, tok)
}

func TestMailAndPasswordCalls(t *testing.T) {
	f := &fakeConn{resp: map[string]any{}}
	c := newFakeClient(f)
	ctx := context.Background()

	require.NoError(t, c.SendResetEmail(ctx, "a@b.c", "cap"))
	require.Equal(t, MethodSendResetEmail, f.method)
	require.Equal(t, map[string]any{"email": "a@b.c", "token": "cap"}, f.req)

	require.NoError(t, c.SendRegisterEmail(ctx, "a@b.c", "cap"))
	require.Equal(t, MethodSendRegisterEmail, f.method)

	require.NoError(t, c.ResetPassword(ctx, "a@b.c", "new", "999"))
	require.Equal(t, MethodResetPassword, f.method)
	require.Equal(t, map[string]any{"email": "a@b.c", "code": "999", "newPassword": "new"}, f.req)
}

func TestCall_NoTimeoutWhenDisabled(t *testing.T) {
	f := &fakeConn{resp: map[string]any{}}
	c := &GRPCClient{conn: f}

	require.NoError(t, c.SendResetEmail(context.Background(), "a@b.c", ""))
	require.False(t, f.hasDL)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"unauthenticated", status.Error(codes.Unauthenticated, "x"), ErrUnauthorized},
		{"permission", status.Error(codes.PermissionDenied, "x"), ErrUnauthorized},
		{"invalid", status.Error(codes.InvalidArgument, "x"), ErrUnauthorized},
		{"unavailable", status.Error(codes.Unavailable, "x"), ErrUnavailable},
		{"deadline", status.Error(codes.DeadlineExceeded, "x"), ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, mapError(tc.in), tc.want)
		})
	}

	require.NoError(t, mapError(nil))

	other := status.Error(codes.Internal, "boom")
	got := mapError(other)
	assert.NotErrorIs(t, got, ErrUnauthorized)
	assert.NotErrorIs(t, got, ErrUnavailable)
	assert.Contains(t, got.Error(), "boom")
}

/*************
 * End-to-end over bufconn
 *************/

type recordedCall struct {
	token     []string
	requestID []string
	req       map[string]any
}

func startUserService(t *testing.T, handle func(method string, req map[string]any) (map[string]any, error)) (*bufconn.Listener, chan recordedCall) {
	t.Helper()

	calls := make(chan recordedCall, 8)
	method := func(name string) grpc.MethodDesc {
		return grpc.MethodDesc{
			MethodName: name,
			Handler: func(_ any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				in := &structpb.Struct{}
				if err := dec(in); err != nil {
					return nil, err
				}
				md, _ := metadata.FromIncomingContext(ctx)
				calls <- recordedCall{
					token:     md.Get(common.AccessTokenHeaderName),
					requestID: md.Get(common.RequestIDHeaderName),
					req:       in.AsMap(),
				}
				resp, err := handle(name, in.AsMap())
				if err != nil {
					return nil, err
				}
				return structpb.NewStruct(resp)
			},
		}
	}

	desc := grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Methods:     []grpc.MethodDesc{method("Login"), method("RefreshToken")},
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	srv.RegisterService(&desc, struct{}{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return lis, calls
}

func dialBuf(t *testing.T, lis *bufconn.Listener, tokens TokenSource) *GRPCClient {
	t.Helper()
	c, err := NewGRPCClient("passthrough:///bufnet", tokens,
		WithTimeout(5*time.Second),
		WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGRPCClient_Bufconn_LoginAndRefresh(t *testing.T) {
	lis, calls := startUserService(t, func(method string, req map[string]any) (map[string]any, error) {
		switch method {
		case "Login":
			if req["password"] != "pw" {
				return nil, status.Error(codes.Unauthenticated, "wrong password")
			}
			return map[string]any{"Token": "S1", "RefreshToken": "L1", "uid": "u-1"}, nil
		default:
			return map[string]any{"Token": "S2"}, nil
		}
	})
	c := dialBuf(t, lis, staticToken("S0"))
	ctx := context.Background()

	res, err := c.Login(ctx, Credentials{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, AuthResult{Token: "S1", RefreshToken: "L1", Profile: map[string]any{"uid": "u-1"}}, res)

	got := <-calls
	require.Equal(t, []string{"S0"}, got.token)
	require.Len(t, got.requestID, 1)
	require.Equal(t, "a@b.c", got.req["email"])

	_, err = c.Login(ctx, Credentials{Email: "a@b.c", Password: "nope"})
	require.ErrorIs(t, err, ErrUnauthorized)
	<-calls

	tok, err := c.Refresh(ctx, "L1")
	require.NoError(t, err)
	require.Equal(t, "S2", tok)
	require.Equal(t, map[string]any{"token": "L1"}, (<-calls).req)
}

func TestGRPCClient_Bufconn_UnknownMethod(t *testing.T) {
	lis, _ := startUserService(t, func(string, map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	})
	c := dialBuf(t, lis, nil)

	err := c.SendResetEmail(context.Background(), "a@b.c", "")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnauthorized)
	require.NotErrorIs(t, err, ErrUnavailable)
}
