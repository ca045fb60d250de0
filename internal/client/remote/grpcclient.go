package remote

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service the client talks to.
const ServiceName = "shelfkeeper.v1.UserService"

const (
	MethodLogin             = "/" + ServiceName + "/Login"
	MethodRegister          = "/" + ServiceName + "/Register"
	MethodRefreshToken      = "/" + ServiceName + "/RefreshToken"
	MethodSendResetEmail    = "/" + ServiceName + "/SendResetEmail"
	MethodSendRegisterEmail = "/" + ServiceName + "/SendRegisterEmail"
	MethodResetPassword     = "/" + ServiceName + "/ResetPassword"
)

// Response field names of a credential exchange.
const (
	fieldToken        = "Token"
	fieldRefreshToken = "RefreshToken"
)

// DefaultTimeout bounds a single unary call.
const DefaultTimeout = 10 * time.Second

// TokenSource yields the current session token ("" when logged out).
type TokenSource interface {
	Get() string
}

type GRPCClient struct {
	endpointURL string
	conn        grpc.ClientConnInterface
	closer      io.Closer
	tokens      TokenSource
	timeout     time.Duration
	dialOpts    []grpc.DialOption
}

type Option func(*GRPCClient)

// WithTimeout overrides the per-call timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *GRPCClient) {
		c.timeout = d
	}
}

// WithDialOptions appends extra grpc.DialOption values (TLS, custom dialers).
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *GRPCClient) {
		c.dialOpts = append(c.dialOpts, opts...)
	}
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) sessionTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	ctx = metadata.AppendToOutgoingContext(ctx, common.RequestIDHeaderName, uuid.NewString())

	if c.tokens != nil {
		if token := c.tokens.Get(); token != "" {
			ctx = withAccessToken(ctx, token)
		}
	}

	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient creates a lazily connecting client for endpointURL.
func NewGRPCClient(endpointURL string, tokens TokenSource, opts ...Option) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, tokens: tokens, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.sessionTokenInterceptor),
	}, c.dialOpts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client %s: %w", endpointURL, err)
	}
	c.conn = conn
	c.closer = conn
	return c, nil
}

func (c *GRPCClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

func (c *GRPCClient) call(ctx context.Context, method string, req map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, mapError(err)
	}
	return out.AsMap(), nil
}

func (c *GRPCClient) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	resp, err := c.call(ctx, MethodLogin, map[string]any{
		"email":    creds.Email,
		"password": creds.Password,
		"token":    creds.VerificationToken,
	})
	if err != nil {
		return AuthResult{}, err
	}
	return parseAuthResult(resp)
}

func (c *GRPCClient) Register(ctx context.Context, reg Registration) (AuthResult, error) {
	resp, err := c.call(ctx, MethodRegister, map[string]any{
		"userName": reg.UserName,
		"email":    reg.Email,
		"password": reg.Password,
		"code":     reg.Code,
	})
	if err != nil {
		return AuthResult{}, err
	}
	return parseAuthResult(resp)
}

// Refresh trades a long-term token for a new session token. An empty token
// with a nil error means the server declined without failing the call.
func (c *GRPCClient) Refresh(ctx context.Context, longTermToken string) (string, error) {
	resp, err := c.call(ctx, MethodRefreshToken, map[string]any{"token": longTermToken})
	if err != nil {
		return "", err
	}
	token, _ := resp[fieldToken].(string)
	return token, nil
}

func (c *GRPCClient) SendResetEmail(ctx context.Context, email, verificationToken string) error {
	_, err := c.call(ctx, MethodSendResetEmail, map[string]any{"email": email, "token": verificationToken})
	return err
}

func (c *GRPCClient) SendRegisterEmail(ctx context.Context, email, verificationToken string) error {
	_, err := c.call(ctx, MethodSendRegisterEmail, map[string]any{"email": email, "token": verificationToken})
	return err
}

func (c *GRPCClient) ResetPassword(ctx context.Context, email, newPassword, code string) error {
	_, err := c.call(ctx, MethodResetPassword, map[string]any{
		"email":       email,
		"code":        code,
		"newPassword": newPassword,
	})
	return err
}

func parseAuthResult(resp map[string]any) (AuthResult, error) {
	token, _ := resp[fieldToken].(string)
	refresh, _ := resp[fieldRefreshToken].(string)
	if token == "" || refresh == "" {
		return AuthResult{}, fmt.Errorf("%w: credential exchange without token pair", ErrMalformedResponse)
	}

	profile := make(map[string]any, len(resp))
	for k, v := range resp {
		if k == fieldToken || k == fieldRefreshToken {
			continue
		}
		profile[k] = v
	}
	return AuthResult{Token: token, RefreshToken: refresh, Profile: profile}, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied, codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
