package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/client/account"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/config"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/realtime"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/remote"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/session"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/storage"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/tokens"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// SessionService is the session surface the CLI drives.
type SessionService interface {
	Login(ctx context.Context, email, password, verificationToken string) (remote.AuthResult, session.Identity, error)
	Register(ctx context.Context, userName, email, password, code string) (remote.AuthResult, session.Identity, error)
	Resume(ctx context.Context) (session.Identity, error)
	Logout(ctx context.Context) error
	Snapshot() session.Snapshot
}

// AccountService is the one-shot account surface the CLI drives.
type AccountService interface {
	SendResetEmail(ctx context.Context, email, verificationToken string) error
	SendRegisterEmail(ctx context.Context, email, verificationToken string) error
	ResetPassword(ctx context.Context, email, newPassword, code string) error
	GetMyInfo(ctx context.Context) (map[string]any, error)
	GetReadHistory(ctx context.Context) ([]json.RawMessage, error)
	GetBookShelf(ctx context.Context) (account.Shelf, error)
	ClearHistory(ctx context.Context) error
	SetAvatar(ctx context.Context, url string) error
}

type App struct {
	session      SessionService
	account      AccountService
	sessionToken func() string
	savedAt      func(ctx context.Context) (time.Time, error)
	metrics      prometheus.Gatherer
	reader       *bufio.Reader
	out          io.Writer
	log          logging.Logger
	userName     string
	closers      []func() error
}

// NewApp opens local storage and wires the transports and services.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := storage.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	reg := prometheus.NewRegistry()
	col, err := metrics.New(reg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	vol := tokens.NewVolatile()

	api, err := remote.NewGRPCClient(c.ServerEndpointAddr, vol, remote.WithTimeout(c.RequestTimeout))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	channel := realtime.NewManager(c.RealtimeURL, vol,
		realtime.WithLogger(log),
		realtime.WithMetrics(col),
		realtime.WithHandshakeTimeout(c.HandshakeTimeout),
	)

	durable := tokens.NewMetadataDurable(db, metadata.SQLite)
	orch := session.New(api, channel, vol, durable,
		session.WithLogger(log),
		session.WithMetrics(col),
		session.WithTransitionHook(func(tr session.Transition) {
			log.Debug(ctx, "session.transition",
				"operation", tr.Operation,
				"from", tr.From.String(),
				"to", tr.To.String(),
				"kind", tr.Kind.String(),
			)
		}),
	)

	return &App{
		session:      orch,
		account:      account.NewService(api, channel),
		sessionToken: vol.Get,
		savedAt:      durable.SavedAt,
		metrics:      reg,
		reader:       bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		log:          log.With("module", "cli"),
		closers:      []func() error{channel.Close, api.Close, db.Close},
	}, nil
}

// Close releases the channel, the gRPC connection and the database.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run resumes the stored session if there is one and starts the REPL.
func (a *App) Run(ctx context.Context) error {
	fmt.Fprintln(a.out, "Welcome to shelfkeeper (type 'help' for commands)")

	if err := a.Resume(ctx); err != nil && !errors.Is(err, session.ErrNoStoredSession) {
		a.log.Warn(ctx, "cli.resume.fail", "err", err)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

// Metrics prints the counters collected in this process.
func (a *App) Metrics(context.Context) error {
	if a.metrics == nil {
		fmt.Fprintln(a.out, "metrics are not enabled")
		return nil
	}
	return metrics.Write(a.out, a.metrics)
}

func (a *App) isLoggedIn() bool {
	return a.session.Snapshot().State == session.StateLive
}

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if st := a.session.Snapshot().State; st != session.StateIdle {
		s += st.String()
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}
