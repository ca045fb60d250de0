package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/shelfkeeper/internal/client/realtime"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/remote"
	"github.com/dmitrijs2005/shelfkeeper/internal/client/tokens"
	v1 "github.com/dmitrijs2005/shelfkeeper/internal/contracts/realtime/v1"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/metrics"
)

// Identity is the GetMyInfo result. It is fetched on every bootstrap and
// never cached.
type Identity map[string]any

// Exchanger is the request/response side the orchestrator needs.
type Exchanger interface {
	Login(ctx context.Context, creds remote.Credentials) (remote.AuthResult, error)
	Register(ctx context.Context, reg remote.Registration) (remote.AuthResult, error)
	Refresh(ctx context.Context, longTermToken string) (string, error)
}

// Channel is the realtime side the orchestrator needs.
type Channel interface {
	Reboot(ctx context.Context) (realtime.Generation, error)
	CallOn(ctx context.Context, gen realtime.Generation, target string, payload, out any) error
	Close() error
}

type Orchestrator struct {
	api      Exchanger
	channel  Channel
	volatile *tokens.Volatile
	durable  tokens.Durable
	log      logging.Logger
	metrics  *metrics.Collector
	hook     TransitionHook

	mu   sync.Mutex
	seq  uint64
	snap Snapshot
}

type Option func(*Orchestrator)

func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) {
		o.metrics = c
	}
}

// WithTransitionHook registers fn for every state change. fn runs
// synchronously on the bootstrapping goroutine.
func WithTransitionHook(fn TransitionHook) Option {
	return func(o *Orchestrator) {
		o.hook = fn
	}
}

func New(api Exchanger, channel Channel, volatile *tokens.Volatile, durable tokens.Durable, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		api:      api,
		channel:  channel,
		volatile: volatile,
		durable:  durable,
		log:      logging.Nop{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With("module", "session")
	return o
}

// Snapshot reports the most recently started operation. A run overtaken by
// a newer one keeps reporting to the hook but no longer moves the snapshot.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap
}

// Login exchanges credentials and brings the session up.
func (o *Orchestrator) Login(ctx context.Context, email, password, verificationToken string) (remote.AuthResult, Identity, error) {
	creds := remote.Credentials{Email: email, Password: password, VerificationToken: verificationToken}
	return o.bootstrap(ctx, OperationLogin, func(ctx context.Context) (remote.AuthResult, error) {
		return o.api.Login(ctx, creds)
	})
}

// Register creates the account and brings the session up.
func (o *Orchestrator) Register(ctx context.Context, userName, email, password, code string) (remote.AuthResult, Identity, error) {
	reg := remote.Registration{UserName: userName, Email: email, Password: password, Code: code}
	return o.bootstrap(ctx, OperationRegister, func(ctx context.Context) (remote.AuthResult, error) {
		return o.api.Register(ctx, reg)
	})
}

// RefreshToken trades longTermToken for a new session token and stores it
// in memory. It reports ("", false) on any failure and leaves the stored
// session token untouched.
func (o *Orchestrator) RefreshToken(ctx context.Context, longTermToken string) (string, bool) {
	if longTermToken == "" {
		o.metrics.Refresh(metrics.OutcomeFailure)
		return "", false
	}

	token, err := o.api.Refresh(ctx, longTermToken)
	if err != nil {
		o.metrics.Refresh(metrics.OutcomeFailure)
		o.log.Warn(ctx, "session.refresh.fail", "err", err)
		return "", false
	}
	if token == "" {
		o.metrics.Refresh(metrics.OutcomeFailure)
		o.log.Warn(ctx, "session.refresh.empty")
		return "", false
	}

	o.volatile.Set(token)
	o.metrics.Refresh(metrics.OutcomeSuccess)
	o.log.Debug(ctx, "session.refresh.ok")
	return token, true
}

// Resume restores a session from the stored long-term token.
func (o *Orchestrator) Resume(ctx context.Context) (Identity, error) {
	lt, err := o.durable.Get(ctx)
	if err != nil {
		return nil, &Failure{Kind: KindPersistence, State: StateIdle, Err: err}
	}
	if lt == "" {
		return nil, ErrNoStoredSession
	}
	if _, ok := o.RefreshToken(ctx, lt); !ok {
		return nil, ErrLoginRequired
	}

	r := o.begin(OperationResume, StateRebootingChannel)
	r.mutated = true
	return o.bringUp(ctx, r)
}

// Logout forgets both tokens and drops the realtime channel.
func (o *Orchestrator) Logout(ctx context.Context) error {
	o.volatile.Clear()

	var errs []error
	if err := o.durable.Delete(ctx); err != nil {
		errs = append(errs, &Failure{Kind: KindPersistence, State: StateIdle, Err: err})
	}
	if err := o.channel.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close realtime channel: %w", err))
	}

	o.mu.Lock()
	o.seq++
	o.snap = Snapshot{Operation: OperationLogout, State: StateIdle, TokensMutated: true}
	o.mu.Unlock()

	o.log.Info(ctx, "session.logout")
	return errors.Join(errs...)
}

func (o *Orchestrator) bootstrap(
	ctx context.Context,
	op string,
	exchange func(ctx context.Context) (remote.AuthResult, error),
) (remote.AuthResult, Identity, error) {
	r := o.begin(op, StateExchanging)

	res, err := exchange(ctx)
	if err != nil {
		return remote.AuthResult{}, nil, o.fail(ctx, r, KindAuth, err)
	}

	o.volatile.Set(res.Token)
	r.mutated = true
	o.to(r, StatePersistingToken)

	if err := o.durable.Set(ctx, res.RefreshToken); err != nil {
		return remote.AuthResult{}, nil, o.fail(ctx, r, KindPersistence, err)
	}

	o.to(r, StateRebootingChannel)
	identity, err := o.bringUp(ctx, r)
	if err != nil {
		return remote.AuthResult{}, nil, err
	}
	return res, identity, nil
}

// bringUp reboots the channel and fetches the identity over the new generation.
func (o *Orchestrator) bringUp(ctx context.Context, r *run) (Identity, error) {
	gen, err := o.channel.Reboot(ctx)
	if err != nil {
		return nil, o.fail(ctx, r, KindChannel, err)
	}
	r.gen = gen
	o.to(r, StateFetchingIdentity)

	var identity Identity
	if err := o.channel.CallOn(ctx, gen, v1.MethodGetMyInfo, nil, &identity); err != nil {
		return nil, o.fail(ctx, r, KindChannel, err)
	}
	if identity == nil {
		identity = Identity{}
	}

	o.to(r, StateLive)
	o.metrics.Bootstrap(r.op, metrics.OutcomeSuccess, "")
	o.log.Info(ctx, "session.bootstrap.ok", "operation", r.op, "generation", gen)
	return identity, nil
}

// ---- state tracking ----

type run struct {
	seq     uint64
	op      string
	state   State
	gen     realtime.Generation
	mutated bool
}

func (o *Orchestrator) begin(op string, first State) *run {
	o.mu.Lock()
	o.seq++
	r := &run{seq: o.seq, op: op, state: StateIdle}
	o.mu.Unlock()

	o.to(r, first)
	return r
}

func (o *Orchestrator) to(r *run, next State) {
	o.record(r, next, KindNone)
}

func (o *Orchestrator) record(r *run, next State, kind Kind) {
	from := r.state
	r.state = next

	o.mu.Lock()
	if r.seq == o.seq {
		o.snap = Snapshot{
			Operation:     r.op,
			State:         next,
			Kind:          kind,
			Generation:    r.gen,
			TokensMutated: r.mutated,
		}
	}
	o.mu.Unlock()

	if o.hook != nil {
		o.hook(Transition{Operation: r.op, From: from, To: next, Kind: kind})
	}
}

func (o *Orchestrator) fail(ctx context.Context, r *run, kind Kind, err error) error {
	f := &Failure{Kind: kind, State: r.state, Err: err}
	o.record(r, StateFailed, kind)

	o.metrics.Bootstrap(r.op, metrics.OutcomeFailure, kind.String())
	o.log.Warn(ctx, "session.bootstrap.fail",
		"operation", r.op,
		"state", f.State.String(),
		"kind", kind.String(),
		"tokens_mutated", r.mutated,
		"err", err,
	)
	return f
}
