package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	v1 "github.com/dmitrijs2005/shelfkeeper/internal/contracts/realtime/v1"
	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/metrics"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultReadLimit        = 16 << 20
)

// Generation identifies one reboot of the channel. Zero means "never rebooted".
type Generation uint64

// TokenSource yields the current session token.
type TokenSource interface {
	Get() string
}

type Manager struct {
	url              string
	tokens           TokenSource
	httpClient       *http.Client
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	readLimit        int64
	log              logging.Logger
	metrics          *metrics.Collector
	now              func() time.Time

	mu   sync.Mutex
	gen  Generation
	live *conn
}

type Option func(*Manager)

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) {
		m.metrics = c
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = c
	}
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.handshakeTimeout = d
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.writeTimeout = d
		}
	}
}

// NewManager creates a manager for the websocket endpoint url. It does not dial.
func NewManager(url string, tokens TokenSource, opts ...Option) *Manager {
	m := &Manager{
		url:              url,
		tokens:           tokens,
		handshakeTimeout: DefaultHandshakeTimeout,
		writeTimeout:     DefaultWriteTimeout,
		readLimit:        DefaultReadLimit,
		log:              logging.Nop{},
		now:              func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("module", "realtime")
	return m
}

// Generation returns the generation of the most recently started reboot.
func (m *Manager) Generation() Generation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Reboot closes the current connection and opens a new one authenticated
// with the session token read at call time. A reboot overtaken by a newer
// one returns ErrSuperseded and leaves the newer connection in place.
func (m *Manager) Reboot(ctx context.Context) (Generation, error) {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	old := m.live
	m.live = nil
	m.mu.Unlock()

	if old != nil {
		old.shutdown(ErrSuperseded, websocket.StatusNormalClosure, "reboot")
	}

	token := m.tokens.Get()
	if token == "" {
		m.metrics.Reboot(metrics.OutcomeFailure)
		return 0, ErrNoSessionToken
	}

	c, err := m.dial(ctx, gen, token)
	if err != nil {
		m.metrics.Reboot(metrics.OutcomeFailure)
		m.log.Warn(ctx, "realtime.reboot.fail", "generation", gen, "err", err)
		return 0, err
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		c.shutdown(ErrSuperseded, websocket.StatusNormalClosure, "superseded")
		m.metrics.Reboot(metrics.OutcomeSuperseded)
		m.log.Info(ctx, "realtime.reboot.superseded", "generation", gen)
		return 0, ErrSuperseded
	}
	m.live = c
	m.mu.Unlock()

	m.metrics.Reboot(metrics.OutcomeSuccess)
	m.log.Info(ctx, "realtime.reboot.ok", "generation", gen, "session_id", c.sessionID)
	return gen, nil
}

// Call invokes target on the live connection, whatever its generation.
func (m *Manager) Call(ctx context.Context, target string, payload, out any) error {
	m.mu.Lock()
	c := m.live
	m.mu.Unlock()

	if c == nil {
		return ErrNotConnected
	}
	return c.invoke(ctx, target, payload, out)
}

// CallOn invokes target only if gen is still the current generation.
func (m *Manager) CallOn(ctx context.Context, gen Generation, target string, payload, out any) error {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return ErrSuperseded
	}
	c := m.live
	m.mu.Unlock()

	if c == nil || c.gen != gen {
		return ErrNotConnected
	}
	return c.invoke(ctx, target, payload, out)
}

// Close drops the live connection. Reboots still in flight are superseded.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.gen++
	c := m.live
	m.live = nil
	m.mu.Unlock()

	if c != nil {
		c.shutdown(ErrChannelClosed, websocket.StatusNormalClosure, "bye")
	}
	return nil
}

func (m *Manager) dial(ctx context.Context, gen Generation, token string) (*conn, error) {
	hctx, cancel := context.WithTimeout(ctx, m.handshakeTimeout)
	defer cancel()

	ws, _, err := websocket.Dial(hctx, m.url, &websocket.DialOptions{
		HTTPClient:   m.httpClient,
		Subprotocols: []string{v1.Subprotocol},
	})
	if err != nil {
		return nil, fmt.Errorf("dial realtime channel: %w", err)
	}
	if sp := ws.Subprotocol(); sp != v1.Subprotocol {
		_ = ws.Close(websocket.StatusProtocolError, "subprotocol required")
		return nil, fmt.Errorf("dial realtime channel: unexpected subprotocol %q", sp)
	}
	ws.SetReadLimit(m.readLimit)

	sessionID, err := m.hello(hctx, ws, token)
	if err != nil {
		_ = ws.Close(websocket.StatusPolicyViolation, "hello failed")
		return nil, err
	}

	c := newConn(gen, ws, sessionID, m)
	go c.readLoop()
	return c, nil
}

func (m *Manager) hello(ctx context.Context, ws *websocket.Conn, token string) (string, error) {
	payload, err := json.Marshal(v1.HelloPayload{Token: token})
	if err != nil {
		return "", err
	}
	now := m.now()
	id, err := newEnvelopeID(now)
	if err != nil {
		return "", err
	}
	if err := writeEnvelope(ctx, ws, newEnvelope(v1.TypeHello, id, "", payload, now), m.writeTimeout); err != nil {
		return "", fmt.Errorf("send hello: %w", err)
	}

	env, err := readEnvelope(ctx, ws)
	if err != nil {
		return "", fmt.Errorf("read hello_ack: %w", err)
	}
	switch env.Type {
	case v1.TypeHelloAck:
		var ack v1.HelloAckPayload
		if err := json.Unmarshal(env.Payload, &ack); err != nil {
			return "", fmt.Errorf("decode hello_ack: %w", err)
		}
		return ack.SessionID, nil
	case v1.TypeError:
		return "", remoteError("", env)
	default:
		return "", fmt.Errorf("unexpected %q before hello_ack", env.Type)
	}
}

// ---- connection ----

type reply struct {
	env v1.Envelope
	err error
}

type conn struct {
	gen       Generation
	ws        *websocket.Conn
	sessionID string
	m         *Manager

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	pending  map[string]chan reply
	closed   bool
	closeErr error
}

func newConn(gen Generation, ws *websocket.Conn, sessionID string, m *Manager) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &conn{
		gen:       gen,
		ws:        ws,
		sessionID: sessionID,
		m:         m,
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[string]chan reply),
	}
}

func (c *conn) readLoop() {
	for {
		env, err := readEnvelope(c.ctx, c.ws)
		if err != nil {
			if c.ctx.Err() == nil {
				c.m.log.Warn(c.ctx, "realtime.read.fail", "generation", c.gen, "close_status", websocket.CloseStatus(err), "err", err)
			}
			c.shutdown(fmt.Errorf("%w: %v", ErrChannelClosed, err), websocket.StatusAbnormalClosure, "read failed")
			return
		}

		switch env.Type {
		case v1.TypeResult, v1.TypeError:
			c.mu.Lock()
			ch, ok := c.pending[env.ID]
			delete(c.pending, env.ID)
			c.mu.Unlock()
			if ok {
				ch <- reply{env: env}
				continue
			}
		}
		c.m.log.Debug(c.ctx, "realtime.read.unmatched", "type", env.Type, "id", env.ID)
	}
}

// shutdown fails every pending call with cause and closes the socket. Idempotent.
func (c *conn) shutdown(cause error, code websocket.StatusCode, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = cause
	pending := c.pending
	c.pending = make(map[string]chan reply)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- reply{err: cause}
	}
	c.cancel()
	_ = c.ws.Close(code, reason)
}

func (c *conn) invoke(ctx context.Context, target string, payload, out any) error {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", target, err)
		}
		raw = b
	}

	now := c.m.now()
	id, err := newEnvelopeID(now)
	if err != nil {
		return err
	}

	ch := make(chan reply, 1)
	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		return err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := writeEnvelope(ctx, c.ws, newEnvelope(v1.TypeInvoke, id, target, raw, now), c.m.writeTimeout); err != nil {
		c.mu.Lock()
		closed, closeErr := c.closed, c.closeErr
		c.mu.Unlock()
		if closed {
			return closeErr
		}
		return fmt.Errorf("send %s: %w", target, err)
	}

	var r reply
	select {
	case r = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}
	if r.err != nil {
		return r.err
	}

	if r.env.Type == v1.TypeError {
		return remoteError(target, r.env)
	}
	if out == nil || len(r.env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.env.Payload, out); err != nil {
		return fmt.Errorf("decode %s result: %w", target, err)
	}
	return nil
}
