// Package realtime owns the lifecycle of the single real-time transport
// connection to the FPRAX notification backend: establishing it with the
// session credential, routing inbound frames, sending outbound commands,
// and re-establishing dropped connections under an exponential backoff
// policy that treats authentication rejections as terminal.
package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fprax/notify/internal/metrics"
	"github.com/fprax/notify/internal/session"
	"github.com/fprax/notify/internal/wire"
)

// authRejectCode is the reserved close code for a rejected credential.
const authRejectCode = wire.CloseAuthRejected

var (
	// ErrNotAuthenticated is returned by Connect without a usable session.
	ErrNotAuthenticated = errors.New("no authenticated session")

	// ErrMalformedToken is returned when the credential is not a
	// three-segment signed token.
	ErrMalformedToken = errors.New("bearer credential is not well-formed")

	// ErrNotConnected is returned by Send when the transport is not open.
	// The command is dropped, not queued.
	ErrNotConnected = errors.New("transport not open, command dropped")
)

// Config holds connection manager parameters.
type Config struct {
	// URL is the statically-configured real-time endpoint
	// (e.g. "ws://localhost:8080/ws/notifications").
	URL string

	// HandshakeTimeout bounds the dial. Zero means 10s.
	HandshakeTimeout time.Duration

	// PingInterval is the keep-alive probe period. Zero disables pings.
	PingInterval time.Duration

	Policy PolicyConfig
}

// ConnectionState is the ephemeral connection view exposed to the UI.
type ConnectionState struct {
	Connected         bool `json:"connected"`
	ReconnectAttempts int  `json:"reconnect_attempts"`
}

// Manager maintains at most one live connection per authenticated session.
// A new Connect supersedes any prior pending connection.
type Manager struct {
	cfg    Config
	sess   session.Provider
	router *Router
	policy *Policy
	dialer *websocket.Dialer
	logger *zap.Logger

	mu        sync.Mutex
	wmu       sync.Mutex // serializes transport writes
	conn      *websocket.Conn
	connected bool
	gen       int // bumped on every connect/disconnect to invalidate loops
	retry     *time.Timer
	lastPong  time.Time
}

// NewManager creates a connection manager. The router's pong callback is
// wired to the manager's liveness tracking.
func NewManager(cfg Config, sess session.Provider, router *Router, logger *zap.Logger) *Manager {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	m := &Manager{
		cfg:    cfg,
		sess:   sess,
		router: router,
		policy: NewPolicy(cfg.Policy, logger),
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger: logger,
	}
	router.OnPong(m.notePong)
	return m
}

// Connect opens the transport with the current credential embedded as a
// connection parameter. Preconditions: an authenticated identity and a
// syntactically well-formed three-segment token.
func (m *Manager) Connect(ctx context.Context) error {
	snap := m.sess.Current()
	if !snap.Authenticated || snap.UserID == "" {
		return ErrNotAuthenticated
	}
	if !session.TokenWellFormed(snap.Token) {
		return ErrMalformedToken
	}

	// Supersede any prior connection or pending retry.
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.stopRetryLocked()
	old := m.conn
	m.conn = nil
	m.connected = false
	m.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	endpoint := m.cfg.URL + "?token=" + url.QueryEscape(snap.Token)
	conn, resp, err := m.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		code := websocket.CloseAbnormalClosure
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			code = authRejectCode
		}
		m.logger.Warn("connect failed",
			zap.String("endpoint", m.cfg.URL),
			zap.Error(err),
		)
		metrics.SetConnected(false)
		m.scheduleReconnect(code)
		return err
	}

	m.mu.Lock()
	if gen != m.gen {
		// superseded while dialing
		m.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	m.conn = conn
	m.connected = true
	m.mu.Unlock()

	m.policy.ConnectSucceeded()
	metrics.SetConnected(true)
	m.logger.Info("real-time connection established",
		zap.String("endpoint", m.cfg.URL),
		zap.String("user_id", snap.UserID),
	)

	go m.readLoop(gen, conn)
	if m.cfg.PingInterval > 0 {
		go m.pingLoop(gen)
	}
	return nil
}

// Disconnect closes the transport cleanly with the supplied reason and
// cancels any pending scheduled reconnection. The notification store is
// not touched here.
func (m *Manager) Disconnect(reason string) {
	m.mu.Lock()
	m.gen++
	m.stopRetryLocked()
	conn := m.conn
	m.conn = nil
	m.connected = false
	m.mu.Unlock()

	m.policy.Reset()
	metrics.SetConnected(false)

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason), deadline)
		_ = conn.Close()
		m.logger.Info("disconnected", zap.String("reason", reason))
	}
}

// Send serializes an outbound command and transmits it. If the transport
// is not open the command is dropped; there is no outbound queueing, so a
// mark-read issued while disconnected diverges from the server until the
// next history refresh.
func (m *Manager) Send(cmd any) error {
	m.mu.Lock()
	conn := m.conn
	connected := m.connected
	m.mu.Unlock()

	if !connected || conn == nil {
		metrics.RecordCommandDropped()
		m.logger.Debug("outbound command dropped, transport closed")
		return ErrNotConnected
	}

	m.wmu.Lock()
	defer m.wmu.Unlock()
	return conn.WriteJSON(cmd)
}

// State returns the ephemeral connection view.
func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	connected := m.connected
	m.mu.Unlock()
	return ConnectionState{
		Connected:         connected,
		ReconnectAttempts: m.policy.Attempts(),
	}
}

// PolicyState returns the reconnection policy state.
func (m *Manager) PolicyState() State {
	return m.policy.GetState()
}

// LastPong returns the time of the most recent keep-alive acknowledgment.
func (m *Manager) LastPong() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPong
}

// WatchSession reconnects when the session changes: a fresh credential
// triggers a connect, de-authentication triggers a clean disconnect.
// Blocks until ctx is cancelled or the provider closes.
func (m *Manager) WatchSession(ctx context.Context) {
	ch := m.sess.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if snap.Authenticated {
				m.policy.Reset()
				if err := m.Connect(ctx); err != nil {
					m.logger.Warn("reconnect on session change failed", zap.Error(err))
				}
			} else {
				m.Disconnect("session ended")
			}
		}
	}
}

func (m *Manager) readLoop(gen int, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(gen, err)
			return
		}
		m.router.Dispatch(context.Background(), raw)
	}
}

func (m *Manager) pingLoop(gen int) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()
	for range ticker.C {
		m.mu.Lock()
		live := gen == m.gen
		m.mu.Unlock()
		if !live {
			return
		}
		if err := m.Send(wire.NewPingCommand()); err != nil {
			return
		}
	}
}

func (m *Manager) notePong() {
	m.mu.Lock()
	m.lastPong = time.Now()
	m.mu.Unlock()
}

func (m *Manager) handleClose(gen int, err error) {
	m.mu.Lock()
	if gen != m.gen {
		// superseded by a newer connection or an explicit disconnect
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.connected = false
	m.mu.Unlock()

	metrics.SetConnected(false)

	code := websocket.CloseAbnormalClosure
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		code = ce.Code
	}

	if code == websocket.CloseNormalClosure || code == websocket.CloseGoingAway {
		m.logger.Info("connection closed cleanly", zap.Int("code", code))
		m.policy.Reset()
		return
	}

	m.logger.Warn("connection lost",
		zap.Int("close_code", code),
		zap.Error(err),
	)
	m.scheduleReconnect(code)
}

// scheduleReconnect asks the policy for a retry slot. At most one retry
// timer is pending at any time; scheduling while one is pending is a no-op.
func (m *Manager) scheduleReconnect(closeCode int) {
	m.mu.Lock()
	if m.retry != nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	delay, ok := m.policy.ConnectionLost(closeCode)
	if !ok {
		return
	}

	m.mu.Lock()
	if m.retry != nil {
		m.mu.Unlock()
		return
	}
	metrics.RecordReconnectAttempt()
	m.retry = time.AfterFunc(delay, func() {
		m.mu.Lock()
		m.retry = nil
		m.mu.Unlock()
		if err := m.Connect(context.Background()); err != nil &&
			!errors.Is(err, ErrNotAuthenticated) && !errors.Is(err, ErrMalformedToken) {
			m.logger.Debug("reconnect attempt failed", zap.Error(err))
		}
	})
	m.mu.Unlock()
}

// stopRetryLocked cancels a pending retry timer. Caller holds mu.
func (m *Manager) stopRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}
