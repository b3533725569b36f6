package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State represents the current state of the reconnection policy.
//
// State transitions:
//
//	Connected -> Reconnecting: non-clean close without the auth-reject code
//	Reconnecting -> Connected: successful connect, attempt counter reset
//	* -> AuthFailed:           close carrying the auth-reject code (terminal)
//	Reconnecting -> Idle:      retry ceiling reached, manual reconnect needed
type State int

const (
	StateIdle         State = iota // No connection and no retry scheduled
	StateConnected                 // Transport open
	StateReconnecting              // Backoff retry pending or in progress
	StateAuthFailed                // Credential rejected - no automatic retry
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateAuthFailed:
		return "auth-failed"
	default:
		return "unknown"
	}
}

// PolicyConfig holds the reconnection policy parameters.
type PolicyConfig struct {
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration

	// MaxAttempts is the number of consecutive failed attempts before the
	// policy stops auto-retrying and requires a manual reconnect.
	MaxAttempts int
}

// DefaultPolicyConfig returns the standard backoff schedule:
// 1s, 2s, 4s, 8s, 16s, then give up after 5 attempts.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		MaxAttempts: 5,
	}
}

// Policy decides whether and when a dropped connection is re-established.
// It distinguishes authentication rejections (terminal) from transient
// failures (retried with exponential backoff up to a ceiling).
type Policy struct {
	mu     sync.Mutex
	config PolicyConfig
	logger *zap.Logger

	state    State
	attempts int
}

// NewPolicy creates a reconnection policy.
func NewPolicy(cfg PolicyConfig, logger *zap.Logger) *Policy {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 1 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Policy{config: cfg, logger: logger, state: StateIdle}
}

// Delay computes the backoff delay for the given attempt number:
// min(base << attempt, max).
func (p *Policy) Delay(attempt int) time.Duration {
	d := p.config.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.config.MaxDelay {
			return p.config.MaxDelay
		}
	}
	if d > p.config.MaxDelay {
		return p.config.MaxDelay
	}
	return d
}

// ConnectSucceeded records a successful connect: attempts reset to zero.
func (p *Policy) ConnectSucceeded() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitionTo(StateConnected)
	p.attempts = 0
}

// ConnectionLost classifies a close event. It returns the delay before the
// next attempt and whether a retry should be scheduled at all. An
// authentication rejection is terminal; exceeding the attempt ceiling
// surfaces a disconnected state that requires a manual reconnect.
func (p *Policy) ConnectionLost(closeCode int) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if closeCode == authRejectCode {
		p.transitionTo(StateAuthFailed)
		p.logger.Warn("authentication rejected by server, not reconnecting",
			zap.Int("close_code", closeCode),
		)
		return 0, false
	}

	if p.state == StateAuthFailed {
		return 0, false
	}

	if p.attempts >= p.config.MaxAttempts {
		p.transitionTo(StateIdle)
		p.logger.Warn("reconnect attempt ceiling reached, manual reconnect required",
			zap.Int("attempts", p.attempts),
		)
		return 0, false
	}

	delay := p.Delay(p.attempts)
	p.attempts++
	p.transitionTo(StateReconnecting)

	p.logger.Info("scheduling reconnect",
		zap.Int("attempt", p.attempts),
		zap.Duration("delay", delay),
	)
	return delay, true
}

// Reset returns the policy to Idle, clearing the attempt counter and any
// terminal auth failure. Called on manual reconnect and logout.
func (p *Policy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitionTo(StateIdle)
	p.attempts = 0
}

// GetState returns the current policy state.
func (p *Policy) GetState() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Attempts returns the consecutive failed attempt count.
func (p *Policy) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

// transitionTo changes state (must be called with lock held).
func (p *Policy) transitionTo(newState State) {
	if p.state == newState {
		return
	}
	old := p.state
	p.state = newState
	p.logger.Debug("reconnect policy state transition",
		zap.String("from", old.String()),
		zap.String("to", newState.String()),
	)
}
