package realtime

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fprax/notify/internal/wire"
)

func newTestPolicy() *Policy {
	return NewPolicy(DefaultPolicyConfig(), zap.NewNop())
}

func TestPolicy_BackoffSchedule(t *testing.T) {
	p := newTestPolicy()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for attempt, expected := range want {
		if got := p.Delay(attempt); got != expected {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, expected)
		}
	}

	// Beyond the schedule the delay is capped.
	if got := p.Delay(5); got != 30*time.Second {
		t.Errorf("Delay(5) = %v, want 30s", got)
	}
	if got := p.Delay(20); got != 30*time.Second {
		t.Errorf("Delay(20) = %v, want 30s", got)
	}
}

func TestPolicy_ConnectionLostSchedulesRetries(t *testing.T) {
	p := newTestPolicy()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for i, expected := range want {
		delay, retry := p.ConnectionLost(1006)
		if !retry {
			t.Fatalf("attempt %d: expected retry", i+1)
		}
		if delay != expected {
			t.Errorf("attempt %d: delay = %v, want %v", i+1, delay, expected)
		}
		if p.GetState() != StateReconnecting {
			t.Errorf("attempt %d: state = %v, want reconnecting", i+1, p.GetState())
		}
	}
}

func TestPolicy_AttemptCeiling(t *testing.T) {
	p := newTestPolicy()

	for i := 0; i < 5; i++ {
		if _, retry := p.ConnectionLost(1006); !retry {
			t.Fatalf("attempt %d: expected retry", i+1)
		}
	}

	// Sixth consecutive failure gives up.
	if _, retry := p.ConnectionLost(1006); retry {
		t.Fatal("expected no retry past the attempt ceiling")
	}
	if p.GetState() != StateIdle {
		t.Errorf("state = %v, want idle", p.GetState())
	}
}

func TestPolicy_ConnectSucceededResetsAttempts(t *testing.T) {
	p := newTestPolicy()

	p.ConnectionLost(1006)
	p.ConnectionLost(1006)
	p.ConnectSucceeded()

	if p.Attempts() != 0 {
		t.Errorf("attempts = %d, want 0", p.Attempts())
	}
	if p.GetState() != StateConnected {
		t.Errorf("state = %v, want connected", p.GetState())
	}

	// The next loss restarts the schedule from the base delay.
	delay, retry := p.ConnectionLost(1006)
	if !retry || delay != 1*time.Second {
		t.Errorf("ConnectionLost after success = (%v, %v), want (1s, true)", delay, retry)
	}
}

func TestPolicy_AuthRejectIsTerminal(t *testing.T) {
	p := newTestPolicy()

	if _, retry := p.ConnectionLost(wire.CloseAuthRejected); retry {
		t.Fatal("expected no retry on auth rejection")
	}
	if p.GetState() != StateAuthFailed {
		t.Errorf("state = %v, want auth-failed", p.GetState())
	}

	// Subsequent transient losses do not revive the retry loop.
	if _, retry := p.ConnectionLost(1006); retry {
		t.Fatal("expected auth-failed to stay terminal")
	}
}

func TestPolicy_ResetClearsAuthFailure(t *testing.T) {
	p := newTestPolicy()

	p.ConnectionLost(wire.CloseAuthRejected)
	p.Reset()

	if p.GetState() != StateIdle {
		t.Errorf("state = %v, want idle after reset", p.GetState())
	}
	if _, retry := p.ConnectionLost(1006); !retry {
		t.Fatal("expected retry after reset")
	}
}

func TestPolicy_StateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:         "idle",
		StateConnected:    "connected",
		StateReconnecting: "reconnecting",
		StateAuthFailed:   "auth-failed",
		State(99):         "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
