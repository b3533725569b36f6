// Package session supplies the authenticated identity and bearer credential
// consumed by the real-time connection and the REST client. It is an
// injectable provider rather than a global so reconnect-on-change behavior
// can subscribe to it explicitly.
package session

import (
	"strings"
	"sync"
)

// Snapshot is the session state at a point in time. The token is read fresh
// at each connect; it is never refreshed mid-connection.
type Snapshot struct {
	Authenticated bool
	Token         string
	UserID        string
}

// Provider exposes the current session and a change feed.
type Provider interface {
	Current() Snapshot
	// Subscribe returns a channel receiving a snapshot after every Set or
	// Clear. The channel is closed by Close.
	Subscribe() <-chan Snapshot
	Close()
}

// TokenWellFormed reports whether tok looks like a three-segment signed
// token. This is a syntactic check only; no signature verification happens
// client-side.
func TokenWellFormed(tok string) bool {
	if tok == "" {
		return false
	}
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// Static is an in-process Provider with explicit Set/Clear mutation.
type Static struct {
	mu   sync.Mutex
	snap Snapshot
	subs []chan Snapshot
}

// NewStatic creates a provider seeded with the given credential. An empty
// token yields an unauthenticated session.
func NewStatic(token, userID string) *Static {
	s := &Static{}
	if token != "" {
		s.snap = Snapshot{Authenticated: true, Token: token, UserID: userID}
	}
	return s
}

// Current returns the latest snapshot.
func (s *Static) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Set installs a new credential and notifies subscribers.
func (s *Static) Set(token, userID string) {
	s.mu.Lock()
	s.snap = Snapshot{Authenticated: true, Token: token, UserID: userID}
	s.notifyLocked()
	s.mu.Unlock()
}

// Clear ends the session (logout) and notifies subscribers.
func (s *Static) Clear() {
	s.mu.Lock()
	s.snap = Snapshot{}
	s.notifyLocked()
	s.mu.Unlock()
}

// Subscribe registers a change feed. Sends are non-blocking; a slow
// subscriber misses intermediate snapshots, not the latest one it reads
// via Current.
func (s *Static) Subscribe() <-chan Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Snapshot, 1)
	s.subs = append(s.subs, ch)
	return ch
}

// Close closes all subscriber channels.
func (s *Static) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

func (s *Static) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- s.snap:
		default:
			// drop stale pending snapshot, deliver the fresh one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s.snap:
			default:
			}
		}
	}
}
