// Package store holds the ordered, de-duplicated, capacity-bounded
// collection of notification records for one authenticated session, with
// derived unread counts for the UI.
package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fprax/notify/internal/wire"
)

// DefaultCapacity is the number of most-recent notifications retained.
// Older records are evicted silently; eviction is not an error condition.
const DefaultCapacity = 50

// CommandSender transmits outbound commands on the real-time transport.
// Commands issued while the transport is down are dropped, not queued.
type CommandSender interface {
	Send(cmd any) error
}

// BulkMarker performs the server-side bulk mark-as-read call (REST, not
// the real-time transport).
type BulkMarker interface {
	MarkAllRead(ctx context.Context) error
}

// Store is owned exclusively by one client session. It is discarded on
// logout and rebuilt fresh on the next authenticated session.
type Store struct {
	mu       sync.Mutex
	items    []*wire.Notification // newest first
	index    map[string]*wire.Notification
	unread   int
	capacity int

	sender CommandSender
	bulk   BulkMarker
	logger *zap.Logger
}

// Config holds store construction parameters.
type Config struct {
	// Capacity bounds the store; zero means DefaultCapacity.
	Capacity int
}

// New creates an empty store. sender and bulk may be nil; the corresponding
// side effects are then skipped (mark-as-read stays local-only).
func New(cfg Config, sender CommandSender, bulk BulkMarker, logger *zap.Logger) *Store {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	return &Store{
		index:    make(map[string]*wire.Notification),
		capacity: cfg.Capacity,
		sender:   sender,
		bulk:     bulk,
		logger:   logger,
	}
}

// BindSender attaches the outbound command sender after construction.
// The transport manager and the store reference each other, so one side
// binds late.
func (s *Store) BindSender(sender CommandSender) {
	s.mu.Lock()
	s.sender = sender
	s.mu.Unlock()
}

// Insert adds a notification at the head of the store. Inserting a
// duplicate id is a no-op; the first record wins. It reports whether the
// record was actually inserted.
func (s *Store) Insert(n wire.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(n)
}

// InsertBacklog inserts queued notifications in array order, oldest first,
// preserving overall newest-first store ordering. It returns the number of
// records inserted.
func (s *Store) InsertBacklog(ns []wire.Notification) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, n := range ns {
		if s.insertLocked(n) {
			inserted++
		}
	}
	return inserted
}

func (s *Store) insertLocked(n wire.Notification) bool {
	if _, ok := s.index[n.ID]; ok {
		return false
	}
	rec := n
	s.items = append([]*wire.Notification{&rec}, s.items...)
	s.index[n.ID] = &rec
	if !rec.Read {
		s.unread++
	}

	// Evict oldest beyond capacity.
	for len(s.items) > s.capacity {
		last := s.items[len(s.items)-1]
		s.items = s.items[:len(s.items)-1]
		delete(s.index, last.ID)
		if !last.Read {
			s.unread--
		}
	}
	return true
}

// MarkAsRead marks the matching record read locally (optimistic) and sends
// a mark_notification_read command best-effort. A send failure is logged
// but does not roll back the local state.
func (s *Store) MarkAsRead(id string) {
	s.mu.Lock()
	rec, ok := s.index[id]
	if ok && !rec.Read {
		rec.Read = true
		if s.unread > 0 {
			s.unread--
		}
	}
	sender := s.sender
	s.mu.Unlock()

	if !ok || sender == nil {
		return
	}
	if err := sender.Send(wire.NewMarkReadCommand(id)); err != nil {
		s.logger.Warn("mark-read command not delivered",
			zap.String("id", id),
			zap.Error(err),
		)
	}
}

// ConfirmRead applies a server notification_marked_read acknowledgment.
// Idempotent: confirming an already-read or unknown record changes nothing.
func (s *Store) ConfirmRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.index[id]
	if !ok || rec.Read {
		return
	}
	rec.Read = true
	if s.unread > 0 {
		s.unread--
	}
}

// MarkAllAsRead requests the server-side bulk mark-as-read and, only on
// success, marks every local record read and zeroes the unread counter.
// On failure local state is left unchanged. A notification arriving over
// the socket while the call is in flight is still covered: the bulk
// "set all to read" runs after the call resolves.
func (s *Store) MarkAllAsRead(ctx context.Context) error {
	if s.bulk != nil {
		if err := s.bulk.MarkAllRead(ctx); err != nil {
			s.logger.Error("bulk mark-all-read failed", zap.Error(err))
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.items {
		rec.Read = true
	}
	s.unread = 0
	return nil
}

// Clear discards every record. Called when the session ends.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.index = make(map[string]*wire.Notification)
	s.unread = 0
}

// UnreadCount returns the number of unread records.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// HasUnread reports whether any record is unread.
func (s *Store) HasUnread() bool {
	return s.UnreadCount() > 0
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// All returns every record, newest first.
func (s *Store) All() []wire.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked(s.items)
}

// Recent returns the first n records by store order (newest first).
func (s *Store) Recent(n int) []wire.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.items) {
		n = len(s.items)
	}
	return s.copyLocked(s.items[:n])
}

// PriorityUnread returns records that are unread and high priority.
func (s *Store) PriorityUnread() []wire.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []wire.Notification
	for _, rec := range s.items {
		if !rec.Read && rec.Priority == wire.PriorityHigh {
			out = append(out, *rec)
		}
	}
	return out
}

func (s *Store) copyLocked(recs []*wire.Notification) []wire.Notification {
	out := make([]wire.Notification, len(recs))
	for i, rec := range recs {
		out[i] = *rec
	}
	return out
}
