package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/fprax/notify/internal/wire"
)

// Memory is an in-process Repository used when Postgres is not configured
// and in handler tests.
type Memory struct {
	mu    sync.Mutex
	items map[string][]wire.Notification // per user, newest first
	prefs map[string]wire.Preferences
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		items: make(map[string][]wire.Notification),
		prefs: make(map[string]wire.Preferences),
	}
}

// Append prepends a notification to the user's history.
func (m *Memory) Append(ctx context.Context, userID string, n wire.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items[userID] {
		if existing.ID == n.ID {
			return nil
		}
	}
	m.items[userID] = append([]wire.Notification{n}, m.items[userID]...)
	return nil
}

// List returns a page of history, newest first.
func (m *Memory) List(ctx context.Context, userID string, limit, offset int) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}

	all := m.items[userID]
	page := &Page{Notifications: []wire.Notification{}}
	for _, n := range all {
		if !n.Read {
			page.UnreadCount++
		}
	}

	if offset < len(all) {
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		page.Notifications = append(page.Notifications, all[offset:end]...)
	}
	return page, nil
}

// MarkRead marks one notification read.
func (m *Memory) MarkRead(ctx context.Context, userID, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.items[userID]
	for i := range list {
		if list[i].ID == notificationID {
			list[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("notification not found: %s", notificationID)
}

// MarkAllRead marks the user's entire history read.
func (m *Memory) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	list := m.items[userID]
	for i := range list {
		if !list[i].Read {
			list[i].Read = true
			changed++
		}
	}
	return changed, nil
}

// GetPreferences returns stored preferences or defaults.
func (m *Memory) GetPreferences(ctx context.Context, userID string) (wire.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prefs, ok := m.prefs[userID]; ok {
		return prefs, nil
	}
	return wire.DefaultPreferences(), nil
}

// PutPreferences stores the user's preferences.
func (m *Memory) PutPreferences(ctx context.Context, userID string, prefs wire.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[userID] = prefs
	return nil
}
