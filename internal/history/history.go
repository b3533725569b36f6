// Package history persists delivered notifications and per-user
// preferences for the development backend, serving the history,
// preferences, and mark-all-read REST contracts.
package history

import (
	"context"

	"github.com/fprax/notify/internal/wire"
)

// Page is one slice of a user's history plus the unread total.
type Page struct {
	Notifications []wire.Notification `json:"notifications"`
	UnreadCount   int                 `json:"unread_count"`
}

// Repository stores notification history and preferences per user.
type Repository interface {
	Append(ctx context.Context, userID string, n wire.Notification) error
	// List returns notifications newest first with the user's unread count.
	List(ctx context.Context, userID string, limit, offset int) (*Page, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	GetPreferences(ctx context.Context, userID string) (wire.Preferences, error)
	PutPreferences(ctx context.Context, userID string, prefs wire.Preferences) error
}
