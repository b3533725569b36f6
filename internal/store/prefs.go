package store

import (
	"sync"

	"github.com/fprax/notify/internal/wire"
)

// PreferencesHolder keeps the session's notification preferences. They are
// fetched once per authenticated session and mutated only by explicit
// updates; server preferences_updated acknowledgments do not overwrite
// local state, which initiated the change and is assumed already correct.
type PreferencesHolder struct {
	mu     sync.Mutex
	prefs  wire.Preferences
	loaded bool
}

// NewPreferencesHolder starts with default preferences until the first Set.
func NewPreferencesHolder() *PreferencesHolder {
	return &PreferencesHolder{prefs: wire.DefaultPreferences()}
}

// Set replaces the preferences with the server-fetched record.
func (h *PreferencesHolder) Set(p wire.Preferences) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prefs = p
	h.loaded = true
}

// Patch applies a local partial update.
func (h *PreferencesHolder) Patch(p wire.PreferencesPatch) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prefs = p.Apply(h.prefs)
}

// Current returns the preferences snapshot.
func (h *PreferencesHolder) Current() wire.Preferences {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.prefs
}

// Loaded reports whether the server record has been fetched this session.
func (h *PreferencesHolder) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loaded
}

// PushEnabled reports the push channel toggle.
func (h *PreferencesHolder) PushEnabled() bool {
	return h.Current().PushNotifications
}
