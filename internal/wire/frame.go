package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound frame types
const (
	FrameConnectionEstablished = "connection_established"
	FrameNotification          = "notification"
	FrameQueuedNotifications   = "queued_notifications"
	FrameNotificationRead      = "notification_marked_read"
	FramePreferencesUpdated    = "preferences_updated"
	FramePong                  = "pong"
)

// Outbound command types
const (
	CommandMarkRead          = "mark_notification_read"
	CommandUpdatePreferences = "update_preferences"
	CommandPing              = "ping"
)

// CloseAuthRejected is the reserved close code signalling that the backend
// rejected the bearer credential. It is terminal for auto-reconnect.
const CloseAuthRejected = 4401

// ErrMissingType indicates a frame without a type discriminator.
var ErrMissingType = errors.New("frame has no type field")

// Frame is one discrete inbound message on the real-time transport.
// Data's shape depends on Type.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ParseFrame decodes a raw transport message. Malformed input (non-JSON or
// missing type) is an error the caller is expected to log and discard.
func ParseFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("malformed frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, ErrMissingType
	}
	return f, nil
}

// ReadAck is the payload of a notification_marked_read frame.
type ReadAck struct {
	NotificationID string `json:"notification_id"`
}

// MarkReadCommand asks the backend to mark one notification as read.
type MarkReadCommand struct {
	Type           string `json:"type"`
	NotificationID string `json:"notificationId"`
}

// NewMarkReadCommand builds a mark_notification_read command.
func NewMarkReadCommand(id string) MarkReadCommand {
	return MarkReadCommand{Type: CommandMarkRead, NotificationID: id}
}

// UpdatePreferencesCommand pushes a partial preferences change.
type UpdatePreferencesCommand struct {
	Type        string           `json:"type"`
	Preferences PreferencesPatch `json:"preferences"`
}

// NewUpdatePreferencesCommand builds an update_preferences command.
func NewUpdatePreferencesCommand(patch PreferencesPatch) UpdatePreferencesCommand {
	return UpdatePreferencesCommand{Type: CommandUpdatePreferences, Preferences: patch}
}

// PingCommand is the keep-alive probe; the backend answers with a pong frame.
type PingCommand struct {
	Type string `json:"type"`
}

// NewPingCommand builds a ping command.
func NewPingCommand() PingCommand {
	return PingCommand{Type: CommandPing}
}
