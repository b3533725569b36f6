// Package delivery fans accepted notifications out to side channels
// (email, push) when the user's channel preferences allow it. The
// real-time socket is the primary path; these senders are best-effort
// mirrors.
package delivery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fprax/notify/internal/wire"
)

// Channel constants
const (
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// Message is one notification addressed to a user on a specific channel.
type Message struct {
	Channel      string
	UserID       string
	Email        string
	Notification wire.Notification
}

// Sender is the unified interface for all delivery channels.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
	SupportsChannel(channel string) bool
}

// Multi routes messages to the first sender supporting their channel.
type Multi struct {
	senders []Sender
	logger  *zap.Logger
}

// NewMulti creates a router over multiple underlying senders.
func NewMulti(logger *zap.Logger, senders ...Sender) *Multi {
	return &Multi{senders: senders, logger: logger}
}

// Send routes the message to the appropriate sender.
func (m *Multi) Send(ctx context.Context, msg *Message) error {
	for _, sender := range m.senders {
		if sender.SupportsChannel(msg.Channel) {
			m.logger.Debug("routing notification to sender",
				zap.String("channel", msg.Channel),
				zap.String("notification_id", msg.Notification.ID),
			)
			return sender.Send(ctx, msg)
		}
	}
	return fmt.Errorf("no sender found for channel: %s", msg.Channel)
}

// SupportsChannel checks if any underlying sender supports the channel.
func (m *Multi) SupportsChannel(channel string) bool {
	for _, sender := range m.senders {
		if sender.SupportsChannel(channel) {
			return true
		}
	}
	return false
}

// LogSender logs deliveries instead of sending them; the development
// fallback when AWS is not configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a log-backed sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	s.logger.Info("delivery (development mode)",
		zap.String("channel", msg.Channel),
		zap.String("user_id", msg.UserID),
		zap.String("notification_id", msg.Notification.ID),
		zap.String("title", msg.Notification.Title),
	)
	return nil
}

// SupportsChannel reports true for every channel.
func (s *LogSender) SupportsChannel(channel string) bool {
	return channel == ChannelEmail || channel == ChannelPush
}
