// Package alert mirrors incoming notifications to the host notification
// facility, subject to permission state and the user's push preference.
// The host facility is modeled as an explicit capability object rather
// than ambient global state.
package alert

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fprax/notify/internal/wire"
)

// Permission is the host notification permission state.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// defaultTimeout is how long a non-high-priority alert stays on screen.
const defaultTimeout = 5 * time.Second

// Alert is a host notification to be rendered.
type Alert struct {
	Title              string
	Body               string
	Icon               string
	Tag                string
	RequireInteraction bool
	Timeout            time.Duration
	ActionURL          string
}

// Capability is the host permission model. Request is a separate explicit
// user-invoked operation; it is never triggered by notification arrival.
type Capability interface {
	Permission() Permission
	Request(ctx context.Context) (Permission, error)
}

// Sink renders alerts on the host.
type Sink interface {
	Show(ctx context.Context, a Alert) error
}

// PrefSource reports whether the user enabled the push channel.
type PrefSource interface {
	PushEnabled() bool
}

// Bridge gates notifications to the host facility.
type Bridge struct {
	capability Capability
	sink       Sink
	prefs      PrefSource
	logger     *zap.Logger
}

// NewBridge creates a bridge over the given capability and sink.
func NewBridge(capability Capability, sink Sink, prefs PrefSource, logger *zap.Logger) *Bridge {
	return &Bridge{
		capability: capability,
		sink:       sink,
		prefs:      prefs,
		logger:     logger,
	}
}

// Deliver mirrors a notification to the host when permission is granted and
// the push preference is on. High priority alerts persist until dismissed;
// others self-dismiss after five seconds. It reports whether the alert was
// handed to the sink.
func (b *Bridge) Deliver(ctx context.Context, n wire.Notification) bool {
	if b.capability.Permission() != PermissionGranted {
		return false
	}
	if !b.prefs.PushEnabled() {
		return false
	}

	a := Alert{
		Title: n.Title,
		Body:  n.Message,
		Tag:   n.ID,
	}
	if n.Priority == wire.PriorityHigh {
		a.RequireInteraction = true
	} else {
		a.Timeout = defaultTimeout
	}
	if n.Action != nil {
		a.ActionURL = n.Action.URL
	}

	if err := b.sink.Show(ctx, a); err != nil {
		b.logger.Warn("host alert not shown",
			zap.String("id", n.ID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// RequestPermission forwards an explicit user request to the capability.
func (b *Bridge) RequestPermission(ctx context.Context) (Permission, error) {
	return b.capability.Request(ctx)
}

// StaticCapability is a capability with a fixed or manually set state,
// suitable for headless hosts and tests.
type StaticCapability struct {
	state Permission
}

// NewStaticCapability creates a capability in the given state.
func NewStaticCapability(state Permission) *StaticCapability {
	return &StaticCapability{state: state}
}

// Permission returns the current state.
func (c *StaticCapability) Permission() Permission { return c.state }

// Request grants permission unless it was explicitly denied.
func (c *StaticCapability) Request(ctx context.Context) (Permission, error) {
	if c.state == PermissionDenied {
		return c.state, nil
	}
	c.state = PermissionGranted
	return c.state, nil
}

// LogSink renders alerts to the structured log. Used on headless hosts
// where no desktop notification facility is available.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Show logs the alert.
func (s *LogSink) Show(ctx context.Context, a Alert) error {
	s.logger.Info("host alert",
		zap.String("title", a.Title),
		zap.String("body", a.Body),
		zap.String("tag", a.Tag),
		zap.Bool("require_interaction", a.RequireInteraction),
		zap.String("action_url", a.ActionURL),
	)
	return nil
}
