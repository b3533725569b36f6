package realtime

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/fprax/notify/internal/alert"
	"github.com/fprax/notify/internal/metrics"
	"github.com/fprax/notify/internal/store"
	"github.com/fprax/notify/internal/wire"
)

// Router interprets inbound frames by their type field and dispatches to
// the notification store and the local alert bridge. A malformed or
// unrecognized frame is logged and discarded; it never tears down the
// connection.
type Router struct {
	store  *store.Store
	bridge *alert.Bridge // nil disables host alerts
	logger *zap.Logger
	onPong func() // nil disables liveness tracking
}

// NewRouter creates a router over the given store and bridge.
func NewRouter(st *store.Store, bridge *alert.Bridge, logger *zap.Logger) *Router {
	return &Router{store: st, bridge: bridge, logger: logger}
}

// OnPong registers a keep-alive acknowledgment callback.
func (r *Router) OnPong(fn func()) {
	r.onPong = fn
}

// Dispatch routes one raw inbound message. It never returns an error to the
// read loop; local recovery is the whole job here.
func (r *Router) Dispatch(ctx context.Context, raw []byte) {
	f, err := wire.ParseFrame(raw)
	if err != nil {
		metrics.RecordMalformedFrame()
		r.logger.Warn("discarding malformed frame", zap.Error(err))
		return
	}
	metrics.RecordFrame(f.Type)

	switch f.Type {
	case wire.FrameConnectionEstablished:
		r.logger.Info("connection established frame received")

	case wire.FrameNotification:
		var n wire.Notification
		if err := json.Unmarshal(f.Data, &n); err != nil || n.ID == "" {
			r.logger.Warn("discarding invalid notification payload", zap.Error(err))
			return
		}
		r.handleNotification(ctx, n)

	case wire.FrameQueuedNotifications:
		var ns []wire.Notification
		if err := json.Unmarshal(f.Data, &ns); err != nil {
			r.logger.Warn("discarding invalid queued_notifications payload", zap.Error(err))
			return
		}
		r.store.InsertBacklog(ns)
		metrics.SetUnreadCount(r.store.UnreadCount())
		r.logger.Info("queued notifications applied", zap.Int("count", len(ns)))

	case wire.FrameNotificationRead:
		var ack wire.ReadAck
		if err := json.Unmarshal(f.Data, &ack); err != nil || ack.NotificationID == "" {
			r.logger.Warn("discarding invalid read ack", zap.Error(err))
			return
		}
		r.store.ConfirmRead(ack.NotificationID)
		metrics.SetUnreadCount(r.store.UnreadCount())

	case wire.FramePreferencesUpdated:
		// Acknowledgment only. Local preference state initiated the change
		// and is already correct.
		r.logger.Debug("preferences update acknowledged")

	case wire.FramePong:
		if r.onPong != nil {
			r.onPong()
		}

	default:
		r.logger.Warn("discarding unrecognized frame", zap.String("type", f.Type))
	}
}

func (r *Router) handleNotification(ctx context.Context, n wire.Notification) {
	if !r.store.Insert(n) {
		r.logger.Debug("duplicate notification ignored", zap.String("id", n.ID))
		return
	}

	metrics.RecordNotificationStored()
	metrics.SetUnreadCount(r.store.UnreadCount())

	r.logger.Info("notification received",
		zap.String("id", n.ID),
		zap.String("type", n.Type),
		zap.String("priority", string(n.Priority)),
	)

	if r.bridge != nil && r.bridge.Deliver(ctx, n) {
		metrics.RecordAlertDelivered()
	}
}
