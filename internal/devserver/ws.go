package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fprax/notify/internal/wire"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type connectedPayload struct {
	UserID string `json:"user_id"`
}

// HandleWS upgrades the real-time connection. The bearer credential rides
// as a token query parameter; a rejected credential closes the socket with
// the reserved auth close code so clients stop auto-reconnecting.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	id, err := s.auth.Validate(r.URL.Query().Get("token"))
	if err != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(wire.CloseAuthRejected, "authentication rejected"), deadline)
		_ = conn.Close()
		return
	}

	c := &client{userID: id.UserID, conn: conn}
	s.hub.register(c)

	if err := c.writeFrame(wire.FrameConnectionEstablished, connectedPayload{UserID: id.UserID}); err != nil {
		s.hub.unregister(c)
		return
	}

	// Deliver notifications queued while the user was offline.
	queued, err := s.backlog.Drain(r.Context(), id.UserID)
	if err != nil {
		s.logger.Error("backlog drain failed",
			zap.String("user_id", id.UserID),
			zap.Error(err),
		)
	} else if len(queued) > 0 {
		if err := c.writeFrame(wire.FrameQueuedNotifications, queued); err != nil {
			s.logger.Warn("queued notifications not delivered", zap.Error(err))
		}
	}

	go s.readCommands(c)
}

// readCommands processes inbound commands until the connection drops.
func (s *Server) readCommands(c *client) {
	defer s.hub.unregister(c)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd struct {
			Type           string                `json:"type"`
			NotificationID string                `json:"notificationId"`
			Preferences    wire.PreferencesPatch `json:"preferences"`
		}
		if err := json.Unmarshal(raw, &cmd); err != nil {
			s.logger.Warn("discarding malformed command",
				zap.String("user_id", c.userID),
				zap.Error(err),
			)
			continue
		}

		ctx := context.Background()
		switch cmd.Type {
		case wire.CommandMarkRead:
			if cmd.NotificationID == "" {
				continue
			}
			if err := s.history.MarkRead(ctx, c.userID, cmd.NotificationID); err != nil {
				s.logger.Debug("mark read failed", zap.Error(err))
			}
			_ = c.writeFrame(wire.FrameNotificationRead,
				wire.ReadAck{NotificationID: cmd.NotificationID})

		case wire.CommandUpdatePreferences:
			prefs, err := s.history.GetPreferences(ctx, c.userID)
			if err != nil {
				s.logger.Error("load preferences failed", zap.Error(err))
				continue
			}
			if err := s.history.PutPreferences(ctx, c.userID, cmd.Preferences.Apply(prefs)); err != nil {
				s.logger.Error("store preferences failed", zap.Error(err))
				continue
			}
			_ = c.writeFrame(wire.FramePreferencesUpdated, nil)

		case wire.CommandPing:
			_ = c.writeFrame(wire.FramePong, nil)

		default:
			s.logger.Warn("unrecognized command",
				zap.String("type", cmd.Type),
				zap.String("user_id", c.userID),
			)
		}
	}
}
