// Package devserver emulates the FPRAX notification backend for local
// development and integration tests: the real-time endpoint plus the
// notification REST contracts, backed by pluggable history and backlog
// stores with optional email/push fan-out and an SQS event feed.
package devserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fprax/notify/internal/backlog"
	"github.com/fprax/notify/internal/delivery"
	"github.com/fprax/notify/internal/events"
	"github.com/fprax/notify/internal/history"
	"github.com/fprax/notify/internal/metrics"
	"github.com/fprax/notify/internal/wire"
)

// Server holds the devserver dependencies.
type Server struct {
	logger  *zap.Logger
	auth    *Authenticator
	hub     *Hub
	history history.Repository
	backlog backlog.Queue
	sender  delivery.Sender  // nil disables side-channel fan-out
	events  *events.Producer // nil disables the event feed
}

// New creates a devserver. sender and producer may be nil.
func New(logger *zap.Logger, auth *Authenticator, repo history.Repository,
	queue backlog.Queue, sender delivery.Sender, producer *events.Producer) *Server {
	return &Server{
		logger:  logger,
		auth:    auth,
		hub:     NewHub(logger),
		history: repo,
		backlog: queue,
		sender:  sender,
		events:  producer,
	}
}

// Hub exposes the connection hub, used by tests to push frames directly.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Routes builds the HTTP router: the real-time endpoint and the
// notification REST contracts.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/ws/notifications", s.HandleWS)

	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Get("/history", s.HandleHistory)
		r.Get("/preferences", s.HandleGetPreferences)
		r.Put("/preferences", s.HandleUpdatePreferences)
		r.Put("/mark-all-read", s.HandleMarkAllRead)
		r.Post("/test", s.HandleSendTest)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	return r
}

// Notify accepts a notification for a user: it is appended to history,
// pushed over the live connection or queued for the next one, mirrored to
// side channels per the user's preferences, and published to the event
// feed when configured.
func (s *Server) Notify(ctx context.Context, id Identity, n wire.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}

	if err := s.history.Append(ctx, id.UserID, n); err != nil {
		return err
	}

	delivered := false
	if s.hub.IsOnline(id.UserID) {
		if err := s.hub.SendToUser(id.UserID, wire.FrameNotification, n); err != nil {
			s.logger.Warn("socket delivery failed, queueing",
				zap.String("user_id", id.UserID),
				zap.Error(err),
			)
		} else {
			delivered = true
		}
	}
	if !delivered {
		if err := s.backlog.Push(ctx, id.UserID, n); err != nil {
			s.logger.Error("backlog push failed",
				zap.String("user_id", id.UserID),
				zap.Error(err),
			)
		}
	}

	s.fanOut(ctx, id, n)

	if s.events != nil {
		if _, err := s.events.Publish(ctx, id.UserID, n, delivered); err != nil {
			s.logger.Warn("event feed publish failed", zap.Error(err))
		}
	}
	return nil
}

// fanOut mirrors the notification to email/push per the user preferences.
func (s *Server) fanOut(ctx context.Context, id Identity, n wire.Notification) {
	if s.sender == nil {
		return
	}
	prefs, err := s.history.GetPreferences(ctx, id.UserID)
	if err != nil {
		s.logger.Error("load preferences for fan-out failed", zap.Error(err))
		return
	}

	if prefs.EmailNotifications && id.Email != "" {
		msg := &delivery.Message{
			Channel:      delivery.ChannelEmail,
			UserID:       id.UserID,
			Email:        id.Email,
			Notification: n,
		}
		if err := s.sender.Send(ctx, msg); err != nil {
			s.logger.Warn("email fan-out failed", zap.Error(err))
		}
	}
	if prefs.PushNotifications {
		msg := &delivery.Message{
			Channel:      delivery.ChannelPush,
			UserID:       id.UserID,
			Notification: n,
		}
		if err := s.sender.Send(ctx, msg); err != nil {
			s.logger.Warn("push fan-out failed", zap.Error(err))
		}
	}
}
