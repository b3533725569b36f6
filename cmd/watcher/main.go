package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fprax/notify/internal/alert"
	"github.com/fprax/notify/internal/config"
	"github.com/fprax/notify/internal/metrics"
	"github.com/fprax/notify/internal/observ"
	"github.com/fprax/notify/internal/realtime"
	"github.com/fprax/notify/internal/restapi"
	"github.com/fprax/notify/internal/session"
	"github.com/fprax/notify/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting fprax notification watcher",
		zap.String("env", cfg.Env),
		zap.String("backend", cfg.BackendURL),
		zap.String("realtime", cfg.RealtimeURL),
	)

	// Session credential. Static for the CLI; the provider interface is
	// what the app shell swaps for its real auth state.
	sess := session.NewStatic(cfg.Token, cfg.UserID)

	api := restapi.New(restapi.Config{BaseURL: cfg.BackendURL}, sess, logger)

	prefs := store.NewPreferencesHolder()
	st := store.New(store.Config{}, nil, api, logger)

	bridge := alert.NewBridge(
		alert.NewStaticCapability(alert.PermissionGranted),
		alert.NewLogSink(logger),
		prefs,
		logger,
	)

	router := realtime.NewRouter(st, bridge, logger)
	manager := realtime.NewManager(realtime.Config{
		URL:          cfg.RealtimeURL,
		PingInterval: cfg.PingInterval,
		Policy:       realtime.DefaultPolicyConfig(),
	}, sess, router, logger)
	st.BindSender(manager)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go manager.WatchSession(ctx)

	// Seed local state from the backend, then open the live connection.
	if sess.Current().Authenticated {
		seed(ctx, logger, api, st, prefs)
		if err := manager.Connect(ctx); err != nil {
			logger.Warn("initial connect failed, reconnection policy engaged",
				zap.Error(err),
			)
		}
	} else {
		logger.Warn("no credential configured, waiting for session",
			zap.String("hint", "set FPRAX_TOKEN and FPRAX_USER_ID"),
		)
	}

	// Status server
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		state := manager.State()
		body := statusResponse{
			Connected:         state.Connected,
			ReconnectAttempts: state.ReconnectAttempts,
			PolicyState:       manager.PolicyState().String(),
			UnreadCount:       st.UnreadCount(),
			Stored:            st.Len(),
			LastPong:          manager.LastPong(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	r.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.StatusPort),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("status server listening", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		manager.Disconnect("shutting down")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Info("watcher stopped gracefully")
	}

	return nil
}

type statusResponse struct {
	Connected         bool      `json:"connected"`
	ReconnectAttempts int       `json:"reconnect_attempts"`
	PolicyState       string    `json:"policy_state"`
	UnreadCount       int       `json:"unread_count"`
	Stored            int       `json:"stored"`
	LastPong          time.Time `json:"last_pong"`
}

// seed pulls preferences and recent history over REST so the local view is
// populated before the first live frame arrives.
func seed(ctx context.Context, logger *zap.Logger, api *restapi.Client,
	st *store.Store, prefs *store.PreferencesHolder) {

	seedCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	p, err := api.GetPreferences(seedCtx)
	if err != nil {
		logger.Warn("preferences not loaded, using defaults", zap.Error(err))
	} else {
		prefs.Set(p)
	}

	page, err := api.History(seedCtx, store.DefaultCapacity, 0)
	if err != nil {
		logger.Warn("history not loaded", zap.Error(err))
		return
	}

	// History arrives newest first; the backlog insert path expects oldest
	// first so newest-first store order is preserved.
	ns := page.Notifications
	for i, j := 0, len(ns)-1; i < j; i, j = i+1, j-1 {
		ns[i], ns[j] = ns[j], ns[i]
	}
	st.InsertBacklog(ns)
	logger.Info("history seeded",
		zap.Int("count", len(ns)),
		zap.Int("unread", st.UnreadCount()),
	)
}
