package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fprax/notify/internal/backlog"
	"github.com/fprax/notify/internal/config"
	"github.com/fprax/notify/internal/delivery"
	"github.com/fprax/notify/internal/devserver"
	"github.com/fprax/notify/internal/events"
	"github.com/fprax/notify/internal/history"
	"github.com/fprax/notify/internal/observ"
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

	logger.Info("starting fprax notification devserver",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
	)

	ctx := context.Background()

	// History store: Postgres when configured, in-memory otherwise.
	var repo history.Repository
	if cfg.DBHost != "" {
		pg, err := history.NewPostgres(ctx, history.PGConfig{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Database: cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pg.Close()
		repo = pg
		logger.Info("history backed by postgres",
			zap.String("host", cfg.DBHost),
			zap.String("database", cfg.DBName),
		)
	} else {
		repo = history.NewMemory()
		logger.Info("history backed by memory, set DB_HOST for postgres")
	}

	// Offline backlog: Redis when reachable, in-memory otherwise.
	var queue backlog.Queue
	rq, err := backlog.NewRedisQueue(ctx, backlog.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.Warn("redis unavailable, backlog held in memory",
			zap.Error(err),
			zap.String("host", cfg.RedisHost),
		)
		queue = backlog.NewMemoryQueue(backlog.DefaultCap)
	} else {
		queue = rq
		defer rq.Close()
	}

	// Side-channel fan-out. Missing AWS credentials degrade to log-only.
	var senders []delivery.Sender
	if ses, err := delivery.NewSESSender(ctx, delivery.SESConfig{
		Region:    cfg.AWSRegion,
		FromEmail: cfg.SESFromEmail,
	}, logger); err != nil {
		logger.Warn("SES sender unavailable, email fan-out disabled", zap.Error(err))
	} else {
		senders = append(senders, ses)
	}
	if cfg.SNSTopicARN != "" {
		if sns, err := delivery.NewSNSSender(ctx, delivery.SNSConfig{
			Region:   cfg.AWSRegion,
			TopicARN: cfg.SNSTopicARN,
		}, logger); err != nil {
			logger.Warn("SNS sender unavailable, push fan-out disabled", zap.Error(err))
		} else {
			senders = append(senders, sns)
		}
	}

	var sender delivery.Sender
	switch {
	case len(senders) > 0:
		sender = delivery.NewMulti(logger, senders...)
	case cfg.Env != "production":
		sender = delivery.NewLogSender(logger)
	}

	// Event feed
	var producer *events.Producer
	if cfg.SQSQueueURL != "" {
		producer, err = events.NewProducer(ctx, events.Config{
			Region:   cfg.AWSRegion,
			QueueURL: cfg.SQSQueueURL,
		}, logger)
		if err != nil {
			logger.Warn("sqs producer unavailable, event feed disabled", zap.Error(err))
			producer = nil
		}
	}

	auth := devserver.NewAuthenticator(cfg.JWTSecret)
	srv := devserver.New(logger, auth, repo, queue, sender, producer)

	// Convenience credential for local runs of the watcher.
	if cfg.Env != "production" && cfg.UserID != "" {
		if token, err := auth.Mint(cfg.UserID, cfg.DevEmail, 24*time.Hour); err == nil {
			logger.Info("minted development token",
				zap.String("user_id", cfg.UserID),
				zap.String("token", token),
			)
		}
	}

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", httpSrv.Addr))
		serverErrors <- httpSrv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			httpSrv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Info("devserver stopped gracefully")
	}

	return nil
}
