package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fprax/notify/internal/wire"
)

// PGConfig holds database connection parameters
type PGConfig struct {
	Host     string
	Password string
	User     string
	Database string
	SSLMode  string
	Port     int
}

// Postgres is the pgx-backed Repository.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres creates a connection pool and verifies connectivity.
func NewPostgres(ctx context.Context, cfg PGConfig, logger *zap.Logger) (*Postgres, error) {
	var dsn string
	if cfg.Password != "" {
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
		)
	} else {
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Database, cfg.SSLMode,
		)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("history database connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
	)

	return &Postgres{pool: pool, logger: logger}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Append inserts a delivered notification.
func (p *Postgres) Append(ctx context.Context, userID string, n wire.Notification) error {
	var action []byte
	if n.Action != nil {
		var err error
		action, err = json.Marshal(n.Action)
		if err != nil {
			return fmt.Errorf("marshal action: %w", err)
		}
	}

	query := `
		INSERT INTO notification_history (
			id, user_id, title, message, type, priority,
			read, metadata, action, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := p.pool.Exec(ctx, query,
		n.ID, userID, n.Title, n.Message, n.Type, string(n.Priority),
		n.Read, []byte(n.Metadata), action, n.Timestamp,
	)
	if err != nil {
		p.logger.Error("failed to append notification",
			zap.Error(err),
			zap.String("notification_id", n.ID),
		)
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns notifications newest first plus the unread count.
func (p *Postgres) List(ctx context.Context, userID string, limit, offset int) (*Page, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, title, message, type, priority, read, metadata, action, created_at
		FROM notification_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := p.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	page := &Page{Notifications: []wire.Notification{}}
	for rows.Next() {
		var (
			n        wire.Notification
			priority string
			metadata []byte
			action   []byte
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &priority,
			&n.Read, &metadata, &action, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		n.Priority = wire.Priority(priority)
		n.Metadata = json.RawMessage(metadata)
		if len(action) > 0 {
			var a wire.Action
			if err := json.Unmarshal(action, &a); err == nil {
				n.Action = &a
			}
		}
		page.Notifications = append(page.Notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	countQuery := `
		SELECT count(*) FROM notification_history
		WHERE user_id = $1 AND read = false
	`
	if err := p.pool.QueryRow(ctx, countQuery, userID).Scan(&page.UnreadCount); err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}
	return page, nil
}

// MarkRead marks one notification read.
func (p *Postgres) MarkRead(ctx context.Context, userID, notificationID string) error {
	query := `
		UPDATE notification_history
		SET read = true
		WHERE id = $1 AND user_id = $2
	`
	result, err := p.pool.Exec(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found: %s", notificationID)
	}
	return nil
}

// MarkAllRead marks every notification of the user read, returning the
// number of rows changed.
func (p *Postgres) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE notification_history
		SET read = true
		WHERE user_id = $1 AND read = false
	`
	result, err := p.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return result.RowsAffected(), nil
}

// GetPreferences returns the stored preferences, falling back to defaults
// for a user without a row.
func (p *Postgres) GetPreferences(ctx context.Context, userID string) (wire.Preferences, error) {
	query := `SELECT preferences FROM notification_preferences WHERE user_id = $1`

	var raw []byte
	err := p.pool.QueryRow(ctx, query, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return wire.DefaultPreferences(), nil
	}
	if err != nil {
		return wire.Preferences{}, fmt.Errorf("query preferences: %w", err)
	}

	var prefs wire.Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return wire.Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	return prefs, nil
}

// PutPreferences upserts the user's preferences.
func (p *Postgres) PutPreferences(ctx context.Context, userID string, prefs wire.Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	query := `
		INSERT INTO notification_preferences (user_id, preferences, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE
		SET preferences = EXCLUDED.preferences, updated_at = now()
	`
	if _, err := p.pool.Exec(ctx, query, userID, raw); err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}
