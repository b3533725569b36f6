// Package restapi is the client for the FPRAX backend's notification REST
// endpoints. Calls carry the session bearer credential; failures are
// returned to the caller and never retried automatically.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/fprax/notify/internal/session"
	"github.com/fprax/notify/internal/wire"
)

// TokenSource supplies the current bearer credential.
type TokenSource interface {
	Current() session.Snapshot
}

// Client calls the notification REST endpoints.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	logger  *zap.Logger
}

// Config holds REST client parameters.
type Config struct {
	// BaseURL is the backend origin, without trailing slash
	// (e.g. "http://localhost:8080").
	BaseURL string

	// Timeout bounds each call. Zero means 15s.
	Timeout time.Duration
}

// New creates a REST client.
func New(cfg Config, tokens TokenSource, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		tokens:  tokens,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// HistoryPage is the response of the history endpoint.
type HistoryPage struct {
	Notifications []wire.Notification `json:"notifications"`
	UnreadCount   int                 `json:"unread_count"`
}

// History fetches past notifications, newest first.
func (c *Client) History(ctx context.Context, limit, offset int) (*HistoryPage, error) {
	path := "/api/notifications/history?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	var page HistoryPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

type preferencesEnvelope struct {
	Preferences wire.Preferences `json:"preferences"`
}

// GetPreferences fetches the per-session notification preferences.
func (c *Client) GetPreferences(ctx context.Context) (wire.Preferences, error) {
	var env preferencesEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/notifications/preferences", nil, &env); err != nil {
		return wire.Preferences{}, err
	}
	return env.Preferences, nil
}

// UpdatePreferences applies a partial preferences update server-side.
func (c *Client) UpdatePreferences(ctx context.Context, patch wire.PreferencesPatch) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/preferences", patch, nil)
}

// MarkAllRead performs the server-side bulk mark-as-read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/mark-all-read", nil, nil)
}

// TestRequest describes a manually triggered notification, used to verify
// the alert pipeline end to end.
type TestRequest struct {
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Type     string        `json:"type"`
	Priority wire.Priority `json:"priority"`
}

// SendTest asks the backend to emit a test notification.
func (c *Client) SendTest(ctx context.Context, req TestRequest) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/test", req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if snap := c.tokens.Current(); snap.Token != "" {
		req.Header.Set("Authorization", "Bearer "+snap.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("rest call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
