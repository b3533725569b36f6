package restapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/fprax/notify/internal/session"
	"github.com/fprax/notify/internal/wire"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sess := session.NewStatic("aaa.bbb.ccc", "user-1")
	c := New(Config{BaseURL: srv.URL}, sess, zap.NewNop())
	return c, srv
}

func TestClient_HistoryCarriesBearerAndQuery(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/notifications/history" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer aaa.bbb.ccc" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if r.URL.Query().Get("limit") != "20" || r.URL.Query().Get("offset") != "40" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}

		_ = json.NewEncoder(w).Encode(HistoryPage{
			Notifications: []wire.Notification{{ID: "n-1"}, {ID: "n-2"}},
			UnreadCount:   1,
		})
	})

	page, err := c.History(context.Background(), 20, 40)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(page.Notifications) != 2 {
		t.Errorf("expected 2 notifications, got %d", len(page.Notifications))
	}
	if page.UnreadCount != 1 {
		t.Errorf("expected unread 1, got %d", page.UnreadCount)
	}
}

func TestClient_GetPreferencesUnwrapsEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		prefs := wire.DefaultPreferences()
		prefs.PushNotifications = false
		_ = json.NewEncoder(w).Encode(map[string]any{"preferences": prefs})
	})

	prefs, err := c.GetPreferences(context.Background())
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if prefs.PushNotifications {
		t.Error("expected push disabled")
	}
	if !prefs.NewApplication {
		t.Error("expected new_application enabled")
	}
}

func TestClient_UpdatePreferencesSendsPatch(t *testing.T) {
	var got wire.PreferencesPatch
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	off := false
	if err := c.UpdatePreferences(context.Background(), wire.PreferencesPatch{RelevantOffer: &off}); err != nil {
		t.Fatalf("update preferences: %v", err)
	}
	if got.RelevantOffer == nil || *got.RelevantOffer {
		t.Errorf("expected relevant_offer=false in patch, got %+v", got)
	}
	// Unset fields stay omitted.
	if got.NewApplication != nil {
		t.Error("expected new_application absent from patch")
	}
}

func TestClient_MarkAllRead(t *testing.T) {
	called := false
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.Method != http.MethodPut || r.URL.Path != "/api/notifications/mark-all-read" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := c.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if !called {
		t.Error("endpoint not called")
	}
}

func TestClient_SendTest(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/notifications/test" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req TestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Title != "Ping" {
			t.Errorf("unexpected title %q", req.Title)
		}
		w.WriteHeader(http.StatusOK)
	})

	err := c.SendTest(context.Background(), TestRequest{Title: "Ping", Message: "hello"})
	if err != nil {
		t.Fatalf("send test: %v", err)
	}
}

func TestClient_NonSuccessStatusIsError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})

	if err := c.MarkAllRead(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
	if _, err := c.History(context.Background(), 10, 0); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("expected no authorization header without a session")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, session.NewStatic("", ""), zap.NewNop())
	if err := c.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
}
