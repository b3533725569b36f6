package realtime

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/fprax/notify/internal/store"
)

func newTestRouter() (*Router, *store.Store) {
	st := store.New(store.Config{}, nil, nil, zap.NewNop())
	return NewRouter(st, nil, zap.NewNop()), st
}

func frame(frameType, data string) []byte {
	return []byte(fmt.Sprintf(`{"type":%q,"data":%s}`, frameType, data))
}

func TestRouter_NotificationStored(t *testing.T) {
	r, st := newTestRouter()

	r.Dispatch(context.Background(), frame("notification",
		`{"id":"n-1","title":"New application","priority":"high"}`))

	if st.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", st.Len())
	}
	if st.UnreadCount() != 1 {
		t.Errorf("expected unread 1, got %d", st.UnreadCount())
	}
}

func TestRouter_DuplicateNotificationIgnored(t *testing.T) {
	r, st := newTestRouter()

	msg := frame("notification", `{"id":"n-1","title":"first"}`)
	r.Dispatch(context.Background(), msg)
	r.Dispatch(context.Background(), frame("notification", `{"id":"n-1","title":"retransmit"}`))

	if st.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", st.Len())
	}
	if got := st.All()[0].Title; got != "first" {
		t.Errorf("expected first record kept, got %q", got)
	}
}

func TestRouter_MalformedFrameTolerated(t *testing.T) {
	r, st := newTestRouter()

	r.Dispatch(context.Background(), []byte(`{broken`))
	r.Dispatch(context.Background(), []byte(`{"data":{"id":"n-1"}}`))
	r.Dispatch(context.Background(), frame("notification", `"not an object"`))
	r.Dispatch(context.Background(), frame("notification", `{"title":"missing id"}`))

	if st.Len() != 0 {
		t.Errorf("expected no records from malformed input, got %d", st.Len())
	}

	// The stream keeps working afterwards.
	r.Dispatch(context.Background(), frame("notification", `{"id":"n-2"}`))
	if st.Len() != 1 {
		t.Errorf("expected recovery after malformed frames, got %d records", st.Len())
	}
}

func TestRouter_UnknownFrameTypeDiscarded(t *testing.T) {
	r, st := newTestRouter()

	r.Dispatch(context.Background(), frame("server_gossip", `{}`))

	if st.Len() != 0 {
		t.Errorf("expected unknown frame discarded, got %d records", st.Len())
	}
}

func TestRouter_QueuedNotificationsOrdering(t *testing.T) {
	r, st := newTestRouter()

	// Backlog arrives oldest first; the store ends up newest first.
	r.Dispatch(context.Background(), frame("queued_notifications",
		`[{"id":"q1"},{"id":"q2"},{"id":"q3"}]`))

	all := st.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	for i, want := range []string{"q3", "q2", "q1"} {
		if all[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, all[i].ID)
		}
	}
}

func TestRouter_ReadAckConfirms(t *testing.T) {
	r, st := newTestRouter()

	r.Dispatch(context.Background(), frame("notification", `{"id":"n-1"}`))
	r.Dispatch(context.Background(), frame("notification_marked_read",
		`{"notification_id":"n-1"}`))

	if st.UnreadCount() != 0 {
		t.Errorf("expected unread 0 after ack, got %d", st.UnreadCount())
	}

	// Ack without an id is discarded.
	r.Dispatch(context.Background(), frame("notification_marked_read", `{}`))
}

func TestRouter_PongCallback(t *testing.T) {
	r, _ := newTestRouter()

	called := 0
	r.OnPong(func() { called++ })

	r.Dispatch(context.Background(), []byte(`{"type":"pong"}`))

	if called != 1 {
		t.Errorf("expected pong callback once, got %d", called)
	}
}

func TestRouter_ConnectionEstablishedAndPrefsAck(t *testing.T) {
	r, st := newTestRouter()

	// Neither frame touches the store.
	r.Dispatch(context.Background(), frame("connection_established", `{"user_id":"u1"}`))
	r.Dispatch(context.Background(), []byte(`{"type":"preferences_updated"}`))

	if st.Len() != 0 {
		t.Errorf("expected store untouched, got %d records", st.Len())
	}
}
