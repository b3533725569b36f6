package backlog

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fprax/notify/internal/wire"
)

func setupTestQueue(t *testing.T, cap int) (*RedisQueue, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewRedisQueueFromClient(rdb, cap, zap.NewNop())

	return q, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestRedisQueue_PushDrainOrder(t *testing.T) {
	q, _, cleanup := setupTestQueue(t, 0)
	defer cleanup()
	ctx := context.Background()

	for _, id := range []string{"n-1", "n-2", "n-3"} {
		if err := q.Push(ctx, "user-1", wire.Notification{ID: id}); err != nil {
			t.Fatalf("push %s: %v", id, err)
		}
	}

	got, err := q.Drain(ctx, "user-1")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(got))
	}
	for i, want := range []string{"n-1", "n-2", "n-3"} {
		if got[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestRedisQueue_DrainEmptiesBacklog(t *testing.T) {
	q, _, cleanup := setupTestQueue(t, 0)
	defer cleanup()
	ctx := context.Background()

	if err := q.Push(ctx, "user-1", wire.Notification{ID: "n-1"}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, err := q.Drain(ctx, "user-1"); err != nil {
		t.Fatalf("drain: %v", err)
	}

	n, err := q.Len(ctx, "user-1")
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 0 {
		t.Errorf("expected empty backlog after drain, got %d", n)
	}

	// Draining an empty backlog is fine.
	got, err := q.Drain(ctx, "user-1")
	if err != nil {
		t.Fatalf("drain empty: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no notifications, got %d", len(got))
	}
}

func TestRedisQueue_CapTrimsOldest(t *testing.T) {
	q, _, cleanup := setupTestQueue(t, 3)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := q.Push(ctx, "user-1", wire.Notification{ID: fmt.Sprintf("n-%d", i)}); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	got, err := q.Drain(ctx, "user-1")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 notifications after trim, got %d", len(got))
	}
	for i, want := range []string{"n-2", "n-3", "n-4"} {
		if got[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestRedisQueue_PerUserIsolation(t *testing.T) {
	q, _, cleanup := setupTestQueue(t, 0)
	defer cleanup()
	ctx := context.Background()

	_ = q.Push(ctx, "user-1", wire.Notification{ID: "a"})
	_ = q.Push(ctx, "user-2", wire.Notification{ID: "b"})

	got, err := q.Drain(ctx, "user-1")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("unexpected backlog for user-1: %+v", got)
	}

	n, _ := q.Len(ctx, "user-2")
	if n != 1 {
		t.Errorf("expected user-2 backlog untouched, got len %d", n)
	}
}

func TestRedisQueue_SkipsCorruptEntries(t *testing.T) {
	q, mr, cleanup := setupTestQueue(t, 0)
	defer cleanup()
	ctx := context.Background()

	_ = q.Push(ctx, "user-1", wire.Notification{ID: "good"})
	if _, err := mr.RPush(backlogKey("user-1"), "{corrupt"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	got, err := q.Drain(ctx, "user-1")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(got) != 1 || got[0].ID != "good" {
		t.Errorf("expected only the valid entry, got %+v", got)
	}
}
