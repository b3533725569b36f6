package backlog

import (
	"context"
	"fmt"
	"testing"

	"github.com/fprax/notify/internal/wire"
)

func TestMemoryQueue_PushDrainOrder(t *testing.T) {
	q := NewMemoryQueue(0)
	ctx := context.Background()

	for _, id := range []string{"n-1", "n-2", "n-3"} {
		if err := q.Push(ctx, "user-1", wire.Notification{ID: id}); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	got, err := q.Drain(ctx, "user-1")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	for i, want := range []string{"n-1", "n-2", "n-3"} {
		if got[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}

	if n, _ := q.Len(ctx, "user-1"); n != 0 {
		t.Errorf("expected empty backlog after drain, got %d", n)
	}
}

func TestMemoryQueue_CapTrimsOldest(t *testing.T) {
	q := NewMemoryQueue(2)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = q.Push(ctx, "user-1", wire.Notification{ID: fmt.Sprintf("n-%d", i)})
	}

	got, _ := q.Drain(ctx, "user-1")
	if len(got) != 2 || got[0].ID != "n-2" || got[1].ID != "n-3" {
		t.Errorf("unexpected backlog after trim: %+v", got)
	}
}
