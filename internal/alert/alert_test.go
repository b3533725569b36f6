package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fprax/notify/internal/wire"
)

type captureSink struct {
	mu    sync.Mutex
	shown []Alert
	err   error
}

func (s *captureSink) Show(ctx context.Context, a Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.shown = append(s.shown, a)
	return nil
}

type staticPrefs struct{ push bool }

func (p staticPrefs) PushEnabled() bool { return p.push }

func TestBridge_DeliverGranted(t *testing.T) {
	sink := &captureSink{}
	b := NewBridge(NewStaticCapability(PermissionGranted), sink, staticPrefs{push: true}, zap.NewNop())

	n := wire.Notification{
		ID:       "n-1",
		Title:    "Interview request",
		Message:  "Acme wants to talk",
		Priority: wire.PriorityMedium,
		Action:   &wire.Action{Type: "link", URL: "/applications/42"},
	}

	if !b.Deliver(context.Background(), n) {
		t.Fatal("expected delivery")
	}
	if len(sink.shown) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(sink.shown))
	}

	a := sink.shown[0]
	if a.Title != n.Title || a.Body != n.Message {
		t.Errorf("unexpected alert content: %+v", a)
	}
	if a.Tag != "n-1" {
		t.Errorf("expected tag n-1, got %q", a.Tag)
	}
	if a.RequireInteraction {
		t.Error("medium priority must not require interaction")
	}
	if a.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", a.Timeout)
	}
	if a.ActionURL != "/applications/42" {
		t.Errorf("expected action url carried over, got %q", a.ActionURL)
	}
}

func TestBridge_HighPriorityPersists(t *testing.T) {
	sink := &captureSink{}
	b := NewBridge(NewStaticCapability(PermissionGranted), sink, staticPrefs{push: true}, zap.NewNop())

	n := wire.Notification{ID: "n-1", Priority: wire.PriorityHigh}
	b.Deliver(context.Background(), n)

	a := sink.shown[0]
	if !a.RequireInteraction {
		t.Error("high priority must require interaction")
	}
	if a.Timeout != 0 {
		t.Errorf("high priority must not self-dismiss, got timeout %v", a.Timeout)
	}
}

func TestBridge_PermissionGates(t *testing.T) {
	for _, perm := range []Permission{PermissionDefault, PermissionDenied} {
		sink := &captureSink{}
		b := NewBridge(NewStaticCapability(perm), sink, staticPrefs{push: true}, zap.NewNop())

		if b.Deliver(context.Background(), wire.Notification{ID: "n-1"}) {
			t.Errorf("permission %q: expected no delivery", perm)
		}
		if len(sink.shown) != 0 {
			t.Errorf("permission %q: sink must not be touched", perm)
		}
	}
}

func TestBridge_PushPreferenceGates(t *testing.T) {
	sink := &captureSink{}
	b := NewBridge(NewStaticCapability(PermissionGranted), sink, staticPrefs{push: false}, zap.NewNop())

	if b.Deliver(context.Background(), wire.Notification{ID: "n-1"}) {
		t.Error("expected no delivery with push disabled")
	}
}

func TestBridge_SinkFailureReported(t *testing.T) {
	sink := &captureSink{err: errors.New("display gone")}
	b := NewBridge(NewStaticCapability(PermissionGranted), sink, staticPrefs{push: true}, zap.NewNop())

	if b.Deliver(context.Background(), wire.Notification{ID: "n-1"}) {
		t.Error("expected delivery to report failure")
	}
}

func TestStaticCapability_Request(t *testing.T) {
	c := NewStaticCapability(PermissionDefault)
	got, err := c.Request(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got != PermissionGranted {
		t.Errorf("expected granted, got %q", got)
	}

	denied := NewStaticCapability(PermissionDenied)
	got, _ = denied.Request(context.Background())
	if got != PermissionDenied {
		t.Errorf("denied must stay denied, got %q", got)
	}
}
