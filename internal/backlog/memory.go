package backlog

import (
	"context"
	"sync"

	"github.com/fprax/notify/internal/wire"
)

// MemoryQueue is an in-process Queue used when Redis is not configured.
type MemoryQueue struct {
	mu    sync.Mutex
	cap   int
	items map[string][]wire.Notification
}

// NewMemoryQueue creates an in-memory queue.
func NewMemoryQueue(cap int) *MemoryQueue {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &MemoryQueue{cap: cap, items: make(map[string][]wire.Notification)}
}

// Push appends to the user's backlog, trimming the oldest beyond cap.
func (q *MemoryQueue) Push(ctx context.Context, userID string, n wire.Notification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	list := append(q.items[userID], n)
	if len(list) > q.cap {
		list = list[len(list)-q.cap:]
	}
	q.items[userID] = list
	return nil
}

// Drain removes and returns the backlog, oldest first.
func (q *MemoryQueue) Drain(ctx context.Context, userID string) ([]wire.Notification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	list := q.items[userID]
	delete(q.items, userID)
	return list, nil
}

// Len returns the current backlog length.
func (q *MemoryQueue) Len(ctx context.Context, userID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items[userID]), nil
}
