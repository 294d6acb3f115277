// Package queue provides the machine's pending-beverage queue: a
// concurrent-safe FIFO backed by container/list.
package queue

import (
	"container/list"
	"log/slog"
	"sync"

	"brewz"
)

// Queue is safe for many producers and one consumer.
type Queue struct {
	mu    sync.Mutex
	items *list.List
	ready chan struct{}
}

func New() *Queue {
	return &Queue{
		items: list.New(),
		ready: make(chan struct{}, 1),
	}
}

// Push appends b to the tail and wakes a waiting consumer.
func (q *Queue) Push(b brewz.Beverage) {
	q.mu.Lock()
	q.items.PushBack(b)
	n := q.items.Len()
	q.mu.Unlock()

	q.Wake()
	slog.Debug("Beverage queued.", "component", "queue", "beverage", b.Name(), "pending", n)
}

// Pop removes and returns the head. The emptiness check and the removal
// happen under the same lock; on an empty queue it returns false.
func (q *Queue) Pop() (brewz.Beverage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := q.items.Front()
	if front == nil {
		return brewz.Beverage{}, false
	}
	q.items.Remove(front)
	return front.Value.(brewz.Beverage), true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

func (q *Queue) IsEmpty() bool { return q.Len() == 0 }

// Ready receives a value after a Push. A single value may stand for several
// pushes, so consumers drain with Pop until it reports empty.
func (q *Queue) Ready() <-chan struct{} { return q.ready }

// Wake signals Ready without pushing. It never blocks.
func (q *Queue) Wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Names returns the pending beverage names in dispatch order.
func (q *Queue) Names() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]string, 0, q.items.Len())
	for e := q.items.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(brewz.Beverage).Name())
	}
	return out
}
