package app

import (
	"sync"

	"github.com/bft-labs/farmer/internal/domain"
)

// eventQueue is an unbounded FIFO. push never blocks; signal is poked
// whenever the queue goes from empty to non-empty or gains an item.
type eventQueue struct {
	mu     sync.Mutex
	items  []domain.Event
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev domain.Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) pop() (domain.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return domain.Event{}, false
	}
	ev := q.items[0]
	q.items[0] = domain.Event{}
	q.items = q.items[1:]
	return ev, true
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
