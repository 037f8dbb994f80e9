package sync

import gosync "sync"

// queue is an unbounded FIFO of events for the engine loop. Producers never
// block, so callbacks from the store or the connection can always post.
type queue struct {
	items  []func()
	notify chan struct{}
	mu     gosync.Mutex
	closed bool
}

func newQueue() *queue {
	return &queue{notify: make(chan struct{}, 1)}
}

func (q *queue) push(fn func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, fn)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// take returns the queued events and empties the queue.
func (q *queue) take() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// close drops queued events and rejects new ones.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.items = nil
}
