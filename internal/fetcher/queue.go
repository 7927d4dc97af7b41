package fetcher

import (
	"errors"
	"sync"
)

var errQueueClosed = errors.New("chunk queue is closed")

// ChunkQueue is a bounded FIFO of pending ranges. The planner fills it and
// closes it before any worker starts, so a drained queue means no more work.
type ChunkQueue struct {
	mu     sync.Mutex
	ch     chan Range
	closed bool
}

func NewChunkQueue(capacity int) *ChunkQueue {
	return &ChunkQueue{ch: make(chan Range, capacity)}
}

// Enqueue never blocks. It fails instead of dropping the range when the
// queue is full.
func (q *ChunkQueue) Enqueue(r Range) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errQueueClosed
	}
	select {
	case q.ch <- r:
		return nil
	default:
		return &QueueCapacityError{Ranges: len(q.ch) + 1, Capacity: cap(q.ch)}
	}
}

func (q *ChunkQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Dequeue returns the next range, or false once the queue is closed and
// drained.
func (q *ChunkQueue) Dequeue() (Range, bool) {
	r, ok := <-q.ch
	return r, ok
}

func (q *ChunkQueue) Len() int {
	return len(q.ch)
}
