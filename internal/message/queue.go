package message

import (
	"context"
	"errors"
)

// ErrQueueFull is returned by Push when the queue has no room.
var ErrQueueFull = errors.New("message: queue full")

// Queue is a fixed-capacity FIFO between the two sides. Push never blocks.
type Queue struct {
	ch chan Message
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Message, capacity)}
}

// Push enqueues m, or drops it and returns ErrQueueFull.
func (q *Queue) Push(m Message) error {
	select {
	case q.ch <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pop blocks until a message is available or ctx ends.
func (q *Queue) Pop(ctx context.Context) (Message, error) {
	select {
	case m := <-q.ch:
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryPop returns a queued message without blocking.
func (q *Queue) TryPop() (Message, bool) {
	select {
	case m := <-q.ch:
		return m, true
	default:
		return nil, false
	}
}

func (q *Queue) Len() int { return len(q.ch) }

func (q *Queue) Cap() int { return cap(q.ch) }
