package queue

import (
	"context"
	"errors"

	"github.com/mrinalgaur2005/taskbot/model"
)

var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)

// Delivery is one dequeued update. ID is what Ack expects.
type Delivery struct {
	ID     string
	Update model.Update
}

// Queue carries updates from the HTTP surface to the workers.
type Queue interface {
	Enqueue(ctx context.Context, u model.Update) error
	// Dequeue blocks until an update is available, ctx is done or the queue is closed.
	Dequeue(ctx context.Context) (Delivery, error)
	Ack(ctx context.Context, id string) error
	DeadLetter(ctx context.Context, u model.Update) error
	DeadLetterCount(ctx context.Context) (int64, error)
	Close() error
}
