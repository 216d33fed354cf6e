package queue

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/mrinalgaur2005/taskbot/model"
)

const deadLetterKeep = 100

type memoryQueue struct {
	items  chan model.Update
	done   chan struct{}
	once   sync.Once
	seq    atomic.Int64
	mtx    sync.Mutex
	dlq    []model.Update
	dlqLen int64
}

// NewMemoryQueue returns a channel-backed queue holding at most size updates.
func NewMemoryQueue(size int) Queue {
	if size < 1 {
		size = 1
	}
	return &memoryQueue{
		items: make(chan model.Update, size),
		done:  make(chan struct{}),
	}
}

func (q *memoryQueue) Enqueue(ctx context.Context, u model.Update) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.items <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrFull
	}
}

func (q *memoryQueue) Dequeue(ctx context.Context) (Delivery, error) {
	select {
	case u := <-q.items:
		return Delivery{ID: strconv.FormatInt(q.seq.Add(1), 10), Update: u}, nil
	case <-q.done:
		return Delivery{}, ErrClosed
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}

func (q *memoryQueue) Ack(ctx context.Context, id string) error {
	return nil
}

func (q *memoryQueue) DeadLetter(ctx context.Context, u model.Update) error {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	q.dlq = append(q.dlq, u)
	if len(q.dlq) > deadLetterKeep {
		q.dlq = q.dlq[len(q.dlq)-deadLetterKeep:]
	}
	q.dlqLen++
	return nil
}

func (q *memoryQueue) DeadLetterCount(ctx context.Context) (int64, error) {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	return q.dlqLen, nil
}

func (q *memoryQueue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}
