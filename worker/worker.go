package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/mrinalgaur2005/taskbot/model"
	"github.com/mrinalgaur2005/taskbot/queue"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 500 * time.Millisecond
)

type Handler interface {
	Handle(ctx context.Context, u model.Update) error
}

type HandlerFunc func(ctx context.Context, u model.Update) error

func (f HandlerFunc) Handle(ctx context.Context, u model.Update) error {
	return f(ctx, u)
}

// Counters are shared by every worker of a pool.
type Counters struct {
	Processed    atomic.Int64
	Failed       atomic.Int64
	Retried      atomic.Int64
	DeadLettered atomic.Int64
}

type Snapshot struct {
	Processed    int64 `json:"processed"`
	Failed       int64 `json:"failed"`
	Retried      int64 `json:"retried"`
	DeadLettered int64 `json:"dead_lettered"`
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Processed:    c.Processed.Load(),
		Failed:       c.Failed.Load(),
		Retried:      c.Retried.Load(),
		DeadLettered: c.DeadLettered.Load(),
	}
}

type Worker struct {
	ID         string
	Queue      queue.Queue
	Handler    Handler
	MaxRetries int
	Counters   *Counters
	// ErrorBackoff is how long Run waits after a failed dequeue.
	ErrorBackoff time.Duration
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
}

// Run consumes the queue until ctx is done or the queue is closed.
func (w *Worker) Run(ctx context.Context) {
	log := logging.Logger.WithField("worker", w.ID)
	log.Info("worker started")
	defer log.Info("worker stopped")

	backoff := w.ErrorBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	for {
		d, err := w.Queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return
			}
			log.WithField("event_id", "QUEUE_READ_FAILED").Errorf("error reading from queue: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}
		w.process(ctx, d)
	}
}

// process retries a failing update in place so later updates never overtake
// it. The delivery is acked once it has succeeded or been dead-lettered.
func (w *Worker) process(ctx context.Context, d queue.Delivery) {
	u := d.Update
	log := logging.Logger.WithFields(logrus.Fields{
		"worker":    w.ID,
		"update_id": u.ID,
		"kind":      u.Kind,
	})
	log.Debug("processing update")

	backoff := w.RetryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}

	for {
		err := w.handle(ctx, u)
		if err == nil {
			w.Counters.Processed.Add(1)
			log.Debug("update completed")
			break
		}
		w.Counters.Failed.Add(1)
		u.RetryCount++
		if u.RetryCount > w.MaxRetries {
			log.WithField("event_id", "UPDATE_DEAD_LETTERED").Errorf("update failed after %d retries, sending to DLQ: %v", w.MaxRetries, err)
			w.deadLetter(ctx, u, log)
			break
		}
		log.WithField("event_id", "UPDATE_RETRY").Warnf("retrying update (attempt %d): %v", u.RetryCount, err)
		select {
		case <-ctx.Done():
			// Left unacked; a durable queue replays it on the next start.
			log.WithField("event_id", "UPDATE_RETRY_ABORTED").Warn("shutting down before retry")
			return
		case <-time.After(backoff * time.Duration(u.RetryCount)):
		}
		w.Counters.Retried.Add(1)
	}

	if err := w.Queue.Ack(ctx, d.ID); err != nil {
		log.WithField("event_id", "QUEUE_ACK_FAILED").Errorf("could not ack delivery %s: %v", d.ID, err)
	}
}

func (w *Worker) handle(ctx context.Context, u model.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return w.Handler.Handle(ctx, u)
}

func (w *Worker) deadLetter(ctx context.Context, u model.Update, log *logrus.Entry) {
	if err := w.Queue.DeadLetter(ctx, u); err != nil {
		log.WithField("event_id", "DLQ_WRITE_FAILED").Errorf("could not dead-letter update: %v", err)
		return
	}
	w.Counters.DeadLettered.Add(1)
}

// Pool runs n workers against one queue and handler.
type Pool struct {
	Workers  []*Worker
	Counters *Counters
}

func NewPool(n int, q queue.Queue, h Handler, maxRetries int) *Pool {
	if n < 1 {
		n = 1
	}
	counters := &Counters{}
	p := &Pool{Counters: counters}
	for i := 0; i < n; i++ {
		p.Workers = append(p.Workers, &Worker{
			ID:         fmt.Sprintf("worker-%d", i),
			Queue:      q,
			Handler:    h,
			MaxRetries: maxRetries,
			Counters:   counters,
		})
	}
	return p
}

// Run blocks until every worker has stopped.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range p.Workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}
	wg.Wait()
}
