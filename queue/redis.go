package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/mrinalgaur2005/taskbot/model"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type RedisQueue struct {
	Client *redis.Client
	Stream string
	Group  string
	Name   string
	Block  time.Duration

	mtx sync.Mutex
	// backlog is the last replayed pending ID, "" once this consumer's
	// unacked entries from a previous run have all been handed out.
	backlog string
}

// NewRedisQueue makes sure the consumer group exists and returns a queue
// reading from it as consumer name.
func NewRedisQueue(ctx context.Context, client *redis.Client, stream, group, name string, block time.Duration) (*RedisQueue, error) {
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group %s on %s: %w", group, stream, err)
	}
	if block <= 0 {
		block = 5 * time.Second
	}
	return &RedisQueue{
		Client:  client,
		Stream:  stream,
		Group:   group,
		Name:    name,
		Block:   block,
		backlog: "0",
	}, nil
}

func (rq *RedisQueue) DLQStream() string {
	return rq.Stream + ":dlq"
}

func (rq *RedisQueue) Enqueue(ctx context.Context, u model.Update) error {
	return rq.add(ctx, rq.Stream, u)
}

func (rq *RedisQueue) Dequeue(ctx context.Context) (Delivery, error) {
	if d, ok, err := rq.nextPending(ctx); err != nil || ok {
		return d, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return Delivery{}, err
		}
		entries, err := rq.Client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    rq.Group,
			Consumer: rq.Name,
			Streams:  []string{rq.Stream, ">"},
			Count:    1,
			Block:    rq.Block,
		}).Result()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Delivery{}, ctxErr
		}
		if err := rq.readErr(err); err != nil {
			return Delivery{}, err
		}
		if len(entries) == 0 || len(entries[0].Messages) == 0 {
			continue
		}
		if d, ok := rq.decode(ctx, entries[0].Messages[0]); ok {
			return d, nil
		}
	}
}

// nextPending replays entries delivered to this consumer but never acked,
// e.g. because the process stopped mid-update.
func (rq *RedisQueue) nextPending(ctx context.Context) (Delivery, bool, error) {
	rq.mtx.Lock()
	defer rq.mtx.Unlock()

	for rq.backlog != "" {
		entries, err := rq.Client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    rq.Group,
			Consumer: rq.Name,
			Streams:  []string{rq.Stream, rq.backlog},
			Count:    1,
			Block:    -1,
		}).Result()
		if err := rq.readErr(err); err != nil {
			return Delivery{}, false, err
		}
		if len(entries) == 0 || len(entries[0].Messages) == 0 {
			if rq.backlog != "0" {
				logging.Logger.WithField("event_id", "QUEUE_BACKLOG_REPLAYED").Info("pending stream entries replayed")
			}
			rq.backlog = ""
			return Delivery{}, false, nil
		}
		msg := entries[0].Messages[0]
		rq.backlog = msg.ID
		if d, ok := rq.decode(ctx, msg); ok {
			return d, true, nil
		}
	}
	return Delivery{}, false, nil
}

func (rq *RedisQueue) readErr(err error) error {
	switch {
	case err == nil, errors.Is(err, redis.Nil):
		return nil
	case errors.Is(err, redis.ErrClosed):
		return ErrClosed
	default:
		return fmt.Errorf("read %s: %w", rq.Stream, err)
	}
}

// decode acks and drops entries that are not valid updates.
func (rq *RedisQueue) decode(ctx context.Context, msg redis.XMessage) (Delivery, bool) {
	raw, _ := msg.Values["data"].(string)
	var u model.Update
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		logging.Logger.WithFields(logrus.Fields{
			"event_id":  "QUEUE_DECODE_FAILED",
			"stream_id": msg.ID,
		}).Errorf("dropping undecodable stream entry: %v", err)
		_ = rq.Ack(ctx, msg.ID)
		return Delivery{}, false
	}
	return Delivery{ID: msg.ID, Update: u}, true
}

func (rq *RedisQueue) Ack(ctx context.Context, id string) error {
	return rq.Client.XAck(ctx, rq.Stream, rq.Group, id).Err()
}

func (rq *RedisQueue) DeadLetter(ctx context.Context, u model.Update) error {
	return rq.add(ctx, rq.DLQStream(), u)
}

func (rq *RedisQueue) DeadLetterCount(ctx context.Context) (int64, error) {
	return rq.Client.XLen(ctx, rq.DLQStream()).Result()
}

func (rq *RedisQueue) Close() error {
	return rq.Client.Close()
}

func (rq *RedisQueue) add(ctx context.Context, stream string, u model.Update) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode update %s: %w", u.ID, err)
	}
	err = rq.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"data": string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("push update %s to %s: %w", u.ID, stream, err)
	}
	return nil
}
