package main

import (
	"context"
	"fmt"

	"github.com/mrinalgaur2005/taskbot/config"
	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/mrinalgaur2005/taskbot/queue"
	"github.com/mrinalgaur2005/taskbot/store"
	"github.com/redis/go-redis/v9"
)

func newRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		client, err := newRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(client), nil
	case "mongo":
		return store.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// openQueue gives the Redis queue its own client so closing the queue does
// not close the store's connection.
func openQueue(ctx context.Context, cfg config.Config) (queue.Queue, error) {
	switch cfg.Queue.Driver {
	case "memory":
		return queue.NewMemoryQueue(cfg.Queue.Size), nil
	case "redis":
		client, err := newRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		q, err := queue.NewRedisQueue(ctx, client, cfg.Queue.Stream, cfg.Queue.Group, cfg.Queue.Consumer, cfg.Queue.Block)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
}

func closeWithLog(name string, c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		logging.Logger.Warnf("Event ID: CLOSE_FAILED, Description: closing %s: %v", name, err)
	}
}
