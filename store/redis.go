package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mrinalgaur2005/taskbot/model"
	"github.com/redis/go-redis/v9"
)

const (
	tasksKeyPrefix   = "taskbot:tasks:"
	sessionKeyPrefix = "taskbot:session:"
	usersKey         = "taskbot:users"
)

type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

func tasksKey(userID int64) string {
	return tasksKeyPrefix + strconv.FormatInt(userID, 10)
}

func sessionKey(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}

func (s *RedisStore) AddTask(ctx context.Context, userID int64, task string) ([]string, error) {
	key := tasksKey(userID)
	pipe := s.Client.TxPipeline()
	pipe.RPush(ctx, key, task)
	all := pipe.LRange(ctx, key, 0, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("add task for %d: %w", userID, err)
	}
	return all.Val(), nil
}

func (s *RedisStore) Tasks(ctx context.Context, userID int64) ([]string, error) {
	tasks, err := s.Client.LRange(ctx, tasksKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list tasks for %d: %w", userID, err)
	}
	return tasks, nil
}

func (s *RedisStore) RemoveTask(ctx context.Context, userID int64, task string) (bool, error) {
	n, err := s.Client.LRem(ctx, tasksKey(userID), 1, task).Result()
	if err != nil {
		return false, fmt.Errorf("remove task for %d: %w", userID, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Session(ctx context.Context, userID int64) (model.Session, error) {
	data, err := s.Client.HGetAll(ctx, sessionKey(userID)).Result()
	if err != nil {
		return model.Session{}, fmt.Errorf("load session for %d: %w", userID, err)
	}
	var sess model.Session
	sess.WaitingForUserID = data["waiting_for_user_id"] == "1"
	sess.AwaitingCustomUpdate = data["awaiting_custom_update"] == "1"
	if raw := data["assigning_task_to"]; raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.Session{}, fmt.Errorf("corrupt session for %d: %w", userID, err)
		}
		sess.AssigningTaskTo = id
	}
	return sess, nil
}

func (s *RedisStore) SaveSession(ctx context.Context, userID int64, sess model.Session) error {
	if sess.Idle() {
		return s.ClearSession(ctx, userID)
	}
	err := s.Client.HSet(ctx, sessionKey(userID), map[string]interface{}{
		"waiting_for_user_id":    boolFlag(sess.WaitingForUserID),
		"assigning_task_to":      sess.AssigningTaskTo,
		"awaiting_custom_update": boolFlag(sess.AwaitingCustomUpdate),
	}).Err()
	if err != nil {
		return fmt.Errorf("save session for %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) ClearSession(ctx context.Context, userID int64) error {
	if err := s.Client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear session for %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) RememberUser(ctx context.Context, u model.User) error {
	key := NormalizeUsername(u.Username)
	if key == "" {
		return nil
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.Client.HSet(ctx, usersKey, key, raw).Err(); err != nil {
		return fmt.Errorf("remember user %d: %w", u.ID, err)
	}
	return nil
}

func (s *RedisStore) LookupUsername(ctx context.Context, username string) (model.User, error) {
	raw, err := s.Client.HGet(ctx, usersKey, NormalizeUsername(username)).Result()
	if errors.Is(err, redis.Nil) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("lookup username: %w", err)
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return model.User{}, fmt.Errorf("decode user entry: %w", err)
	}
	return u, nil
}

func (s *RedisStore) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	iter := s.Client.Scan(ctx, 0, tasksKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := s.Client.LLen(ctx, iter.Val()).Result()
		if err != nil {
			return model.Stats{}, err
		}
		if n > 0 {
			stats.UsersWithTasks++
			stats.OpenTasks += int(n)
		}
	}
	if err := iter.Err(); err != nil {
		return model.Stats{}, fmt.Errorf("scan task lists: %w", err)
	}
	return stats, nil
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
