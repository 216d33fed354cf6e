package store

import (
	"context"
	"sync"

	"github.com/mrinalgaur2005/taskbot/model"
)

type memoryStore struct {
	mtx       sync.RWMutex
	tasks     map[int64][]string
	sessions  map[int64]model.Session
	usernames map[string]model.User
}

func NewMemoryStore() Store {
	return &memoryStore{
		tasks:     map[int64][]string{},
		sessions:  map[int64]model.Session{},
		usernames: map[string]model.User{},
	}
}

func (s *memoryStore) AddTask(ctx context.Context, userID int64, task string) ([]string, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.tasks[userID] = append(s.tasks[userID], task)
	return cloneTasks(s.tasks[userID]), nil
}

func (s *memoryStore) Tasks(ctx context.Context, userID int64) ([]string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return cloneTasks(s.tasks[userID]), nil
}

func (s *memoryStore) RemoveTask(ctx context.Context, userID int64, task string) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	tasks, ok := removeFirst(s.tasks[userID], task)
	if !ok {
		return false, nil
	}
	if len(tasks) == 0 {
		delete(s.tasks, userID)
	} else {
		s.tasks[userID] = tasks
	}
	return true, nil
}

func (s *memoryStore) Session(ctx context.Context, userID int64) (model.Session, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.sessions[userID], nil
}

func (s *memoryStore) SaveSession(ctx context.Context, userID int64, sess model.Session) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if sess.Idle() {
		delete(s.sessions, userID)
		return nil
	}
	s.sessions[userID] = sess
	return nil
}

func (s *memoryStore) ClearSession(ctx context.Context, userID int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.sessions, userID)
	return nil
}

func (s *memoryStore) RememberUser(ctx context.Context, u model.User) error {
	key := NormalizeUsername(u.Username)
	if key == "" {
		return nil
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.usernames[key] = u
	return nil
}

func (s *memoryStore) LookupUsername(ctx context.Context, username string) (model.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.usernames[NormalizeUsername(username)]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (s *memoryStore) Stats(ctx context.Context) (model.Stats, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	stats := model.Stats{UsersWithTasks: len(s.tasks)}
	for _, tasks := range s.tasks {
		stats.OpenTasks += len(tasks)
	}
	return stats, nil
}

func (s *memoryStore) Close() error {
	return nil
}

func cloneTasks(tasks []string) []string {
	if len(tasks) == 0 {
		return []string{}
	}
	cpy := make([]string, len(tasks))
	copy(cpy, tasks)
	return cpy
}
