package store

import (
	"context"
	"errors"
	"strings"

	"github.com/mrinalgaur2005/taskbot/model"
)

var ErrNotFound = errors.New("not found")

// Store keeps the per-user task lists, conversation sessions and the
// username directory. Task lists keep insertion order and allow duplicates.
type Store interface {
	// AddTask appends task to the user's list and returns the list after the append.
	AddTask(ctx context.Context, userID int64, task string) ([]string, error)
	Tasks(ctx context.Context, userID int64) ([]string, error)
	// RemoveTask removes the first entry equal to task. It reports whether one was removed.
	RemoveTask(ctx context.Context, userID int64, task string) (bool, error)

	Session(ctx context.Context, userID int64) (model.Session, error)
	SaveSession(ctx context.Context, userID int64, s model.Session) error
	ClearSession(ctx context.Context, userID int64) error

	RememberUser(ctx context.Context, u model.User) error
	// LookupUsername returns ErrNotFound when no sender with that handle was seen.
	LookupUsername(ctx context.Context, username string) (model.User, error)

	Stats(ctx context.Context) (model.Stats, error)
	Close() error
}

// NormalizeUsername strips a leading @ and lowercases the handle.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

func removeFirst(tasks []string, task string) ([]string, bool) {
	for i, t := range tasks {
		if t == task {
			return append(tasks[:i:i], tasks[i+1:]...), true
		}
	}
	return tasks, false
}
