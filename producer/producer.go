package producer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/mrinalgaur2005/taskbot/model"
	"github.com/mrinalgaur2005/taskbot/queue"
	"github.com/sirupsen/logrus"
)

var ErrInvalidFormat = errors.New("invalid format")

// ParseSubmission parses "<user_id>,<task>". Exactly one comma is allowed.
func ParseSubmission(raw string) (model.WebhookUpdate, error) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) != 2 {
		return model.WebhookUpdate{}, fmt.Errorf("%w: expected 2 comma-separated values, got %d", ErrInvalidFormat, len(parts))
	}
	idText := strings.TrimSpace(parts[0])
	userID, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return model.WebhookUpdate{}, fmt.Errorf("%w: user id %q is not an integer", ErrInvalidFormat, idText)
	}
	task := strings.TrimSpace(parts[1])
	if task == "" {
		return model.WebhookUpdate{}, fmt.Errorf("%w: task is empty", ErrInvalidFormat)
	}
	return model.WebhookUpdate{UserID: userID, Task: task}, nil
}

type Producer struct {
	Queue queue.Queue
	now   func() time.Time
}

func New(q queue.Queue) *Producer {
	return &Producer{Queue: q, now: time.Now}
}

func (p *Producer) SubmitTask(ctx context.Context, wu model.WebhookUpdate) (string, error) {
	u := model.Update{
		ID:         uuid.NewString(),
		Kind:       model.KindWebhook,
		Webhook:    &wu,
		ReceivedAt: p.now().UTC(),
	}
	if err := p.Queue.Enqueue(ctx, u); err != nil {
		return "", fmt.Errorf("enqueue task for %d: %w", wu.UserID, err)
	}
	logging.Logger.WithFields(logrus.Fields{
		"event_id":  "TASK_SUBMITTED",
		"update_id": u.ID,
		"user_id":   wu.UserID,
	}).Info("task submission queued")
	return u.ID, nil
}
