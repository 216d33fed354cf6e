package model

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookUpdate bridges an out-of-band task submission into the bot's update path.
type WebhookUpdate struct {
	UserID int64  `json:"user_id"`
	Task   string `json:"task"`
}

type UpdateKind string

const (
	KindTelegram UpdateKind = "telegram"
	KindWebhook  UpdateKind = "webhook"
)

// Update is the envelope that travels through the queue.
type Update struct {
	ID         string           `json:"id"`
	Kind       UpdateKind       `json:"kind"`
	Telegram   *tgbotapi.Update `json:"telegram,omitempty"`
	Webhook    *WebhookUpdate   `json:"webhook,omitempty"`
	RetryCount int              `json:"retry_count"`
	ReceivedAt time.Time        `json:"received_at"`
}

// Session holds the per-user conversation flags.
type Session struct {
	WaitingForUserID     bool  `json:"waiting_for_user_id" bson:"waiting_for_user_id"`
	AssigningTaskTo      int64 `json:"assigning_task_to" bson:"assigning_task_to"`
	AwaitingCustomUpdate bool  `json:"awaiting_custom_update" bson:"awaiting_custom_update"`
}

func (s Session) Idle() bool {
	return !s.WaitingForUserID && s.AssigningTaskTo == 0 && !s.AwaitingCustomUpdate
}

// User is a directory entry recorded for every message sender.
type User struct {
	ID        int64  `json:"id" bson:"_id"`
	Username  string `json:"username,omitempty" bson:"username,omitempty"`
	FirstName string `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty" bson:"last_name,omitempty"`
}

func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return ""
	}
}

type Stats struct {
	UsersWithTasks int `json:"users_with_tasks"`
	OpenTasks      int `json:"open_tasks"`
}
