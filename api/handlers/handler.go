package handler

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/mrinalgaur2005/taskbot/producer"
	"github.com/mrinalgaur2005/taskbot/queue"
	"github.com/mrinalgaur2005/taskbot/store"
	"github.com/mrinalgaur2005/taskbot/worker"
)

// Handler serves the HTTP surface. It only enqueues; the worker pool does the rest.
type Handler struct {
	Queue    queue.Queue
	Producer *producer.Producer
	Store    store.Store
	Counters *worker.Counters
	// WebhookSecret, when set, must match the X-Telegram-Bot-Api-Secret-Token header.
	WebhookSecret string

	enqueued atomic.Int64
}

func New(q queue.Queue, st store.Store, counters *worker.Counters, webhookSecret string) *Handler {
	return &Handler{
		Queue:         q,
		Producer:      producer.New(q),
		Store:         st,
		Counters:      counters,
		WebhookSecret: webhookSecret,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.Errorf("Event ID: HTTP_ENCODE_FAILED, Description: %v", err)
	}
}
