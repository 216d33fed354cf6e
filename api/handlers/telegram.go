package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/mrinalgaur2005/taskbot/model"
	"github.com/sirupsen/logrus"
)

const (
	SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes    = 1 << 20
)

// Telegram receives Bot API updates pushed to the webhook and queues them verbatim.
func (h *Handler) Telegram(w http.ResponseWriter, r *http.Request) {
	if h.WebhookSecret != "" {
		got := r.Header.Get(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.WebhookSecret)) != 1 {
			logging.Logger.Warnf("Event ID: WEBHOOK_SECRET_MISMATCH, Description: rejected update from %s", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	var update tgbotapi.Update
	body := http.MaxBytesReader(w, r.Body, maxUpdateBytes)
	if err := json.NewDecoder(body).Decode(&update); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	u := model.Update{
		ID:         uuid.NewString(),
		Kind:       model.KindTelegram,
		Telegram:   &update,
		ReceivedAt: time.Now().UTC(),
	}
	if err := h.Queue.Enqueue(r.Context(), u); err != nil {
		logging.Logger.WithFields(logrus.Fields{
			"event_id":           "WEBHOOK_ENQUEUE_FAILED",
			"telegram_update_id": update.UpdateID,
		}).Errorf("could not queue update: %v", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	h.enqueued.Add(1)
	w.WriteHeader(http.StatusOK)
}
