package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/mrinalgaur2005/taskbot/producer"
)

const maxSubmissionBytes = 64 << 10

func (h *Handler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSubmissionBytes))
	if err != nil {
		http.Error(w, "Invalid request format: could not read body", http.StatusBadRequest)
		return
	}

	wu, err := producer.ParseSubmission(string(body))
	if err != nil {
		http.Error(w, "Invalid request format: "+reason(err), http.StatusBadRequest)
		return
	}

	id, err := h.Producer.SubmitTask(r.Context(), wu)
	if err != nil {
		logging.Logger.Errorf("Event ID: SUBMIT_ENQUEUE_FAILED, Description: %v", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	h.enqueued.Add(1)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "queued",
		"update_id": id,
		"user_id":   wu.UserID,
	})
}

// reason strips the sentinel prefix so only the parse message reaches the client.
func reason(err error) string {
	msg := err.Error()
	prefix := producer.ErrInvalidFormat.Error() + ": "
	if errors.Is(err, producer.ErrInvalidFormat) && len(msg) > len(prefix) {
		return msg[len(prefix):]
	}
	return msg
}

func (h *Handler) GetTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	tasks, err := h.Store.Tasks(r.Context(), userID)
	if err != nil {
		logging.Logger.Errorf("Event ID: TASKS_READ_FAILED, Description: user %d: %v", userID, err)
		http.Error(w, "Failed to fetch tasks", http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"tasks":   tasks,
	})
}
