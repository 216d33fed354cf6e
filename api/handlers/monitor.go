package handler

import (
	"net/http"

	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/mrinalgaur2005/taskbot/model"
	"github.com/mrinalgaur2005/taskbot/worker"
)

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("The bot is still running fine :)"))
}

type metrics struct {
	Enqueued int64 `json:"enqueued"`
	worker.Snapshot
	InDLQ int64       `json:"in_dlq"`
	Store model.Stats `json:"store"`
}

func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	m := metrics{Enqueued: h.enqueued.Load()}
	if h.Counters != nil {
		m.Snapshot = h.Counters.Snapshot()
	}

	var err error
	if m.InDLQ, err = h.Queue.DeadLetterCount(r.Context()); err != nil {
		logging.Logger.Errorf("Event ID: METRICS_DLQ_FAILED, Description: %v", err)
	}
	if m.Store, err = h.Store.Stats(r.Context()); err != nil {
		logging.Logger.Errorf("Event ID: METRICS_STORE_FAILED, Description: %v", err)
		http.Error(w, "Failed to collect metrics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
