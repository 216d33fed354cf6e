package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	handler "github.com/mrinalgaur2005/taskbot/api/handlers"
	"github.com/mrinalgaur2005/taskbot/bot"
	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

type Options struct {
	JWTSecret   string
	CORSOrigins []string
}

func SetupRouter(h *handler.Handler, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Post(bot.WebhookPath, h.Telegram)
	r.Get("/healthcheck", h.HealthCheck)
	r.Get("/monitor/metrics", h.Metrics)

	r.Group(func(r chi.Router) {
		if opts.JWTSecret != "" {
			r.Use(RequireJWT([]byte(opts.JWTSecret)))
		}
		r.Post("/submittask", h.SubmitTask)
		r.Get("/tasks/{userID}", h.GetTasks)
	})

	if len(opts.CORSOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(r)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Debug("http request")
	})
}
