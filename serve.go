package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mrinalgaur2005/taskbot/api"
	handler "github.com/mrinalgaur2005/taskbot/api/handlers"
	"github.com/mrinalgaur2005/taskbot/bot"
	"github.com/mrinalgaur2005/taskbot/config"
	"github.com/mrinalgaur2005/taskbot/logging"
	"github.com/mrinalgaur2005/taskbot/producer"
	"github.com/mrinalgaur2005/taskbot/worker"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Register the webhook and serve Telegram updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if err := cfg.RequireWebhookURL(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr).")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeWithLog("store", st)

	q, err := openQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeWithLog("queue", q)

	tg, err := bot.NewClient(cfg.Bot.Token, cfg.Bot.APIEndpoint, cfg.Bot.Debug)
	if err != nil {
		return err
	}
	if err := bot.SetWebhook(tg, cfg.Bot.WebhookURL, cfg.Bot.WebhookSecret); err != nil {
		return err
	}
	logging.Logger.WithFields(logrus.Fields{
		"event_id": "WEBHOOK_REGISTERED",
		"bot":      tg.Self.UserName,
		"url":      cfg.Bot.WebhookURL + bot.WebhookPath,
	}).Info("webhook registered")

	b := bot.New(bot.WithBreaker(tg, "telegram"), st, producer.New(q), bot.Config{
		AdminChatID: cfg.Bot.AdminChatID,
		PublicURL:   cfg.Bot.WebhookURL,
	})
	pool := worker.NewPool(cfg.Queue.Workers, q, b, cfg.Queue.MaxRetries)

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.SetupRouter(
			handler.New(q, st, pool.Counters, cfg.Bot.WebhookSecret),
			api.Options{JWTSecret: cfg.Server.JWTSecret, CORSOrigins: cfg.Server.CORSOrigins},
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pool.Run(workerCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logging.Logger.Infof("Event ID: SERVER_STARTED, Description: listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	logging.Logger.Info("Event ID: SERVER_SHUTDOWN, Description: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logging.Logger.Warnf("Event ID: SERVER_SHUTDOWN_FAILED, Description: %v", serr)
	}
	stopWorkers()
	wg.Wait()
	return err
}
