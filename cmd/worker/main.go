package main

import (
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/nikhilbhutani/teamroster/internal/config"
	"github.com/nikhilbhutani/teamroster/internal/notify"
	"github.com/nikhilbhutani/teamroster/internal/queue"
	"github.com/nikhilbhutani/teamroster/internal/queue/workers"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var sender notify.Sender = notify.LogSender{}
	if cfg.Notify.URL != "" {
		sender = notify.NewHTTPSender(cfg.Notify.URL, cfg.Notify.Secret, cfg.Notify.Timeout)
	} else {
		slog.Warn("NOTIFY_URL not set, invitations will only be logged")
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	mux := queue.NewMux()
	mux.Handle(queue.TypeInvitationDeliver, workers.NewInvitationWorker(sender))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(mux.ServeMux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
