package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Mux routes task types to workers and logs every task outcome.
type Mux struct {
	mux *asynq.ServeMux
}

func NewMux() *Mux {
	m := asynq.NewServeMux()
	m.Use(logTasks)
	return &Mux{mux: m}
}

func (m *Mux) Handle(taskType string, handler asynq.Handler) {
	m.mux.Handle(taskType, handler)
}

func (m *Mux) ServeMux() *asynq.ServeMux {
	return m.mux
}

func logTasks(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, t)
		if err != nil {
			slog.Error("task failed", "type", t.Type(), "duration", time.Since(start), "error", err)
			return err
		}
		slog.Info("task done", "type", t.Type(), "duration", time.Since(start))
		return nil
	})
}
