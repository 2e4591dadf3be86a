package outbound

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hsrelay/internal/pkg/async"
)

// Worker runs a Dispatcher as an application background worker. Stop drains
// the queue for at most the drain timeout.
type Worker struct {
	dispatcher *Dispatcher
	drain      time.Duration
}

const defaultDrainTimeout = 10 * time.Second

func NewWorker(dispatcher *Dispatcher, drain time.Duration) *Worker {
	if drain <= 0 {
		drain = defaultDrainTimeout
	}
	return &Worker{dispatcher: dispatcher, drain: drain}
}

// Start launches the dispatcher workers.
func (w *Worker) Start() error {
	w.dispatcher.Start(context.Background())
	w.dispatcher.logger.Info("Outbound dispatcher started")
	return nil
}

// Stop stops accepting requests and waits for queued deliveries.
func (w *Worker) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), w.drain)
	defer cancel()

	err := w.dispatcher.Stop(ctx)
	switch {
	case err == nil:
		w.dispatcher.logger.Info("Outbound dispatcher stopped")
	case errors.Is(err, async.ErrStopped):
	default:
		w.dispatcher.logger.Warn("Outbound dispatcher stopped before draining",
			slog.Int("pending", w.dispatcher.Pending()),
			slog.Any("error", err))
	}
}
