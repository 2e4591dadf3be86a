// Package outbound executes the requests built by the tracking component.
package outbound

import (
	"context"
	"log/slog"
	"time"

	"hsrelay/internal/deliveries"
	"hsrelay/internal/hubspot"
	"hsrelay/internal/pkg/async"
)

// Journal stores the outcome of each delivery.
type Journal interface {
	Record(d *deliveries.Delivery) error
}

type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Transport Transport
	Journal   Journal
}

// Dispatcher delivers requests on a bounded worker pool. Delivery is
// fire-and-forget: failures are logged and journaled, never retried.
type Dispatcher struct {
	pool      *async.Pool
	transport Transport
	journal   Journal
	logger    *slog.Logger
	now       func() time.Time
}

func NewDispatcher(opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	transport := opts.Transport
	if transport == nil {
		transport = FiberTransport(opts.Timeout)
	}

	return &Dispatcher{
		pool:      async.NewPool(opts.Workers, opts.QueueSize, logger),
		transport: transport,
		journal:   opts.Journal,
		logger:    logger,
		now:       time.Now,
	}
}

// Start launches the workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.Start(ctx)
}

// Stop drains the queue, waiting at most until ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	return d.pool.Stop(ctx)
}

// Pending returns the number of requests waiting for a worker.
func (d *Dispatcher) Pending() int {
	return d.pool.Pending()
}

// Fetch enqueues req. It returns false and drops the request when the queue
// is full or the dispatcher is stopped.
func (d *Dispatcher) Fetch(req hubspot.Request, origin Origin) bool {
	accepted := d.pool.Submit(async.Task{
		Name: string(req.Kind),
		Execute: func(ctx context.Context) error {
			d.deliver(ctx, req, origin)
			return nil
		},
	})
	if !accepted {
		d.logger.Warn("Outbound request dropped",
			slog.String("kind", string(req.Kind)),
			slog.String("target", deliveries.TargetOf(req.URL)))
	}
	return accepted
}

func (d *Dispatcher) deliver(ctx context.Context, req hubspot.Request, origin Origin) {
	started := d.now()
	code, err := d.transport(ctx, req, origin)
	elapsed := d.now().Sub(started)

	record := &deliveries.Delivery{
		Kind:       string(req.Kind),
		Method:     req.Method,
		Target:     deliveries.TargetOf(req.URL),
		StatusCode: code,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  started,
	}
	if err != nil {
		record.Error = err.Error()
	}

	attrs := []any{
		slog.String("kind", record.Kind),
		slog.String("target", record.Target),
		slog.Int("status", code),
		slog.Duration("elapsed", elapsed),
	}
	if record.Failed() {
		d.logger.Warn("Outbound request failed", append(attrs, slog.String("error", record.Error))...)
	} else {
		d.logger.Debug("Outbound request delivered", attrs...)
	}

	if d.journal == nil {
		return
	}
	if err := d.journal.Record(record); err != nil {
		d.logger.Error("Failed to journal delivery", slog.Any("error", err))
	}
}
