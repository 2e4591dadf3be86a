package jobs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"hsrelay/internal/config"
	"hsrelay/internal/deliveries"
)

const (
	cleanupInterval = 24 * time.Hour
	reportInterval  = time.Hour
)

// Job is a unit of background work run on a fixed interval.
type Job interface {
	Name() string
	Run() error
}

type scheduledJob struct {
	job      Job
	interval time.Duration
	busy     atomic.Bool
}

// Scheduler runs the journal maintenance jobs. Each job fires once on start
// and then on its own ticker; a tick is skipped while the previous run of the
// same job is still going.
type Scheduler struct {
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	enabled bool
	running atomic.Bool

	jobs []*scheduledJob
	done sync.WaitGroup
}

// NewScheduler creates a scheduler for the delivery journal. Jobs are
// disabled when the journal is off.
func NewScheduler(store *deliveries.Store, cfg *config.Config, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		enabled: cfg.DeliveryLog && store != nil,
	}
	s.Register(NewCleanupJob(store, logger, cfg.DeliveryRetentionDays), cleanupInterval)
	s.Register(NewReportJob(store, logger, reportInterval), reportInterval)
	return s
}

// Register adds a job. It must be called before Start.
func (s *Scheduler) Register(job Job, interval time.Duration) {
	s.jobs = append(s.jobs, &scheduledJob{job: job, interval: interval})
}

// Start begins all background jobs
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	for _, sj := range s.jobs {
		s.done.Add(1)
		go s.loop(sj)
	}

	s.logger.Info("Background jobs started", slog.Int("jobs", len(s.jobs)))
	return nil
}

func (s *Scheduler) loop(sj *scheduledJob) {
	defer s.done.Done()

	name := sj.job.Name()
	s.logger.Info("Starting job", slog.String("job", name), slog.Duration("interval", sj.interval))

	ticker := time.NewTicker(sj.interval)
	defer ticker.Stop()

	s.execute(sj)
	for {
		select {
		case <-ticker.C:
			s.execute(sj)
		case <-s.ctx.Done():
			s.logger.Info("Job stopped", slog.String("job", name))
			return
		}
	}
}

func (s *Scheduler) execute(sj *scheduledJob) {
	name := sj.job.Name()
	if !sj.busy.CompareAndSwap(false, true) {
		s.logger.Debug("Skipping job execution - previous run still going", slog.String("job", name))
		return
	}
	defer sj.busy.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", name),
				slog.Any("panic", r))
		}
	}()

	if err := sj.job.Run(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", name), slog.Any("error", err))
	}
}

// Stop halts all background jobs and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.done.Wait()
	if s.running.Swap(false) {
		s.logger.Info("Background jobs stopped")
	}
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}
