package jobs

import (
	"log/slog"
	"time"

	"hsrelay/internal/deliveries"
)

// ReportJob logs how the outbound deliveries fared over the last window, so
// a HubSpot outage shows up in the logs without querying the journal.
type ReportJob struct {
	store  *deliveries.Store
	logger *slog.Logger
	window time.Duration
	now    func() time.Time
}

func NewReportJob(store *deliveries.Store, logger *slog.Logger, window time.Duration) *ReportJob {
	return &ReportJob{
		store:  store,
		logger: logger,
		window: window,
		now:    time.Now,
	}
}

func (j *ReportJob) Name() string { return "delivery_report" }

func (j *ReportJob) Run() error {
	summary, err := j.store.Summarize(j.now().Add(-j.window))
	if err != nil {
		return err
	}
	if summary.Total == 0 {
		j.logger.Debug("No deliveries in report window", slog.Duration("window", j.window))
		return nil
	}

	attrs := []any{
		slog.Duration("window", j.window),
		slog.Int64("total", summary.Total),
		slog.Int64("failed", summary.Failed),
	}
	for _, k := range summary.Kinds {
		attrs = append(attrs, slog.Group(k.Kind,
			slog.Int64("total", k.Total),
			slog.Int64("failed", k.Failed)))
	}

	if summary.Failed > 0 {
		j.logger.Warn("Some deliveries to HubSpot failed", attrs...)
		return nil
	}
	j.logger.Info("Deliveries to HubSpot healthy", attrs...)
	return nil
}
