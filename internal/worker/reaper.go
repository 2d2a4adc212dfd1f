package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultReaperSchedule runs the stale job sweep every five minutes
const DefaultReaperSchedule = "*/5 * * * *"

// StaleJobFailer fails jobs left mid-pipeline since before cutoff
type StaleJobFailer interface {
	FailStaleJobs(ctx context.Context, cutoff time.Time) ([]string, error)
}

// ReaperConfig holds stale job sweep settings
type ReaperConfig struct {
	Schedule   string
	StaleAfter time.Duration
	Timeout    time.Duration
}

// Reaper periodically fails jobs whose worker died between stages
type Reaper struct {
	store  StaleJobFailer
	cfg    ReaperConfig
	logger *slog.Logger
	cron   *cron.Cron
	now    func() time.Time
}

// NewReaper creates a Reaper. StaleAfter must exceed the worker job timeout.
func NewReaper(store StaleJobFailer, cfg ReaperConfig, logger *slog.Logger) (*Reaper, error) {
	if cfg.StaleAfter <= 0 {
		return nil, errors.New("reaper stale_after must be greater than 0")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultReaperSchedule
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Reaper{
		store:  store,
		cfg:    cfg,
		logger: logger,
		cron:   cron.New(),
		now:    time.Now,
	}, nil
}

// Start schedules the sweep; ctx bounds every sweep started afterwards
func (r *Reaper) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.cfg.Schedule, func() {
		if _, err := r.Sweep(ctx); err != nil {
			r.logger.Error("Stale job sweep failed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("invalid reaper schedule %q: %w", r.cfg.Schedule, err)
	}

	r.cron.Start()
	r.logger.Info("Stale job reaper started",
		slog.String("schedule", r.cfg.Schedule),
		slog.Duration("stale_after", r.cfg.StaleAfter),
	)
	return nil
}

// Stop waits for a running sweep to finish
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
}

// Sweep fails every job that made no progress within StaleAfter and returns their ids
func (r *Reaper) Sweep(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cutoff := r.now().Add(-r.cfg.StaleAfter)
	ids, err := r.store.FailStaleJobs(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to fail stale jobs: %w", err)
	}

	if len(ids) > 0 {
		r.logger.Warn("Failed stale jobs",
			slog.Int("count", len(ids)),
			slog.Any("job_ids", ids),
			slog.Time("cutoff", cutoff),
		)
	}
	return ids, nil
}
