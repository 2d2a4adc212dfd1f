// Package pipeline runs one analysis job through resolve, fetch, analyze and notify.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/tube-insights/internal/domain"
	"github.com/cuongbtq/tube-insights/internal/jobstore"
)

const (
	// DefaultStageTimeout bounds each external call
	DefaultStageTimeout = 60 * time.Second

	// DefaultLockTTL is how long a run lock survives a crashed holder
	DefaultLockTTL = 10 * time.Minute
)

// ChannelResolver maps a channel name to a channel id
type ChannelResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// ContentFetcher loads the recent content of a channel
type ContentFetcher interface {
	Fetch(ctx context.Context, channelID string) ([]domain.ContentItem, error)
}

// Analyzer produces the analysis result for the requested services
type Analyzer interface {
	Analyse(ctx context.Context, videos []domain.ContentItem, services []string) (*domain.AnalysisResult, error)
}

// Notifier delivers the completion email
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Config holds pipeline settings
type Config struct {
	StageTimeout time.Duration
	LockTTL      time.Duration
	EmailSubject string
}

// Dependencies holds everything a Pipeline needs
type Dependencies struct {
	Logger   *slog.Logger
	Store    jobstore.Store
	Resolver ChannelResolver
	Fetcher  ContentFetcher
	Analyzer Analyzer
	Notifier Notifier
	Locker   Locker
}

// Pipeline drives jobs through their stages. It is safe for concurrent use across job ids.
type Pipeline struct {
	logger   *slog.Logger
	store    jobstore.Store
	resolver ChannelResolver
	fetcher  ContentFetcher
	analyzer Analyzer
	notifier Notifier
	locker   Locker
	cfg      Config
}

// New creates a Pipeline. A nil Locker defaults to a LocalLocker.
func New(deps *Dependencies, cfg Config) *Pipeline {
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = DefaultStageTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if cfg.EmailSubject == "" {
		cfg.EmailSubject = DefaultEmailSubject
	}

	locker := deps.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}

	return &Pipeline{
		logger:   deps.Logger,
		store:    deps.Store,
		resolver: deps.Resolver,
		fetcher:  deps.Fetcher,
		analyzer: deps.Analyzer,
		notifier: deps.Notifier,
		locker:   locker,
		cfg:      cfg,
	}
}

// stageResult is either an update to persist or the error that fails the job
type stageResult struct {
	update domain.JobUpdate
	err    error
}

func ok(update domain.JobUpdate) stageResult {
	return stageResult{update: update}
}

func fail(err error) stageResult {
	return stageResult{err: err}
}

type stage struct {
	name string
	run  func(ctx context.Context, job *domain.Job) stageResult
}

// Run executes a pending job to completion or failure. It returns nil once the job reached a terminal
// status, failed included. Errors mean the job was not runnable or its state could not be loaded or saved.
func (p *Pipeline) Run(ctx context.Context, jobID string) error {
	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		return loadError(err)
	}
	if err := runnable(job); err != nil {
		return err
	}

	release, err := p.locker.Acquire(ctx, jobID, p.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrJobLocked) {
			return err
		}
		return domain.NewRetryableError(err)
	}
	defer release()

	logger := p.logger.With(slog.String("job_id", jobID))
	started := time.Now()

	stages := []stage{
		{name: "resolve", run: p.resolve},
		{name: "fetch", run: p.fetch},
		{name: "analyze", run: p.analyze},
	}

	for i, s := range stages {
		job, err := p.store.GetJob(ctx, jobID)
		if err != nil {
			return loadError(err)
		}
		// the status check is repeated under the lock since another run may have finished meanwhile
		if i == 0 {
			if err := runnable(job); err != nil {
				return err
			}
		}

		stageStarted := time.Now()
		res := s.run(ctx, job)
		if res.err != nil {
			logger.Warn("Stage failed",
				slog.String("stage", s.name),
				slog.Duration("elapsed", time.Since(stageStarted)),
				slog.Any("error", res.err),
			)
			return p.markFailed(ctx, jobID, res.err)
		}

		if err := p.store.UpdateJob(ctx, jobID, res.update); err != nil {
			return fmt.Errorf("failed to persist %s stage: %w", s.name, err)
		}

		logger.Info("Stage completed",
			slog.String("stage", s.name),
			slog.String("status", string(res.update.Status)),
			slog.Duration("elapsed", time.Since(stageStarted)),
		)
	}

	logger.Info("Job completed", slog.Duration("elapsed", time.Since(started)))

	p.notify(ctx, logger, jobID)
	return nil
}

func (p *Pipeline) resolve(ctx context.Context, job *domain.Job) stageResult {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	channelID, err := p.resolver.Resolve(ctx, job.ChannelName)
	if err != nil {
		return fail(err)
	}
	return ok(domain.JobUpdate{
		Status:    domain.JobStatusChannelResolved,
		ChannelID: &channelID,
	})
}

func (p *Pipeline) fetch(ctx context.Context, job *domain.Job) stageResult {
	if job.ChannelID == nil {
		return fail(errors.New("job has no channel id"))
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	videos, err := p.fetcher.Fetch(ctx, *job.ChannelID)
	if err != nil {
		return fail(err)
	}
	if videos == nil {
		videos = []domain.ContentItem{}
	}
	return ok(domain.JobUpdate{
		Status: domain.JobStatusVideosFetched,
		Videos: videos,
	})
}

// analyze uses the services stored on the job at this point, so later edits are honored
func (p *Pipeline) analyze(ctx context.Context, job *domain.Job) stageResult {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	result, err := p.analyzer.Analyse(ctx, job.Videos, job.Services)
	if err != nil {
		return fail(err)
	}
	if result == nil {
		return fail(&domain.AnalysisError{Err: errors.New("analyzer returned no result")})
	}
	return ok(domain.JobUpdate{
		Status:         domain.JobStatusCompleted,
		AnalysisResult: result,
	})
}

// markFailed writes the single failure update. The write survives cancellation of ctx.
func (p *Pipeline) markFailed(ctx context.Context, jobID string, cause error) error {
	msg := cause.Error()
	update := domain.JobUpdate{Status: domain.JobStatusFailed, Error: &msg}

	if err := p.store.UpdateJob(context.WithoutCancel(ctx), jobID, update); err != nil {
		return fmt.Errorf("failed to mark job as failed: %w", err)
	}
	return nil
}

// notify is best effort; nothing here can change the job
func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, jobID string) {
	if p.notifier == nil {
		return
	}

	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		logger.Error("Failed to load job for notification", slog.Any("error", err))
		return
	}
	if job.Email == "" || job.AnalysisResult == nil {
		logger.Debug("Skipping notification", slog.Bool("has_email", job.Email != ""))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	body := EmailBody(job.AnalysisResult.EmailSummary)
	if err := p.notifier.Send(ctx, job.Email, p.cfg.EmailSubject, body); err != nil {
		logger.Error("Failed to send notification",
			slog.String("email", job.Email),
			slog.Any("error", err),
		)
		return
	}

	logger.Info("Notification sent", slog.String("email", job.Email))
}

func runnable(job *domain.Job) error {
	switch {
	case job.Status.IsTerminal():
		return fmt.Errorf("%w: job %s is %s", domain.ErrJobTerminal, job.ID, job.Status)
	case job.Status != domain.JobStatusPending:
		return fmt.Errorf("%w: job %s is %s", domain.ErrJobInProgress, job.ID, job.Status)
	}
	return nil
}

func loadError(err error) error {
	if errors.Is(err, domain.ErrJobNotFound) {
		return err
	}
	return domain.NewRetryableError(fmt.Errorf("failed to load job: %w", err))
}
