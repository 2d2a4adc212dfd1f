package worker

import (
	"context"
	"log/slog"
	"time"
)

// processJob runs one job under the job timeout. The run is detached from ctx cancellation.
func (w *Worker) processJob(ctx context.Context, msg *jobMessage) error {
	logger := w.logger.With(
		slog.String("job_id", msg.JobID),
		slog.String("worker_id", w.workerID),
	)
	logger.Info("Processing job")

	jobCtx := context.WithoutCancel(ctx)
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, w.jobTimeout)
		defer cancel()
	}

	started := time.Now()
	err := w.runner.Run(jobCtx, msg.JobID)
	if err != nil {
		level := slog.LevelError
		if !shouldNack(err) {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "Job not processed",
			slog.Duration("elapsed", time.Since(started)),
			slog.String("error", err.Error()),
		)
		return err
	}

	logger.Info("Job finished", slog.Duration("elapsed", time.Since(started)))
	return nil
}
