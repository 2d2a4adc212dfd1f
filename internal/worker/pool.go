package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/tube-insights/internal/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	logger := w.logger.With(slog.String("worker_name", workerName))

	for {
		select {
		case <-w.stopChan:
			logger.Debug("Worker goroutine stopping - stopChan closed")
			return

		case <-ctx.Done():
			logger.Debug("Worker goroutine stopping - context canceled")
			return

		case msg := <-w.jobsChan:
			err := w.processJob(ctx, msg)
			w.settle(logger, msg, err)
		}
	}
}

// settle acks or nacks the delivery according to the run outcome
func (w *Worker) settle(logger *slog.Logger, msg *jobMessage, err error) {
	logger = logger.With(slog.String("job_id", msg.JobID))

	if err == nil || !shouldNack(err) {
		if ackErr := msg.delivery.Ack(false); ackErr != nil {
			logger.Error("Failed to ACK message", slog.String("error", ackErr.Error()))
		}
		return
	}

	requeue := shouldRequeueJob(err)
	if nackErr := msg.delivery.Nack(false, requeue); nackErr != nil {
		logger.Error("Failed to NACK message", slog.String("error", nackErr.Error()))
		return
	}

	logger.Info("Message NACKed", slog.Bool("requeue", requeue))
}

// shouldNack reports whether the message needs a NACK. Runs that were refused because the job is
// finished, running elsewhere or gone are settled by acknowledging the duplicate delivery.
func shouldNack(err error) bool {
	switch {
	case errors.Is(err, domain.ErrJobTerminal),
		errors.Is(err, domain.ErrJobInProgress),
		errors.Is(err, domain.ErrJobLocked),
		errors.Is(err, domain.ErrJobNotFound):
		return false
	}
	return true
}

// shouldRequeueJob determines if a job should be requeued based on the error type
func shouldRequeueJob(err error) bool {
	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}
