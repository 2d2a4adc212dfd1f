package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/tube-insights/internal/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type settlement struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcker struct {
	settled chan settlement
}

func (a *fakeAcker) Ack(tag uint64, multiple bool) error {
	a.settled <- settlement{tag: tag, ack: true}
	return nil
}

func (a *fakeAcker) Nack(tag uint64, multiple bool, requeue bool) error {
	a.settled <- settlement{tag: tag, requeue: requeue}
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type fakeRunner struct {
	mu      sync.Mutex
	results map[string]error
	calls   []string
}

func (r *fakeRunner) Run(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, jobID)
	return r.results[jobID]
}

func TestWorker_SettlesDeliveries(t *testing.T) {
	tests := []struct {
		name      string
		body      func(id string) string
		runErr    error
		wantAck   bool
		wantQueue bool
		wantRun   bool
	}{
		{
			name:    "completed run is acked",
			wantAck: true,
			wantRun: true,
		},
		{
			name:    "terminal job is acked",
			runErr:  fmt.Errorf("%w: job is completed", domain.ErrJobTerminal),
			wantAck: true,
			wantRun: true,
		},
		{
			name:    "in-progress job is acked",
			runErr:  domain.ErrJobInProgress,
			wantAck: true,
			wantRun: true,
		},
		{
			name:    "locked job is acked",
			runErr:  domain.ErrJobLocked,
			wantAck: true,
			wantRun: true,
		},
		{
			name:    "unknown job is acked",
			runErr:  domain.ErrJobNotFound,
			wantAck: true,
			wantRun: true,
		},
		{
			name:      "retryable failure is requeued",
			runErr:    domain.NewRetryableError(errors.New("connection reset")),
			wantQueue: true,
			wantRun:   true,
		},
		{
			name:    "other failure is dead lettered",
			runErr:  errors.New("failed to persist fetch stage"),
			wantRun: true,
		},
		{
			name: "malformed json is dead lettered",
			body: func(string) string { return "{not json" },
		},
		{
			name: "non uuid job id is dead lettered",
			body: func(string) string { return `{"job_id":"job-42"}` },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.NewString()
			body := fmt.Sprintf(`{"job_id":%q}`, id)
			if tt.body != nil {
				body = tt.body(id)
			}

			runner := &fakeRunner{results: map[string]error{id: tt.runErr}}
			acker := &fakeAcker{settled: make(chan settlement, 1)}

			w := NewWorker(&Config{
				Logger:      discardLogger(),
				Runner:      runner,
				WorkerID:    "test-worker",
				Concurrency: 2,
				JobTimeout:  time.Second,
			})

			ctx, cancel := context.WithCancel(context.Background())
			deliveries := make(chan amqp.Delivery)
			done := make(chan struct{})
			go func() {
				assert.NoError(t, w.run(ctx, deliveries))
				close(done)
			}()

			deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 7, Body: []byte(body)}

			select {
			case s := <-acker.settled:
				assert.Equal(t, uint64(7), s.tag)
				assert.Equal(t, tt.wantAck, s.ack)
				assert.Equal(t, tt.wantQueue, s.requeue)
			case <-time.After(2 * time.Second):
				t.Fatal("delivery was not settled")
			}

			cancel()
			<-done
			w.Stop()

			runner.mu.Lock()
			defer runner.mu.Unlock()
			if tt.wantRun {
				assert.Equal(t, []string{id}, runner.calls)
			} else {
				assert.Empty(t, runner.calls)
			}
		})
	}
}

func TestWorker_StopsWhenDeliveriesClose(t *testing.T) {
	w := NewWorker(&Config{
		Logger:   discardLogger(),
		Runner:   &fakeRunner{},
		WorkerID: "test-worker",
	})

	deliveries := make(chan amqp.Delivery)
	close(deliveries)

	require.NoError(t, w.run(context.Background(), deliveries))
	w.Stop()
	w.Stop()
}

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (r *blockingRunner) Run(ctx context.Context, jobID string) error {
	close(r.started)
	<-r.release
	r.ctxErr <- ctx.Err()
	return nil
}

func TestWorker_InFlightJobSurvivesShutdown(t *testing.T) {
	runner := &blockingRunner{
		started: make(chan struct{}),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
	acker := &fakeAcker{settled: make(chan settlement, 1)}

	w := NewWorker(&Config{
		Logger:     discardLogger(),
		Runner:     runner,
		WorkerID:   "test-worker",
		JobTimeout: time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	deliveries := make(chan amqp.Delivery)
	done := make(chan struct{})
	go func() {
		_ = w.run(ctx, deliveries)
		close(done)
	}()

	deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: []byte(fmt.Sprintf(`{"job_id":%q}`, uuid.NewString()))}
	<-runner.started

	cancel()
	<-done
	close(runner.release)
	w.Stop()

	assert.NoError(t, <-runner.ctxErr)
	assert.True(t, (<-acker.settled).ack)
}

func TestShouldRequeueJob(t *testing.T) {
	assert.True(t, shouldRequeueJob(fmt.Errorf("wrapped: %w", domain.NewRetryableError(errors.New("x")))))
	assert.False(t, shouldRequeueJob(errors.New("x")))
	assert.False(t, shouldRequeueJob(domain.ErrJobTerminal))
}

type fakeFailer struct {
	cutoff time.Time
	ids    []string
	err    error
}

func (f *fakeFailer) FailStaleJobs(ctx context.Context, cutoff time.Time) ([]string, error) {
	f.cutoff = cutoff
	return f.ids, f.err
}

func TestReaper_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	failer := &fakeFailer{ids: []string{"a", "b"}}

	r, err := NewReaper(failer, ReaperConfig{StaleAfter: 15 * time.Minute}, discardLogger())
	require.NoError(t, err)
	r.now = func() time.Time { return now }

	ids, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, now.Add(-15*time.Minute), failer.cutoff)

	failer.err = errors.New("db down")
	_, err = r.Sweep(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestReaper_Config(t *testing.T) {
	_, err := NewReaper(&fakeFailer{}, ReaperConfig{}, discardLogger())
	assert.ErrorContains(t, err, "stale_after")

	r, err := NewReaper(&fakeFailer{}, ReaperConfig{StaleAfter: time.Minute, Schedule: "not a schedule"}, discardLogger())
	require.NoError(t, err)
	assert.Error(t, r.Start(context.Background()))

	r, err = NewReaper(&fakeFailer{}, ReaperConfig{StaleAfter: time.Minute}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultReaperSchedule, r.cfg.Schedule)
	require.NoError(t, r.Start(context.Background()))
	r.Stop()
}
