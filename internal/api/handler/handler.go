package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/tube-insights/internal/jobstore"
)

// Publisher enqueues a job id for the worker service
type Publisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

// HealthCheck reports whether one backing service is reachable
type HealthCheck func(ctx context.Context) error

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Store        jobstore.Repository
	Publisher    Publisher
	HealthChecks map[string]HealthCheck
	Now          func() time.Time
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger    *slog.Logger
	store     jobstore.Repository
	publisher Publisher
	now       func() time.Time
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &JobHandler{
		logger:    deps.Logger,
		store:     deps.Store,
		publisher: deps.Publisher,
		now:       now,
	}
}
