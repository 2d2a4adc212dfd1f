package jobstore

import (
	"context"
	"time"

	"github.com/cuongbtq/tube-insights/internal/domain"
)

// Store is the persistence contract the pipeline depends on
type Store interface {
	// CreateJob persists a new pending job and returns its id
	CreateJob(ctx context.Context, job *domain.Job) (string, error)
	// GetJob returns domain.ErrJobNotFound when the id is unknown
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	// UpdateJob merges a partial update, refreshes updated_at and rejects writes that break the status order
	UpdateJob(ctx context.Context, jobID string, update domain.JobUpdate) error
}

// Repository adds the operations used by the HTTP API and the stale-job reaper
type Repository interface {
	Store
	ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error)
	SetServices(ctx context.Context, jobID string, services []string) error
	FailStaleJobs(ctx context.Context, cutoff time.Time) ([]string, error)
}

// JobFilter narrows ListJobs. PageSize+1 rows are returned so callers can detect a next page.
type JobFilter struct {
	Email    string
	Status   string
	PageSize int
	Cursor   *JobCursor
}

// JobCursor marks the last row of the previous page
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// staleStatuses are the statuses a job may be abandoned in after a worker crash
var staleStatuses = []domain.JobStatus{domain.JobStatusChannelResolved, domain.JobStatusVideosFetched}

func abandonedMessage(since time.Time) string {
	return "job abandoned: no progress since " + since.UTC().Format(time.RFC3339)
}

// before reports whether a sorts after b in created_at DESC, job_id DESC order
func before(a domain.Job, cursor JobCursor) bool {
	if a.CreatedAt.Equal(cursor.CreatedAt) {
		return a.ID < cursor.JobID
	}
	return a.CreatedAt.Before(cursor.CreatedAt)
}
