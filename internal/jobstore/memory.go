package jobstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/tube-insights/internal/domain"
)

// MemoryStore keeps jobs in a map. Used by tests and by the analyzer when no database is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
	now  func() time.Time
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*domain.Job),
		now:  time.Now,
	}
}

func (s *MemoryStore) CreateJob(ctx context.Context, job *domain.Job) (string, error) {
	if job.ID == "" {
		return "", fmt.Errorf("failed to create job: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return "", fmt.Errorf("failed to create job: duplicate id %s", job.ID)
	}
	s.jobs[job.ID] = cloneJob(job)
	return job.ID, nil
}

func (s *MemoryStore) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (s *MemoryStore) UpdateJob(ctx context.Context, jobID string, update domain.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}

	next := cloneJob(job)
	if err := next.Apply(update, s.now()); err != nil {
		return err
	}
	s.jobs[jobID] = next
	return nil
}

func (s *MemoryStore) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Email != "" && job.Email != filter.Email {
			continue
		}
		if filter.Status != "" && string(job.Status) != filter.Status {
			continue
		}
		if filter.Cursor != nil && !before(*job, *filter.Cursor) {
			continue
		}
		jobs = append(jobs, *cloneJob(job))
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if filter.PageSize > 0 && len(jobs) > filter.PageSize+1 {
		jobs = jobs[:filter.PageSize+1]
	}
	return jobs, nil
}

func (s *MemoryStore) SetServices(ctx context.Context, jobID string, services []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s is already %s", domain.ErrJobTerminal, jobID, job.Status)
	}

	next := cloneJob(job)
	next.Services = append([]string{}, services...)
	next.UpdatedAt = s.now()
	s.jobs[jobID] = next
	return nil
}

func (s *MemoryStore) FailStaleJobs(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failed []string
	for id, job := range s.jobs {
		if !isStale(job, cutoff) {
			continue
		}
		next := cloneJob(job)
		msg := abandonedMessage(job.UpdatedAt)
		if err := next.Apply(domain.JobUpdate{Status: domain.JobStatusFailed, Error: &msg}, s.now()); err != nil {
			return failed, err
		}
		s.jobs[id] = next
		failed = append(failed, id)
	}
	sort.Strings(failed)
	return failed, nil
}

func isStale(job *domain.Job, cutoff time.Time) bool {
	if !job.UpdatedAt.Before(cutoff) {
		return false
	}
	for _, status := range staleStatuses {
		if job.Status == status {
			return true
		}
	}
	return false
}

// cloneJob copies the job deep enough that callers never share slices or pointers with the store
func cloneJob(job *domain.Job) *domain.Job {
	c := *job
	if job.ChannelID != nil {
		id := *job.ChannelID
		c.ChannelID = &id
	}
	if job.Error != nil {
		msg := *job.Error
		c.Error = &msg
	}
	if job.Videos != nil {
		c.Videos = slices.Clone(job.Videos)
	}
	c.Services = append([]string{}, job.Services...)
	return &c
}
