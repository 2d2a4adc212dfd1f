package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cuongbtq/tube-insights/internal/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerStore keeps jobs in an embedded badgerhold database for single-process runs
type BadgerStore struct {
	store  *badgerhold.Store
	logger *slog.Logger
	now    func() time.Time
}

// OpenBadgerStore opens (or creates) the database under path
func OpenBadgerStore(path string, logger *slog.Logger) (*BadgerStore, error) {
	if err := os.MkdirAll(filepath.Clean(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil
	options.Encoder = json.Marshal
	options.Decoder = json.Unmarshal

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Info("Badger job store opened", slog.String("path", path))

	return &BadgerStore{
		store:  store,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Close closes the underlying database
func (s *BadgerStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (s *BadgerStore) CreateJob(ctx context.Context, job *domain.Job) (string, error) {
	if job.ID == "" {
		return "", fmt.Errorf("failed to create job: id is required")
	}

	if err := s.store.Insert(job.ID, cloneJob(job)); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return "", fmt.Errorf("failed to create job: duplicate id %s", job.ID)
		}
		return "", fmt.Errorf("failed to create job: %w", err)
	}
	return job.ID, nil
}

func (s *BadgerStore) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	var job domain.Job
	if err := s.store.Get(jobID, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// UpdateJob reads, applies and writes back inside one badger transaction so concurrent writers conflict
func (s *BadgerStore) UpdateJob(ctx context.Context, jobID string, update domain.JobUpdate) error {
	err := s.store.Badger().Update(func(tx *badger.Txn) error {
		var job domain.Job
		if err := s.store.TxGet(tx, jobID, &job); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrJobNotFound
			}
			return fmt.Errorf("failed to get job: %w", err)
		}

		if err := job.Apply(update, s.now()); err != nil {
			return err
		}

		if err := s.store.TxUpdate(tx, jobID, &job); err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}
		return nil
	})

	if errors.Is(err, badger.ErrConflict) {
		return domain.NewRetryableError(fmt.Errorf("failed to update job %s: %w", jobID, err))
	}
	return err
}

func (s *BadgerStore) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := badgerhold.Where("ID").Ne("")
	if filter.Email != "" {
		query = query.And("Email").Eq(filter.Email)
	}
	if filter.Status != "" {
		query = query.And("Status").Eq(domain.JobStatus(filter.Status))
	}

	var all []domain.Job
	if err := s.store.Find(&all, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]domain.Job, 0, len(all))
	for _, job := range all {
		if filter.Cursor != nil && !before(job, *filter.Cursor) {
			continue
		}
		jobs = append(jobs, job)
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

func (s *BadgerStore) SetServices(ctx context.Context, jobID string, services []string) error {
	return s.store.Badger().Update(func(tx *badger.Txn) error {
		var job domain.Job
		if err := s.store.TxGet(tx, jobID, &job); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrJobNotFound
			}
			return fmt.Errorf("failed to get job: %w", err)
		}
		if job.Status.IsTerminal() {
			return fmt.Errorf("%w: job %s is already %s", domain.ErrJobTerminal, jobID, job.Status)
		}

		job.Services = append([]string{}, services...)
		job.UpdatedAt = s.now()
		return s.store.TxUpdate(tx, jobID, &job)
	})
}

func (s *BadgerStore) FailStaleJobs(ctx context.Context, cutoff time.Time) ([]string, error) {
	var stale []domain.Job
	query := badgerhold.Where("Status").In(domain.JobStatusChannelResolved, domain.JobStatusVideosFetched).
		And("UpdatedAt").Lt(cutoff)
	if err := s.store.Find(&stale, query); err != nil {
		return nil, fmt.Errorf("failed to find stale jobs: %w", err)
	}

	var failed []string
	for _, job := range stale {
		msg := abandonedMessage(job.UpdatedAt)
		err := s.UpdateJob(ctx, job.ID, domain.JobUpdate{Status: domain.JobStatusFailed, Error: &msg})
		if err != nil {
			if errors.Is(err, domain.ErrJobTerminal) {
				continue
			}
			return failed, err
		}
		failed = append(failed, job.ID)
	}
	sort.Strings(failed)
	return failed, nil
}
