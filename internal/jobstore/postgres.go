package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/tube-insights/internal/domain"
	"github.com/cuongbtq/tube-insights/shared/postgresql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// jobRow is the analysis_jobs row layout
type jobRow struct {
	JobID          string             `db:"job_id"`
	ChannelName    string             `db:"channel_name"`
	ChannelID      sql.NullString     `db:"channel_id"`
	Status         string             `db:"status"`
	Videos         types.NullJSONText `db:"videos"`
	Services       types.JSONText     `db:"services"`
	AnalysisResult types.NullJSONText `db:"analysis_result"`
	ErrorMessage   sql.NullString     `db:"error_message"`
	Email          string             `db:"email"`
	CreatedAt      time.Time          `db:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at"`
}

const jobColumns = `
	job_id, channel_name, channel_id, status, videos, services,
	analysis_result, error_message, email, created_at, updated_at
`

// PostgresStore persists jobs in the analysis_jobs table
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStore creates a PostgresStore on top of the shared client
func NewPostgresStore(pg *postgresql.Client, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// CreateJob inserts a new job row
func (s *PostgresStore) CreateJob(ctx context.Context, job *domain.Job) (string, error) {
	if _, err := uuid.Parse(job.ID); err != nil {
		return "", fmt.Errorf("failed to create job: invalid id %q: %w", job.ID, err)
	}

	services, err := json.Marshal(nonNilServices(job.Services))
	if err != nil {
		return "", fmt.Errorf("failed to marshal services: %w", err)
	}

	query := `
		INSERT INTO analysis_jobs (
			job_id, channel_name, status, services,
			email, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7
		)
	`

	_, err = s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.ChannelName,
		job.Status,
		types.JSONText(services),
		job.Email,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	return job.ID, nil
}

// GetJob loads a job by id
func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, domain.ErrJobNotFound
	}

	var row jobRow
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE job_id = $1`

	if err := s.db.GetContext(ctx, &row, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return row.toDomain()
}

// UpdateJob applies a partial update as a compare-and-set on the statuses allowed to precede update.Status
func (s *PostgresStore) UpdateJob(ctx context.Context, jobID string, update domain.JobUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}
	if _, err := uuid.Parse(jobID); err != nil {
		return domain.ErrJobNotFound
	}

	videos, err := nullJSON(update.Videos, update.Videos != nil)
	if err != nil {
		return fmt.Errorf("failed to marshal videos: %w", err)
	}
	result, err := nullJSON(update.AnalysisResult, update.AnalysisResult != nil)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	query := `
		UPDATE analysis_jobs
		SET status = $1,
			channel_id = COALESCE($2, channel_id),
			videos = COALESCE($3::jsonb, videos),
			analysis_result = COALESCE($4::jsonb, analysis_result),
			error_message = COALESCE($5, error_message),
			updated_at = NOW()
		WHERE job_id = $6
		  AND status = ANY($7)
	`

	res, err := s.db.ExecContext(
		ctx,
		query,
		string(update.Status),
		nullString(update.ChannelID),
		videos,
		result,
		nullString(update.Error),
		jobID,
		pq.Array(statusStrings(domain.PreviousStatuses(update.Status))),
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	return s.rejectionFor(ctx, jobID, update.Status)
}

// rejectionFor explains why a guarded write matched no row
func (s *PostgresStore) rejectionFor(ctx context.Context, jobID string, target domain.JobStatus) error {
	var current string
	err := s.db.GetContext(ctx, &current, `SELECT status FROM analysis_jobs WHERE job_id = $1`, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrJobNotFound
		}
		return fmt.Errorf("failed to get job status: %w", err)
	}

	status := domain.JobStatus(current)
	if status.IsTerminal() {
		return fmt.Errorf("%w: job %s is already %s", domain.ErrJobTerminal, jobID, status)
	}

	s.logger.Warn("Rejected job update",
		slog.String("job_id", jobID),
		slog.String("current_status", current),
		slog.String("target_status", string(target)),
	)
	return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, status, target)
}

// ListJobs returns one page of jobs, newest first
func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Email != "" {
		query += fmt.Sprintf(" AND email = $%d", argIdx)
		args = append(args, filter.Email)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"

	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]domain.Job, 0, len(rows))
	for _, row := range rows {
		job, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

// SetServices replaces the requested service ids until the job reaches a terminal status
func (s *PostgresStore) SetServices(ctx context.Context, jobID string, services []string) error {
	if _, err := uuid.Parse(jobID); err != nil {
		return domain.ErrJobNotFound
	}

	payload, err := json.Marshal(nonNilServices(services))
	if err != nil {
		return fmt.Errorf("failed to marshal services: %w", err)
	}

	query := `
		UPDATE analysis_jobs
		SET services = $1,
			updated_at = NOW()
		WHERE job_id = $2
		  AND status NOT IN ($3, $4)
	`

	res, err := s.db.ExecContext(ctx, query, types.JSONText(payload), jobID, domain.JobStatusCompleted, domain.JobStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to set services: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM analysis_jobs WHERE job_id = $1)`, jobID); err != nil {
		return fmt.Errorf("failed to check job: %w", err)
	}
	if !exists {
		return domain.ErrJobNotFound
	}
	return fmt.Errorf("%w: services of job %s can no longer change", domain.ErrJobTerminal, jobID)
}

// FailStaleJobs fails jobs stuck mid-pipeline since before cutoff and returns their ids
func (s *PostgresStore) FailStaleJobs(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `
		UPDATE analysis_jobs
		SET status = $1,
			error_message = 'job abandoned: no progress since ' ||
				to_char(updated_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
			updated_at = NOW()
		WHERE status = ANY($2)
		  AND updated_at < $3
		RETURNING job_id
	`

	var ids []string
	err := s.db.SelectContext(ctx, &ids, query, domain.JobStatusFailed, pq.Array(statusStrings(staleStatuses)), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to fail stale jobs: %w", err)
	}

	if len(ids) > 0 {
		s.logger.Warn("Failed stale jobs",
			slog.Int("count", len(ids)),
			slog.Time("cutoff", cutoff),
		)
	}
	return ids, nil
}

func (r jobRow) toDomain() (*domain.Job, error) {
	job := &domain.Job{
		ID:          r.JobID,
		ChannelName: r.ChannelName,
		Status:      domain.JobStatus(r.Status),
		Email:       r.Email,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}

	if r.ChannelID.Valid {
		job.ChannelID = &r.ChannelID.String
	}
	if r.ErrorMessage.Valid {
		job.Error = &r.ErrorMessage.String
	}

	if err := r.Services.Unmarshal(&job.Services); err != nil {
		return nil, fmt.Errorf("failed to unmarshal services of job %s: %w", r.JobID, err)
	}
	if job.Services == nil {
		job.Services = []string{}
	}

	if r.Videos.Valid {
		job.Videos = []domain.ContentItem{}
		if err := r.Videos.Unmarshal(&job.Videos); err != nil {
			return nil, fmt.Errorf("failed to unmarshal videos of job %s: %w", r.JobID, err)
		}
	}

	if r.AnalysisResult.Valid {
		var result domain.AnalysisResult
		if err := r.AnalysisResult.Unmarshal(&result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis result of job %s: %w", r.JobID, err)
		}
		job.AnalysisResult = &result
	}

	return job, nil
}

func nullJSON(v interface{}, valid bool) (types.NullJSONText, error) {
	if !valid {
		return types.NullJSONText{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return types.NullJSONText{}, err
	}
	return types.NullJSONText{JSONText: b, Valid: true}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func statusStrings(statuses []domain.JobStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nonNilServices(services []string) []string {
	if services == nil {
		return []string{}
	}
	return services
}
