package domain

import (
	"fmt"
	"slices"
	"time"
)

// JobStatus is the lifecycle state of an analysis job
type JobStatus string

// Job status constants
const (
	JobStatusPending         JobStatus = "pending"
	JobStatusChannelResolved JobStatus = "channel_resolved"
	JobStatusVideosFetched   JobStatus = "videos_fetched"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusFailed          JobStatus = "failed"
)

// IsTerminal reports whether no further stage may mutate a job in this status
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IsValid reports whether s is one of the known statuses
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusChannelResolved, JobStatusVideosFetched, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// forward maps each non-terminal status to the only non-failure status that may follow it
var forward = map[JobStatus]JobStatus{
	JobStatusPending:         JobStatusChannelResolved,
	JobStatusChannelResolved: JobStatusVideosFetched,
	JobStatusVideosFetched:   JobStatusCompleted,
}

// CanTransition reports whether a job may move from one status to another
func CanTransition(from, to JobStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == JobStatusFailed {
		return true
	}
	return forward[from] == to
}

// PreviousStatuses returns every status a job may be in right before moving to `to`
func PreviousStatuses(to JobStatus) []JobStatus {
	if to == JobStatusFailed {
		return []JobStatus{JobStatusPending, JobStatusChannelResolved, JobStatusVideosFetched}
	}
	for from, next := range forward {
		if next == to {
			return []JobStatus{from}
		}
	}
	return nil
}

// Job is the persisted unit of work for one channel analysis request
type Job struct {
	ID             string          `json:"id"`
	ChannelName    string          `json:"channel_name"`
	ChannelID      *string         `json:"channel_id,omitempty"`
	Status         JobStatus       `json:"status"`
	Videos         []ContentItem   `json:"videos"`
	Services       []string        `json:"services"`
	AnalysisResult *AnalysisResult `json:"analysis_result,omitempty"`
	Error          *string         `json:"error,omitempty"`
	Email          string          `json:"email"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// JobUpdate is a partial mutation of a Job. Nil fields are left untouched.
type JobUpdate struct {
	Status         JobStatus
	ChannelID      *string
	Videos         []ContentItem
	AnalysisResult *AnalysisResult
	Error          *string
}

// Validate checks that the update carries the fields its target status requires
func (u JobUpdate) Validate() error {
	if !u.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, u.Status)
	}

	switch u.Status {
	case JobStatusPending:
		return fmt.Errorf("%w: cannot move a job back to %s", ErrInvalidTransition, u.Status)
	case JobStatusChannelResolved:
		if u.ChannelID == nil || *u.ChannelID == "" {
			return fmt.Errorf("%w: %s requires a channel id", ErrInvalidTransition, u.Status)
		}
	case JobStatusVideosFetched:
		if u.Videos == nil {
			return fmt.Errorf("%w: %s requires videos", ErrInvalidTransition, u.Status)
		}
	case JobStatusCompleted:
		if u.AnalysisResult == nil {
			return fmt.Errorf("%w: %s requires an analysis result", ErrInvalidTransition, u.Status)
		}
	case JobStatusFailed:
		if u.Error == nil || *u.Error == "" {
			return fmt.Errorf("%w: %s requires an error message", ErrInvalidTransition, u.Status)
		}
	}

	if u.Error != nil && u.Status != JobStatusFailed {
		return fmt.Errorf("%w: error may only be set with status %s", ErrInvalidTransition, JobStatusFailed)
	}

	return nil
}

// Apply validates the update against the job's current status and merges it in place
func (j *Job) Apply(u JobUpdate, now time.Time) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if j.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s is already %s", ErrJobTerminal, j.ID, j.Status)
	}
	if !CanTransition(j.Status, u.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, u.Status)
	}

	j.Status = u.Status
	if u.ChannelID != nil {
		id := *u.ChannelID
		j.ChannelID = &id
	}
	if u.Videos != nil {
		j.Videos = slices.Clone(u.Videos)
	}
	if u.AnalysisResult != nil {
		j.AnalysisResult = u.AnalysisResult
	}
	if u.Error != nil {
		msg := *u.Error
		j.Error = &msg
	}
	j.UpdatedAt = now

	return nil
}

// NewJob builds a pending job ready to be persisted
func NewJob(id, channelName, email string, services []string, now time.Time) *Job {
	return &Job{
		ID:          id,
		ChannelName: channelName,
		Status:      JobStatusPending,
		Services:    append([]string{}, services...),
		Email:       email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
