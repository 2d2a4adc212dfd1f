package domain

import (
	"errors"
	"strconv"
)

var (
	// ErrJobNotFound is returned when a job cannot be found in the store
	ErrJobNotFound = errors.New("job not found")

	// ErrJobTerminal is returned when a completed or failed job is asked to run or change again
	ErrJobTerminal = errors.New("job is in a terminal status")

	// ErrJobInProgress is returned when a job that already left pending is asked to run again
	ErrJobInProgress = errors.New("job is already in progress")

	// ErrJobLocked is returned when another pipeline run holds the job
	ErrJobLocked = errors.New("job is locked by another run")

	// ErrInvalidTransition is returned when a write would break the forward-only status order
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrChannelNotFound is returned when no channel matches the requested name
	ErrChannelNotFound = errors.New("channel not found")
)

// ResolutionError is returned when a channel name cannot be mapped to a channel id
type ResolutionError struct {
	Channel string
	Err     error
}

func (e *ResolutionError) Error() string {
	return "failed to resolve channel " + strconv.Quote(e.Channel) + ": " + e.Err.Error()
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// FetchError is returned when the content source is unavailable or returns malformed data
type FetchError struct {
	ChannelID string
	Err       error
}

func (e *FetchError) Error() string {
	return "failed to fetch videos for channel " + strconv.Quote(e.ChannelID) + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AnalysisError is only surfaced when the fallback generator itself is broken
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return "analysis failed: " + e.Err.Error()
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NotificationError is returned by notifiers; it never fails a job
type NotificationError struct {
	Recipient string
	Err       error
}

func (e *NotificationError) Error() string {
	return "failed to notify " + strconv.Quote(e.Recipient) + ": " + e.Err.Error()
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
