package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from JobStatus
		to   JobStatus
		want bool
	}{
		{name: "pending to channel_resolved", from: JobStatusPending, to: JobStatusChannelResolved, want: true},
		{name: "channel_resolved to videos_fetched", from: JobStatusChannelResolved, to: JobStatusVideosFetched, want: true},
		{name: "videos_fetched to completed", from: JobStatusVideosFetched, to: JobStatusCompleted, want: true},
		{name: "pending to failed", from: JobStatusPending, to: JobStatusFailed, want: true},
		{name: "videos_fetched to failed", from: JobStatusVideosFetched, to: JobStatusFailed, want: true},
		{name: "skip a stage", from: JobStatusPending, to: JobStatusVideosFetched, want: false},
		{name: "move backwards", from: JobStatusVideosFetched, to: JobStatusChannelResolved, want: false},
		{name: "repeat a stage", from: JobStatusChannelResolved, to: JobStatusChannelResolved, want: false},
		{name: "completed is terminal", from: JobStatusCompleted, to: JobStatusFailed, want: false},
		{name: "failed is terminal", from: JobStatusFailed, to: JobStatusFailed, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestPreviousStatuses(t *testing.T) {
	assert.Equal(t, []JobStatus{JobStatusPending}, PreviousStatuses(JobStatusChannelResolved))
	assert.Equal(t, []JobStatus{JobStatusVideosFetched}, PreviousStatuses(JobStatusCompleted))
	assert.ElementsMatch(t,
		[]JobStatus{JobStatusPending, JobStatusChannelResolved, JobStatusVideosFetched},
		PreviousStatuses(JobStatusFailed),
	)
	assert.Nil(t, PreviousStatuses(JobStatusPending))
}

func TestJobUpdate_Validate(t *testing.T) {
	tests := []struct {
		name      string
		update    JobUpdate
		wantErr   bool
		errString string
	}{
		{
			name:   "channel resolved with id",
			update: JobUpdate{Status: JobStatusChannelResolved, ChannelID: StringPtr("UC123")},
		},
		{
			name:      "channel resolved without id",
			update:    JobUpdate{Status: JobStatusChannelResolved},
			wantErr:   true,
			errString: "requires a channel id",
		},
		{
			name:   "videos fetched with empty list",
			update: JobUpdate{Status: JobStatusVideosFetched, Videos: []ContentItem{}},
		},
		{
			name:      "videos fetched without list",
			update:    JobUpdate{Status: JobStatusVideosFetched},
			wantErr:   true,
			errString: "requires videos",
		},
		{
			name:      "completed without result",
			update:    JobUpdate{Status: JobStatusCompleted},
			wantErr:   true,
			errString: "requires an analysis result",
		},
		{
			name:      "failed without message",
			update:    JobUpdate{Status: JobStatusFailed, Error: StringPtr("")},
			wantErr:   true,
			errString: "requires an error message",
		},
		{
			name:      "error on a non-failed status",
			update:    JobUpdate{Status: JobStatusChannelResolved, ChannelID: StringPtr("UC1"), Error: StringPtr("boom")},
			wantErr:   true,
			errString: "error may only be set",
		},
		{
			name:      "back to pending",
			update:    JobUpdate{Status: JobStatusPending},
			wantErr:   true,
			errString: "cannot move a job back",
		},
		{
			name:      "unknown status",
			update:    JobUpdate{Status: "running"},
			wantErr:   true,
			errString: "unknown status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestJob_Apply(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	later := created.Add(time.Minute)

	t.Run("merges fields and refreshes updated_at", func(t *testing.T) {
		job := NewJob("job-1", "AcmeChannel", "owner@example.com", []string{"1"}, created)

		err := job.Apply(JobUpdate{Status: JobStatusChannelResolved, ChannelID: StringPtr("UC123")}, later)
		require.NoError(t, err)

		assert.Equal(t, JobStatusChannelResolved, job.Status)
		require.NotNil(t, job.ChannelID)
		assert.Equal(t, "UC123", *job.ChannelID)
		assert.Nil(t, job.Videos)
		assert.Nil(t, job.Error)
		assert.Equal(t, created, job.CreatedAt)
		assert.Equal(t, later, job.UpdatedAt)
	})

	t.Run("keeps earlier fields on failure", func(t *testing.T) {
		job := NewJob("job-2", "AcmeChannel", "owner@example.com", nil, created)
		require.NoError(t, job.Apply(JobUpdate{Status: JobStatusChannelResolved, ChannelID: StringPtr("UC123")}, later))

		require.NoError(t, job.Apply(JobUpdate{Status: JobStatusFailed, Error: StringPtr("fetch broke")}, later))

		assert.Equal(t, JobStatusFailed, job.Status)
		require.NotNil(t, job.ChannelID)
		assert.Equal(t, "fetch broke", *job.Error)
	})

	t.Run("rejects writes on a terminal job", func(t *testing.T) {
		job := NewJob("job-3", "AcmeChannel", "owner@example.com", nil, created)
		require.NoError(t, job.Apply(JobUpdate{Status: JobStatusFailed, Error: StringPtr("nope")}, later))

		err := job.Apply(JobUpdate{Status: JobStatusFailed, Error: StringPtr("again")}, later)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrJobTerminal)
		assert.Equal(t, "nope", *job.Error)
	})

	t.Run("rejects skipping a stage", func(t *testing.T) {
		job := NewJob("job-4", "AcmeChannel", "owner@example.com", nil, created)

		err := job.Apply(JobUpdate{Status: JobStatusVideosFetched, Videos: []ContentItem{}}, later)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, JobStatusPending, job.Status)
		assert.Equal(t, created, job.UpdatedAt)
	})
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusChannelResolved.IsTerminal())
	assert.False(t, JobStatusVideosFetched.IsTerminal())
}
