package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/tube-insights/internal/analysis"
	"github.com/cuongbtq/tube-insights/internal/domain"
	"github.com/cuongbtq/tube-insights/internal/jobstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acmeChannelID = "UC1234567890abcdefghijkl"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeResolver struct {
	id    string
	err   error
	calls int
	hook  func()
}

func (f *fakeResolver) Resolve(ctx context.Context, name string) (string, error) {
	f.calls++
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type fakeFetcher struct {
	videos []domain.ContentItem
	err    error
	block  bool
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, channelID string) ([]domain.ContentItem, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, &domain.FetchError{ChannelID: channelID, Err: ctx.Err()}
	}
	return f.videos, f.err
}

type failingAnalyzer struct {
	err error
}

func (f *failingAnalyzer) Analyse(ctx context.Context, videos []domain.ContentItem, services []string) (*domain.AnalysisResult, error) {
	return nil, f.err
}

type sentEmail struct {
	to, subject, body string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (n *recordingNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{to: to, subject: subject, body: body})
	return n.err
}

func twoVideos() []domain.ContentItem {
	return []domain.ContentItem{
		{Title: "Budget Rig Build", URL: "https://www.youtube.com/watch?v=a1", Statistics: domain.Statistics{ViewCount: domain.Int64Ptr(1500)}},
		{Title: "Lighting on a Budget", URL: "https://www.youtube.com/watch?v=a2"},
	}
}

type fixture struct {
	store    *jobstore.MemoryStore
	resolver *fakeResolver
	fetcher  *fakeFetcher
	notifier *recordingNotifier
	locker   *LocalLocker
	deps     *Dependencies
}

func newFixture() *fixture {
	f := &fixture{
		store:    jobstore.NewMemoryStore(),
		resolver: &fakeResolver{id: acmeChannelID},
		fetcher:  &fakeFetcher{videos: twoVideos()},
		notifier: &recordingNotifier{},
		locker:   NewLocalLocker(),
	}
	f.deps = &Dependencies{
		Logger:   discardLogger(),
		Store:    f.store,
		Resolver: f.resolver,
		Fetcher:  f.fetcher,
		Analyzer: analysis.NewDispatcher(nil, 0, discardLogger()),
		Notifier: f.notifier,
		Locker:   f.locker,
	}
	return f
}

func (f *fixture) createJob(t *testing.T, services ...string) string {
	t.Helper()
	job := domain.NewJob(uuid.NewString(), "AcmeChannel", "owner@acme.test", services, time.Now())
	id, err := f.store.CreateJob(context.Background(), job)
	require.NoError(t, err)
	return id
}

func (f *fixture) job(t *testing.T, id string) *domain.Job {
	t.Helper()
	job, err := f.store.GetJob(context.Background(), id)
	require.NoError(t, err)
	return job
}

func TestRun_AcmeChannel(t *testing.T) {
	f := newFixture()
	id := f.createJob(t, "1", "7")

	err := New(f.deps, Config{}).Run(context.Background(), id)
	require.NoError(t, err)

	job := f.job(t, id)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	require.NotNil(t, job.ChannelID)
	assert.Equal(t, acmeChannelID, *job.ChannelID)
	assert.Equal(t, twoVideos(), job.Videos)
	assert.Nil(t, job.Error)

	require.NotNil(t, job.AnalysisResult)
	assert.Equal(t, "Your channel has untapped growth potential", job.AnalysisResult.EmailSummary.Headline)
	assert.Equal(t,
		[]domain.Capability{domain.CapabilityCopyrightProtection, domain.CapabilitySemanticTitleEngine},
		job.AnalysisResult.Services.Names(),
	)
	assert.Equal(t, "Budget Rig Build", job.AnalysisResult.Services.SemanticTitleEngine.Suggestions[0].OriginalTitle)

	require.Len(t, f.notifier.sent, 1)
	email := f.notifier.sent[0]
	assert.Equal(t, "owner@acme.test", email.to)
	assert.Equal(t, DefaultEmailSubject, email.subject)
	assert.Equal(t, EmailBody(job.AnalysisResult.EmailSummary), email.body)
	assert.Contains(t, email.body, job.AnalysisResult.EmailSummary.Headline)
}

func TestRun_StageFailures(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(f *fixture)
		wantError     string
		wantChannelID bool
		wantVideos    bool
	}{
		{
			name: "resolve fails",
			setup: func(f *fixture) {
				f.resolver.err = &domain.ResolutionError{Channel: "AcmeChannel", Err: domain.ErrChannelNotFound}
			},
			wantError: `failed to resolve channel "AcmeChannel": channel not found`,
		},
		{
			name: "fetch fails",
			setup: func(f *fixture) {
				f.fetcher.err = &domain.FetchError{ChannelID: acmeChannelID, Err: errors.New("quota exceeded")}
			},
			wantError:     "quota exceeded",
			wantChannelID: true,
		},
		{
			name: "analysis fails",
			setup: func(f *fixture) {
				f.deps.Analyzer = &failingAnalyzer{err: &domain.AnalysisError{Err: errors.New("fallback rejected")}}
			},
			wantError:     "analysis failed: fallback rejected",
			wantChannelID: true,
			wantVideos:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)
			id := f.createJob(t, "1")

			err := New(f.deps, Config{}).Run(context.Background(), id)
			require.NoError(t, err)

			job := f.job(t, id)
			assert.Equal(t, domain.JobStatusFailed, job.Status)
			require.NotNil(t, job.Error)
			assert.Contains(t, *job.Error, tt.wantError)
			assert.Equal(t, tt.wantChannelID, job.ChannelID != nil)
			assert.Equal(t, tt.wantVideos, job.Videos != nil)
			assert.Nil(t, job.AnalysisResult)
			assert.Empty(t, f.notifier.sent)
		})
	}
}

func TestRun_ResolveFailureStopsPipeline(t *testing.T) {
	f := newFixture()
	f.resolver.err = &domain.ResolutionError{Channel: "AcmeChannel", Err: domain.ErrChannelNotFound}
	id := f.createJob(t, "1")

	require.NoError(t, New(f.deps, Config{}).Run(context.Background(), id))
	assert.Equal(t, 0, f.fetcher.calls)
}

func TestRun_NotificationFailureIsInvisible(t *testing.T) {
	f := newFixture()
	f.notifier.err = &domain.NotificationError{Recipient: "owner@acme.test", Err: errors.New("smtp down")}
	id := f.createJob(t, "10")

	err := New(f.deps, Config{}).Run(context.Background(), id)
	require.NoError(t, err)

	job := f.job(t, id)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Nil(t, job.Error)
	assert.NotNil(t, job.AnalysisResult)
	assert.Len(t, f.notifier.sent, 1)
}

func TestRun_ZeroVideosIsSuccess(t *testing.T) {
	f := newFixture()
	f.fetcher.videos = nil
	id := f.createJob(t, "1")

	require.NoError(t, New(f.deps, Config{}).Run(context.Background(), id))

	job := f.job(t, id)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.NotNil(t, job.Videos)
	assert.Empty(t, job.Videos)
	assert.Equal(t, "Video 1", job.AnalysisResult.Services.SemanticTitleEngine.Suggestions[0].OriginalTitle)
}

func TestRun_AnalyzeUsesLatestServices(t *testing.T) {
	f := newFixture()
	id := f.createJob(t, "1")
	f.resolver.hook = func() {
		require.NoError(t, f.store.SetServices(context.Background(), id, []string{"8", "2"}))
	}

	require.NoError(t, New(f.deps, Config{}).Run(context.Background(), id))

	job := f.job(t, id)
	assert.Equal(t,
		[]domain.Capability{domain.CapabilityFairUseAnalysis, domain.CapabilityPredictiveCTRAnalysis},
		job.AnalysisResult.Services.Names(),
	)
}

func TestRun_StageTimeout(t *testing.T) {
	f := newFixture()
	f.fetcher.block = true
	id := f.createJob(t, "1")

	err := New(f.deps, Config{StageTimeout: 20 * time.Millisecond}).Run(context.Background(), id)
	require.NoError(t, err)

	job := f.job(t, id)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, context.DeadlineExceeded.Error())
}

func TestRun_NotRunnable(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, f *fixture, id string)
		wantErr error
	}{
		{
			name: "completed job",
			prepare: func(t *testing.T, f *fixture, id string) {
				require.NoError(t, New(f.deps, Config{}).Run(context.Background(), id))
			},
			wantErr: domain.ErrJobTerminal,
		},
		{
			name: "failed job",
			prepare: func(t *testing.T, f *fixture, id string) {
				require.NoError(t, f.store.UpdateJob(context.Background(), id, domain.JobUpdate{
					Status: domain.JobStatusFailed,
					Error:  domain.StringPtr("boom"),
				}))
			},
			wantErr: domain.ErrJobTerminal,
		},
		{
			name: "job in progress",
			prepare: func(t *testing.T, f *fixture, id string) {
				require.NoError(t, f.store.UpdateJob(context.Background(), id, domain.JobUpdate{
					Status:    domain.JobStatusChannelResolved,
					ChannelID: domain.StringPtr(acmeChannelID),
				}))
			},
			wantErr: domain.ErrJobInProgress,
		},
		{
			name: "job locked by another run",
			prepare: func(t *testing.T, f *fixture, id string) {
				_, err := f.locker.Acquire(context.Background(), id, time.Minute)
				require.NoError(t, err)
			},
			wantErr: domain.ErrJobLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			id := f.createJob(t, "1")
			tt.prepare(t, f, id)

			before := f.job(t, id)
			sentBefore := len(f.notifier.sent)

			err := New(f.deps, Config{}).Run(context.Background(), id)
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, before, f.job(t, id))
			assert.Len(t, f.notifier.sent, sentBefore)
		})
	}
}

func TestRun_UnknownJob(t *testing.T) {
	f := newFixture()

	err := New(f.deps, Config{}).Run(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.Equal(t, 0, f.resolver.calls)
}

func TestRun_ConcurrentRunsExecuteOnce(t *testing.T) {
	f := newFixture()
	id := f.createJob(t, "3")
	p := New(f.deps, Config{})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.Run(context.Background(), id)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t,
			errors.Is(err, domain.ErrJobLocked) || errors.Is(err, domain.ErrJobInProgress) || errors.Is(err, domain.ErrJobTerminal),
			"unexpected error %v", err,
		)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, domain.JobStatusCompleted, f.job(t, id).Status)
	assert.Len(t, f.notifier.sent, 1)
}

func TestEmailBody(t *testing.T) {
	tests := []struct {
		name    string
		summary domain.EmailSummary
		want    string
	}{
		{
			name:    "empty summary keeps only the intro",
			summary: domain.EmailSummary{},
			want:    emailIntro,
		},
		{
			name: "all sections",
			summary: domain.EmailSummary{
				Headline:    "Your titles are leaving clicks behind",
				Teaser:      "Three quick fixes could lift CTR.",
				KeyInsights: []string{"one", "two", "three", "four"},
				CTA:         "Open the report",
			},
			want: emailIntro +
				"\n\nYour titles are leaving clicks behind" +
				"\nThree quick fixes could lift CTR." +
				"\n\nKey insights:\n- one\n- two\n- three" +
				"\n\nOpen the report",
		},
		{
			name:    "insights only",
			summary: domain.EmailSummary{KeyInsights: []string{"solo"}},
			want:    emailIntro + "\n\nKey insights:\n- solo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EmailBody(tt.summary)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasPrefix(got, "Your AI analysis report is ready"))
		})
	}
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()

	release, err := l.Acquire(context.Background(), "job-1", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), "job-1", time.Minute)
	assert.ErrorIs(t, err, domain.ErrJobLocked)

	other, err := l.Acquire(context.Background(), "job-2", time.Minute)
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(context.Background(), "job-1", time.Minute)
	require.NoError(t, err)
	again()
}
