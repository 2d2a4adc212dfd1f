package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/tube-insights/internal/api/dto"
	"github.com/cuongbtq/tube-insights/internal/api/handler"
	"github.com/cuongbtq/tube-insights/internal/domain"
	"github.com/cuongbtq/tube-insights/internal/jobstore"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *fakePublisher) PublishJob(ctx context.Context, jobID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, jobID)
	return nil
}

type testServer struct {
	engine    *gin.Engine
	store     *jobstore.MemoryStore
	publisher *fakePublisher
	clock     time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		store:     jobstore.NewMemoryStore(),
		publisher: &fakePublisher{},
		clock:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	ts.engine = SetupRouter(&handler.Dependencies{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:     ts.store,
		Publisher: ts.publisher,
		Now: func() time.Time {
			ts.clock = ts.clock.Add(time.Second)
			return ts.clock
		},
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (ts *testServer) createJob(t *testing.T, channel, email string) dto.JobDTO {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/jobs", map[string]interface{}{
		"channel_name": channel,
		"email":        email,
		"services":     []string{"1"},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	return decode[dto.JobDTO](t, rec)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]handler.HealthCheck
		wantCode   int
		wantStatus string
	}{
		{
			name:       "no checks",
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		{
			name: "all checks pass",
			checks: map[string]handler.HealthCheck{
				"database": func(ctx context.Context) error { return nil },
			},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		{
			name: "broker down",
			checks: map[string]handler.HealthCheck{
				"database": func(ctx context.Context) error { return nil },
				"rabbitmq": func(ctx context.Context) error { return errors.New("rabbitmq connection is closed") },
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			engine := SetupRouter(&handler.Dependencies{
				Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
				Store:        jobstore.NewMemoryStore(),
				Publisher:    &fakePublisher{},
				HealthChecks: tt.checks,
			})

			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			body := decode[map[string]interface{}](t, rec)
			assert.Equal(t, tt.wantStatus, body["status"])
			if tt.wantCode != http.StatusOK {
				assert.Equal(t, "rabbitmq connection is closed", body["checks"].(map[string]interface{})["rabbitmq"])
			}
		})
	}
}

func TestCreateJob(t *testing.T) {
	ts := newTestServer(t)

	job := ts.createJob(t, "  @acme  ", "owner@example.com")

	assert.Equal(t, "@acme", job.ChannelName)
	assert.Equal(t, string(domain.JobStatusPending), job.Status)
	assert.Equal(t, []string{"1"}, job.Services)
	assert.Nil(t, job.ChannelID)
	assert.Nil(t, job.AnalysisResult)
	assert.Equal(t, []string{job.JobID}, ts.publisher.published)

	stored, err := ts.store.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, stored.Status)
	assert.Equal(t, "owner@example.com", stored.Email)
}

func TestCreateJob_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{name: "malformed json", body: "{"},
		{name: "missing channel", body: map[string]interface{}{"email": "a@example.com"}},
		{name: "blank channel", body: map[string]interface{}{"channel_name": "   "}},
		{name: "invalid email", body: map[string]interface{}{"channel_name": "acme", "email": "not-an-email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			rec := ts.do(t, http.MethodPost, "/api/v1/jobs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, ts.publisher.published)
		})
	}
}

func TestCreateJob_PublishFailureFailsJob(t *testing.T) {
	ts := newTestServer(t)
	ts.publisher.err = errors.New("channel closed")

	rec := ts.do(t, http.MethodPost, "/api/v1/jobs", map[string]interface{}{"channel_name": "acme"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	jobID := decode[map[string]string](t, rec)["job_id"]
	stored, err := ts.store.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Equal(t, "failed to enqueue job", *stored.Error)
}

func TestGetJob(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createJob(t, "acme", "")

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{name: "existing job", path: "/api/v1/jobs/" + created.JobID, wantCode: http.StatusOK},
		{name: "unknown job", path: "/api/v1/jobs/" + uuid.NewString(), wantCode: http.StatusNotFound},
		{name: "invalid id", path: "/api/v1/jobs/job-42", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, created.JobID, decode[dto.JobDTO](t, rec).JobID)
			}
		})
	}
}

func TestListJobs_Pagination(t *testing.T) {
	ts := newTestServer(t)

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, ts.createJob(t, "acme", "owner@example.com").JobID)
	}
	ts.createJob(t, "other", "someone@example.com")

	var seen []string
	cursor := ""
	for page := 0; page < 5; page++ {
		path := "/api/v1/jobs?email=owner@example.com&page_size=2"
		if cursor != "" {
			path += "&cursor=" + cursor
		}

		rec := ts.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[dto.ListJobsResponse](t, rec)
		for _, job := range resp.Jobs {
			seen = append(seen, job.JobID)
		}
		cursor = resp.NextCursor
		if cursor == "" {
			break
		}
	}

	// newest first
	want := []string{ids[4], ids[3], ids[2], ids[1], ids[0]}
	assert.Equal(t, want, seen)
}

func TestListJobs_InvalidQuery(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		path string
	}{
		{name: "bad cursor encoding", path: "/api/v1/jobs?cursor=!!!"},
		{name: "bad cursor format", path: "/api/v1/jobs?cursor=bm9waXBl"},
		{name: "unknown status", path: "/api/v1/jobs?status=running"},
		{name: "non numeric page size", path: "/api/v1/jobs?page_size=many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSetServices(t *testing.T) {
	ts := newTestServer(t)
	created := ts.createJob(t, "acme", "")

	rec := ts.do(t, http.MethodPut, "/api/v1/jobs/"+created.JobID+"/services", map[string]interface{}{
		"services": []string{"2", "7"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"2", "7"}, decode[dto.JobDTO](t, rec).Services)

	failed := domain.JobUpdate{Status: domain.JobStatusFailed, Error: domain.StringPtr("boom")}
	require.NoError(t, ts.store.UpdateJob(context.Background(), created.JobID, failed))

	tests := []struct {
		name     string
		path     string
		body     interface{}
		wantCode int
	}{
		{name: "terminal job", path: "/api/v1/jobs/" + created.JobID + "/services", body: map[string]interface{}{"services": []string{}}, wantCode: http.StatusConflict},
		{name: "unknown job", path: "/api/v1/jobs/" + uuid.NewString() + "/services", body: map[string]interface{}{"services": []string{}}, wantCode: http.StatusNotFound},
		{name: "missing services", path: "/api/v1/jobs/" + created.JobID + "/services", body: map[string]interface{}{}, wantCode: http.StatusBadRequest},
		{name: "invalid id", path: "/api/v1/jobs/nope/services", body: map[string]interface{}{"services": []string{}}, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestJobCursor_RoundTrip(t *testing.T) {
	in := &jobstore.JobCursor{CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC), JobID: uuid.NewString()}

	out, err := handler.DecodeJobCursor(handler.EncodeJobCursor(in))
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.JobID, out.JobID)

	empty, err := handler.DecodeJobCursor("")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodOptions, "/api/v1/jobs", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
