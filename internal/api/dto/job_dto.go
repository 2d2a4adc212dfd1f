package dto

import (
	"time"

	"github.com/cuongbtq/tube-insights/internal/domain"
)

type CreateJobRequest struct {
	ChannelName string   `json:"channel_name" binding:"required"`
	Email       string   `json:"email" binding:"omitempty,email"`
	Services    []string `json:"services"`
}

type SetServicesRequest struct {
	Services []string `json:"services" binding:"required"`
}

type ListJobsRequest struct {
	Email    string `form:"email"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID          string                 `json:"job_id"`
	ChannelName    string                 `json:"channel_name"`
	ChannelID      *string                `json:"channel_id"`
	Status         string                 `json:"status"`
	Services       []string               `json:"services"`
	Videos         []domain.ContentItem   `json:"videos"`
	AnalysisResult *domain.AnalysisResult `json:"analysis_result"`
	Error          *string                `json:"error"`
	Email          string                 `json:"email,omitempty"`
	CreatedAt      string                 `json:"created_at"`
	UpdatedAt      string                 `json:"updated_at"`
}

// FromJob maps a stored job onto its response shape
func FromJob(job *domain.Job) JobDTO {
	services := job.Services
	if services == nil {
		services = []string{}
	}

	return JobDTO{
		JobID:          job.ID,
		ChannelName:    job.ChannelName,
		ChannelID:      job.ChannelID,
		Status:         string(job.Status),
		Services:       services,
		Videos:         job.Videos,
		AnalysisResult: job.AnalysisResult,
		Error:          job.Error,
		Email:          job.Email,
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      job.UpdatedAt.Format(time.RFC3339),
	}
}
