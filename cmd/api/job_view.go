package main

import (
	"time"

	"github.com/z-wentao/scriptsync/pkg/models"
)

// jobView 对外返回的任务信息，不包含服务器上的文件路径
type jobView struct {
	JobID        string                 `json:"job_id"`
	Filename     string                 `json:"filename"`
	Mode         models.TranslationMode `json:"mode"`
	Status       models.JobStatus       `json:"status"`
	Progress     int                    `json:"progress"`
	Language     string                 `json:"language,omitempty"`
	Duration     float64                `json:"duration,omitempty"`
	SegmentCount int                    `json:"segment_count"`
	Error        string                 `json:"error,omitempty"`
	VideoURL     string                 `json:"video_url"`
	VTTURL       string                 `json:"vtt_url,omitempty"` // 完成后才有
	SRTURL       string                 `json:"srt_url,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

func newJobView(job *models.SubtitleJob) jobView {
	base := "/api/jobs/" + job.JobID
	v := jobView{
		JobID:        job.JobID,
		Filename:     job.Filename,
		Mode:         job.Mode,
		Status:       job.Status,
		Progress:     job.Progress,
		Language:     job.Language,
		Duration:     job.Duration,
		SegmentCount: job.SegmentCount,
		Error:        job.Error,
		VideoURL:     base + "/video",
		CreatedAt:    job.CreatedAt,
	}
	if job.Status == models.StatusCompleted {
		v.VTTURL = base + "/download?format=vtt"
		v.SRTURL = base + "/download?format=srt"
	}
	if !job.CompletedAt.IsZero() {
		completed := job.CompletedAt
		v.CompletedAt = &completed
	}
	return v
}

func newJobViews(jobs []*models.SubtitleJob) []jobView {
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, newJobView(job))
	}
	return views
}
