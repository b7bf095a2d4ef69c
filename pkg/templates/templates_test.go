package templates

import (
	"strings"
	"testing"
	"time"

	"github.com/z-wentao/scriptsync/pkg/models"
)

// TestRenderPlayerPageCompleted 测试完成后挂载字幕轨道
func TestRenderPlayerPageCompleted(t *testing.T) {
	job := &models.SubtitleJob{
		JobID:        "abc",
		Filename:     "<talk>.mp4",
		Mode:         models.ModeTranslate,
		Status:       models.StatusCompleted,
		VTTPath:      "uploads/abc.vtt",
		Language:     "en",
		SegmentCount: 3,
	}
	page := string(RenderPlayerPage(job))

	if !strings.Contains(page, `<track kind="subtitles" src="/api/jobs/abc/subtitle.vtt" srclang="en"`) {
		t.Fatalf("track missing: %s", page)
	}
	if !strings.Contains(page, "/api/jobs/abc/download?format=srt") {
		t.Fatalf("download link missing")
	}
	if strings.Contains(page, "<talk>") || !strings.Contains(page, "&lt;talk&gt;.mp4") {
		t.Fatalf("filename not escaped")
	}
}

// TestRenderPlayerPagePending 测试未完成时不挂载字幕
func TestRenderPlayerPagePending(t *testing.T) {
	job := &models.SubtitleJob{JobID: "abc", Filename: "a.mp4", Status: models.StatusProcessing, Progress: 45}
	page := string(RenderPlayerPage(job))
	if strings.Contains(page, "<track") {
		t.Fatalf("track should not be rendered before completion")
	}
	if !strings.Contains(page, `<progress value="45"`) {
		t.Fatalf("progress missing")
	}
}

// TestRenderIndexPage 测试首页包含上传表单与任务
func TestRenderIndexPage(t *testing.T) {
	empty := string(RenderIndexPage(nil))
	if !strings.Contains(empty, `name="video"`) || !strings.Contains(empty, `value="translate"`) {
		t.Fatalf("upload form missing")
	}
	if !strings.Contains(empty, "暂无任务") {
		t.Fatalf("empty list text missing")
	}

	jobs := []*models.SubtitleJob{{JobID: "j1", Filename: "a.mp4", Status: models.StatusPending, CreatedAt: time.Now()}}
	page := string(RenderIndexPage(jobs))
	if !strings.Contains(page, `id="task-j1"`) || !strings.Contains(page, "等待处理") {
		t.Fatalf("task card missing")
	}
}

// TestIsVideoFile 测试视频扩展名判断
func TestIsVideoFile(t *testing.T) {
	if !IsVideoFile("a.MKV") || IsVideoFile("a.mp3") || IsVideoFile("noext") {
		t.Fatalf("unexpected IsVideoFile result")
	}
}
