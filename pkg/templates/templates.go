package templates

import (
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"github.com/z-wentao/scriptsync/pkg/models"
)

// FormatTime 格式化时间
func FormatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	if diff < time.Minute {
		return "刚刚"
	}
	if diff < time.Hour {
		return fmt.Sprintf("%d 分钟前", int(diff.Minutes()))
	}
	if diff < 24*time.Hour {
		return fmt.Sprintf("%d 小时前", int(diff.Hours()))
	}
	return t.Format("2006-01-02 15:04")
}

// IsVideoFile 判断是否是视频文件
func IsVideoFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	videoExts := []string{".mp4", ".webm", ".ogg", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".m4v"}
	for _, ve := range videoExts {
		if ext == ve {
			return true
		}
	}
	return false
}

// StatusText 任务状态的中文描述
func StatusText(status models.JobStatus) string {
	statusText := map[models.JobStatus]string{
		models.StatusPending:    "等待处理",
		models.StatusProcessing: "处理中",
		models.StatusCompleted:  "已完成",
		models.StatusFailed:     "失败",
	}
	if s, ok := statusText[status]; ok {
		return s
	}
	return "未知"
}

// ModeText 翻译模式的中文描述
func ModeText(mode models.TranslationMode) string {
	if mode == models.ModeTranslate {
		return "翻译字幕"
	}
	return "原文字幕"
}

const pageHead = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 20px auto; padding: 0 10px; }
.task-card { margin: 8px 0; }
.error { color: #c00; }
video { max-width: 100%%; }
</style>
</head>
<body>
`

const pageTail = `</body>
</html>
`

// RenderIndexPage 渲染上传页面与任务列表
func RenderIndexPage(jobs []*models.SubtitleJob) template.HTML {
	var html strings.Builder

	html.WriteString(fmt.Sprintf(pageHead, "ScriptSync"))
	html.WriteString(`
	<h1>🎬 ScriptSync</h1>
	<p>上传视频，自动生成 WebVTT 字幕</p>
	<form action="/api/upload" method="post" enctype="multipart/form-data" id="upload-form">
	<input type="file" name="video" accept=".mp4,.avi,.mov,.webm,.mkv,.wmv" required>
	<select name="mode">
	<option value="original">原文字幕</option>
	<option value="translate">翻译字幕</option>
	</select>
	<button type="submit">📤 上传</button>
	</form>
	<div id="upload-result"></div>
	<script>
	document.getElementById('upload-form').addEventListener('submit', function(e) {
	e.preventDefault();
	const result = document.getElementById('upload-result');
	fetch('/api/upload', { method: 'POST', body: new FormData(this) })
	.then(response => response.json())
	.then(data => {
	if (data.error) {
	result.textContent = '上传失败: ' + data.error;
	return;
	}
	window.location.href = '/jobs/' + data.job_id;
	})
	.catch(err => { result.textContent = '上传失败: ' + err; });
	});
	</script>
	<h2>任务列表</h2>
	`)
	html.WriteString(string(RenderTasksList(jobs)))
	html.WriteString(pageTail)

	return template.HTML(html.String())
}

// RenderTaskCard 渲染任务卡片
func RenderTaskCard(job *models.SubtitleJob) template.HTML {
	jobID := template.HTMLEscapeString(job.JobID)

	spinner := ""
	if job.Status == models.StatusProcessing {
		spinner = "<span>⏳</span>"
	}

	progress := ""
	if job.Progress > 0 {
		progress = fmt.Sprintf("<span>进度: %d%%</span>", job.Progress)
	}

	actions := fmt.Sprintf(`<a href="/jobs/%s">▶️ 播放</a>`, jobID)
	if job.Status == models.StatusCompleted {
		actions += fmt.Sprintf(`
		<a href="/api/jobs/%s/download?format=vtt">📥 下载 VTT</a>
		<a href="/api/jobs/%s/download?format=srt">📥 下载 SRT</a>
		`, jobID, jobID)
	}

	html := fmt.Sprintf(`
	<div class="task-card" data-job-id="%s" data-status="%s" id="task-%s">
	<hr>
	<p><strong>%s</strong> %s</p>
	<p>状态: <strong>%s</strong> | %s | %s | 时间: %s</p>
	<p>%s</p>
	</div>
	`,
		jobID,
		job.Status,
		jobID,
		template.HTMLEscapeString(job.Filename),
		spinner,
		StatusText(job.Status),
		ModeText(job.Mode),
		progress,
		FormatTime(job.CreatedAt),
		actions,
	)

	return template.HTML(html)
}

// RenderTasksList 渲染任务列表
func RenderTasksList(jobs []*models.SubtitleJob) template.HTML {
	if len(jobs) == 0 {
		return template.HTML("<p>暂无任务</p>")
	}

	var html strings.Builder
	for _, job := range jobs {
		html.WriteString(string(RenderTaskCard(job)))
	}

	return template.HTML(html.String())
}

// RenderPlayerPage 渲染播放页面
// 字幕就绪后通过 <track> 挂载 VTT，浏览器原生渲染
func RenderPlayerPage(job *models.SubtitleJob) template.HTML {
	var html strings.Builder
	jobID := template.HTMLEscapeString(job.JobID)

	html.WriteString(fmt.Sprintf(pageHead, template.HTMLEscapeString(job.Filename)))
	html.WriteString(fmt.Sprintf(`
	<p><a href="/">← 返回</a></p>
	<h2>%s</h2>
	<p>状态: <strong>%s</strong> | %s</p>
	`, template.HTMLEscapeString(job.Filename), StatusText(job.Status), ModeText(job.Mode)))

	html.WriteString(fmt.Sprintf(`
	<video id="video-%s" controls crossorigin="anonymous" src="/api/jobs/%s/video">`, jobID, jobID))
	if job.Status == models.StatusCompleted && job.VTTPath != "" {
		lang := job.Language
		if lang == "" {
			lang = "en"
		}
		html.WriteString(fmt.Sprintf(`
		<track kind="subtitles" src="/api/jobs/%s/subtitle.vtt" srclang="%s" label="%s" default>`,
			jobID, template.HTMLEscapeString(lang), ModeText(job.Mode)))
	}
	html.WriteString(`
	</video>
	`)

	switch job.Status {
	case models.StatusCompleted:
		html.WriteString(fmt.Sprintf(`
		<p>字幕条数: %d | 时长: %.1f 秒</p>
		<p>
		<a href="/api/jobs/%s/download?format=vtt">📥 下载 VTT</a>
		<a href="/api/jobs/%s/download?format=srt">📥 下载 SRT</a>
		</p>
		`, job.SegmentCount, job.Duration, jobID, jobID))
	case models.StatusFailed:
		html.WriteString(fmt.Sprintf(`
		<p class="error"><strong>错误:</strong> %s</p>
		`, template.HTMLEscapeString(job.Error)))
	default:
		// 未完成时定时刷新页面
		html.WriteString(fmt.Sprintf(`
		<p>转换进度: %d%%</p>
		<progress value="%d" max="100"></progress>
		<script>setTimeout(function() { window.location.reload(); }, 3000);</script>
		`, job.Progress, job.Progress))
	}

	html.WriteString(pageTail)
	return template.HTML(html.String())
}
