package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/z-wentao/scriptsync/pkg/models"
	"github.com/z-wentao/scriptsync/pkg/queue"
	"github.com/z-wentao/scriptsync/pkg/storage"
	"github.com/z-wentao/scriptsync/pkg/subtitle"
	"github.com/z-wentao/scriptsync/pkg/transcriber"
)

// Segmenter 从视频中识别字幕片段（TranscriptionEngine 实现）
type Segmenter interface {
	Segments(ctx context.Context, videoPath string, mode models.TranslationMode, progress func(int)) (*transcriber.Result, error)
}

// 识别阶段占总进度的比例，剩余部分留给翻译与写文件
const recognizeProgressShare = 90

// Worker 任务处理器
// 面试亮点：展示 Goroutine 的生命周期管理
type Worker struct {
	queue      queue.Queue
	store      storage.Store
	engine     Segmenter
	assembler  *subtitle.Assembler
	poolSize   int
	jobTimeout time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Options Worker 参数
type Options struct {
	PoolSize   int           // 同时处理的任务数
	JobTimeout time.Duration // 单个任务超时
}

// NewWorker 创建 Worker
// assembler 负责翻译模式下的逐条翻译，并输出 VTT；SRT 复用同一份文本
func NewWorker(
	q queue.Queue,
	store storage.Store,
	engine Segmenter,
	assembler *subtitle.Assembler,
	opts Options,
) *Worker {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 1
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 30 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		queue:      q,
		store:      store,
		engine:     engine,
		assembler:  assembler,
		poolSize:   opts.PoolSize,
		jobTimeout: opts.JobTimeout,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start 启动 Worker Pool（每个 Worker 在独立的 Goroutine 中运行）
// 面试亮点：优雅的启动和关闭
func (w *Worker) Start() {
	for i := 0; i < w.poolSize; i++ {
		w.wg.Add(1)
		go w.run(i)
	}
	log.Printf("✓ 已启动 %d 个 Worker", w.poolSize)
}

// Stop 停止 Worker，等待正在处理的任务退出
func (w *Worker) Stop() {
	log.Println("正在停止 Worker...")
	w.cancel()
	w.wg.Wait()
	log.Println("✓ 所有 Worker 已停止")
}

// run Worker 主循环
func (w *Worker) run(id int) {
	defer w.wg.Done()
	log.Printf("Worker-%d 已启动，等待任务...", id)

	for {
		// 从队列获取任务（阻塞）
		job, err := w.queue.Dequeue(w.ctx)
		if err != nil {
			if w.ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				log.Printf("Worker-%d 已停止", id)
				return
			}
			log.Printf("⚠️  从队列获取任务失败: %v", err)
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if err := w.processJob(job); err != nil {
			if nackErr := w.queue.Nack(job, false); nackErr != nil {
				log.Printf("⚠️  Nack 任务 %s 失败: %v", job.JobID, nackErr)
			}
			continue
		}
		if err := w.queue.Ack(job); err != nil {
			log.Printf("⚠️  Ack 任务 %s 失败: %v", job.JobID, err)
		}
	}
}

// processJob 处理单个任务：识别 -> 解析文本 -> 写出 VTT/SRT
func (w *Worker) processJob(job *models.SubtitleJob) error {
	log.Println("\n" + strings.Repeat("=", 80))
	log.Printf("📝 开始处理任务: %s", job.JobID)
	log.Printf("📂 文件名: %s (模式: %s)", job.Filename, job.Mode)

	// 更新状态为处理中
	w.update(job.JobID, func(j *models.SubtitleJob) {
		j.Status = models.StatusProcessing
		j.Progress = 0
	})

	// 进度回调
	progressCallback := func(progress int) {
		scaled := progress * recognizeProgressShare / 100
		w.update(job.JobID, func(j *models.SubtitleJob) {
			j.Progress = scaled
		})
		log.Printf("任务 %s 进度: %d%%", job.JobID, scaled)
	}

	// 创建任务特定的 Context
	ctx, cancel := context.WithTimeout(w.ctx, w.jobTimeout)
	defer cancel()

	startTime := time.Now()
	vttPath, srtPath, result, err := w.generate(ctx, job, progressCallback)
	if err != nil {
		log.Printf("❌ 任务 %s 失败: %v", job.JobID, err)
		w.update(job.JobID, func(j *models.SubtitleJob) {
			j.Status = models.StatusFailed
			j.Error = err.Error()
			j.CompletedAt = time.Now()
		})
		return err
	}

	// 处理成功
	duration := time.Since(startTime)
	log.Printf("🎉 任务 %s 完成！", job.JobID)
	log.Printf("⏱️  总耗时: %.2f 秒 (%.2f 分钟)", duration.Seconds(), duration.Minutes())
	log.Printf("📝 字幕条数: %d", len(result.Segments))
	log.Println(strings.Repeat("=", 80) + "\n")

	w.update(job.JobID, func(j *models.SubtitleJob) {
		j.Status = models.StatusCompleted
		j.VTTPath = vttPath
		j.SRTPath = srtPath
		j.Language = result.Language
		j.Duration = result.Duration
		j.SegmentCount = len(result.Segments)
		j.Progress = 100
		j.Error = ""
		j.CompletedAt = time.Now()
	})
	return nil
}

// generate 识别并写出字幕文件，返回 VTT/SRT 路径
// 翻译只做一次，两种格式使用同一份文本
func (w *Worker) generate(ctx context.Context, job *models.SubtitleJob, progress func(int)) (string, string, *transcriber.Result, error) {
	result, err := w.engine.Segments(ctx, job.VideoPath, job.Mode, progress)
	if err != nil {
		return "", "", nil, err
	}

	resolved, err := w.assembler.Resolve(ctx, result.Segments, job.Mode)
	if err != nil {
		return "", "", nil, err
	}
	w.update(job.JobID, func(j *models.SubtitleJob) {
		j.Progress = 95
	})

	base := strings.TrimSuffix(job.VideoPath, filepath.Ext(job.VideoPath))
	vttPath := base + subtitle.FormatVTT.Ext()
	srtPath := base + subtitle.FormatSRT.Ext()

	if err := w.assembler.WriteFile(ctx, vttPath, resolved, models.ModeOriginal); err != nil {
		return "", "", nil, fmt.Errorf("生成 VTT 失败: %w", err)
	}
	srt := subtitle.NewAssembler(nil, subtitle.WithFormat(subtitle.FormatSRT))
	if err := srt.WriteFile(ctx, srtPath, resolved, models.ModeOriginal); err != nil {
		return "", "", nil, fmt.Errorf("生成 SRT 失败: %w", err)
	}

	return vttPath, srtPath, result, nil
}

// update 更新任务状态，任务已被删除时只记录日志
func (w *Worker) update(jobID string, fn func(*models.SubtitleJob)) {
	if err := w.store.Update(jobID, fn); err != nil {
		log.Printf("⚠️  更新任务 %s 状态失败: %v", jobID, err)
	}
}
