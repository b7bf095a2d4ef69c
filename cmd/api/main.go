package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/z-wentao/scriptsync/pkg/config"
	"github.com/z-wentao/scriptsync/pkg/models"
	"github.com/z-wentao/scriptsync/pkg/queue"
	"github.com/z-wentao/scriptsync/pkg/storage"
	"github.com/z-wentao/scriptsync/pkg/subtitle"
	"github.com/z-wentao/scriptsync/pkg/templates"
	"github.com/z-wentao/scriptsync/pkg/transcriber"
	"github.com/z-wentao/scriptsync/pkg/translator"
	"github.com/z-wentao/scriptsync/pkg/worker"
)

// App 应用上下文（面试亮点：依赖注入）
type App struct {
	config *config.Config
	queue  queue.Queue
	store  storage.Store
	worker *worker.Worker
	engine *transcriber.TranscriptionEngine
}

func main() {
	configPath := "config/config.yaml"
	if p := os.Getenv("SCRIPTSYNC_CONFIG"); p != "" {
		configPath = p
	}

	// 1. 加载配置
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("❌ 加载配置失败: %v", err)
	}
	log.Println("✓ 配置加载成功")

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	// 2. 确保必要的目录存在
	if err := os.MkdirAll(cfg.Server.UploadDir, 0755); err != nil {
		log.Fatalf("❌ 创建 %s 目录失败: %v", cfg.Server.UploadDir, err)
	}

	// 3. 初始化组件
	app := &App{config: cfg}

	app.store, err = newStore(cfg)
	if err != nil {
		log.Fatalf("❌ 初始化任务存储失败: %v", err)
	}

	// 3.1 初始化队列（根据配置选择类型）
	app.queue, err = newQueue(cfg)
	if err != nil {
		log.Fatalf("❌ 初始化队列失败: %v", err)
	}

	// 4. 初始化转换引擎（Whisper 与 Chat 共用一个 OpenAI 客户端）
	client := cfg.OpenAI.NewClient()
	whisper := transcriber.NewWhisperClient(client, cfg.OpenAI.TranscriptionModel)
	splitter := transcriber.NewAudioSplitter(cfg.Transcriber.SegmentDuration)
	app.engine = transcriber.NewTranscriptionEngine(whisper, splitter, transcriber.EngineOptions{
		ChunkConcurrency: cfg.Transcriber.WorkerCount,
		Language:         cfg.Subtitle.SourceLanguage,
		MaxRetries:       cfg.Transcriber.MaxRetries,
	})
	log.Println("✓ 转换引擎初始化成功")

	// 4.1 初始化翻译器（翻译模式下 Whisper 输出英文，再逐条翻译为目标语言）
	tr, err := translator.NewOpenAITranslator(client, cfg.OpenAI.ChatModel, "en", cfg.Subtitle.TargetLanguage)
	if err != nil {
		log.Fatalf("❌ 初始化翻译器失败: %v", err)
	}
	log.Printf("✓ 翻译器初始化成功 (目标语言: %s)", tr.Target())

	assembler := subtitle.NewAssembler(tr, subtitle.WithConcurrency(cfg.Subtitle.TranslateConcurrency))

	// 5. 启动 Worker
	app.worker = worker.NewWorker(app.queue, app.store, app.engine, assembler, worker.Options{
		PoolSize:   cfg.Transcriber.WorkerPoolSize,
		JobTimeout: cfg.Transcriber.JobTimeout,
	})
	app.worker.Start()

	// 6. 启动 HTTP 服务器
	router := app.setupRouter()
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	log.Printf("🚀 ScriptSync 服务器启动在 http://localhost:%d", cfg.Server.Port)
	log.Printf("📝 配置信息:")
	log.Printf("   - Worker 数量: %d", cfg.Transcriber.WorkerPoolSize)
	log.Printf("   - 分片并发数: %d", cfg.Transcriber.WorkerCount)
	log.Printf("   - 音频分片时长: %d 秒", cfg.Transcriber.SegmentDuration)
	log.Printf("   - 队列类型: %s", cfg.Queue.Type)
	log.Printf("   - 存储类型: %s", cfg.Storage.Type)

	// 7. 优雅关闭（面试亮点）
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ 服务器启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 正在关闭服务器...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  HTTP 服务器关闭失败: %v", err)
	}
	app.worker.Stop()
	app.queue.Close()
	app.store.Close()
	log.Println("✓ 服务器已关闭")
}

// newStore 根据配置创建任务存储
func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "redis":
		r := cfg.Storage.Redis
		store, err := storage.NewRedisJobStore(r.Addr, r.Password, r.DB, r.TTL)
		if err != nil {
			return nil, err
		}
		log.Printf("✓ 使用 Redis 任务存储 (%s, TTL %s)", r.Addr, r.TTL)
		return store, nil
	default:
		log.Println("✓ 使用内存任务存储")
		return storage.NewJobStore(), nil
	}
}

// newQueue 根据配置创建任务队列
func newQueue(cfg *config.Config) (queue.Queue, error) {
	switch cfg.Queue.Type {
	case "rabbitmq":
		// 预取数量 = Worker 数量
		return queue.NewRabbitMQQueue(cfg.Queue.RabbitMQ.URL, cfg.Queue.RabbitMQ.QueueName, cfg.Transcriber.WorkerPoolSize)
	default:
		log.Println("✓ 使用内存队列")
		return queue.NewMemoryQueue(cfg.Queue.BufferSize), nil
	}
}

// setupRouter 设置路由
func (app *App) setupRouter() *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = 32 << 20

	r.GET("/", app.handleIndex)
	r.GET("/jobs/:job_id", app.handlePlayer)

	// API 路由
	api := r.Group("/api")
	{
		api.GET("/ping", app.handlePing)
		api.POST("/upload", app.handleUpload)
		api.GET("/jobs", app.handleListJobs)                          // 列出所有任务
		api.GET("/jobs/:job_id", app.handleGetJob)                    // 获取任务状态
		api.DELETE("/jobs/:job_id", app.handleDeleteJob)              // 删除任务及文件
		api.GET("/jobs/:job_id/video", app.handleVideo)               // 原视频
		api.GET("/jobs/:job_id/subtitle.vtt", app.handleSubtitle)     // 播放器字幕轨道
		api.GET("/jobs/:job_id/download", app.handleDownloadSubtitle) // 下载字幕
	}

	return r
}

// isValidVideoFormat 验证视频文件格式
func isValidVideoFormat(ext string) bool {
	validFormats := map[string]bool{
		".mp4":  true,
		".avi":  true,
		".mov":  true,
		".webm": true,
		".mkv":  true,
		".wmv":  true,
	}

	// 转为小写比较
	ext = strings.ToLower(ext)
	return validFormats[ext]
}

// errorStatus 按错误分类映射 HTTP 状态码
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrNoFileUploaded), errors.Is(err, models.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTranscriptionService), errors.Is(err, models.ErrTranslationService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handlePing 健康检查
func (app *App) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
		"version": "0.3.0",
	})
}

// handleIndex 首页：上传表单 + 任务列表
func (app *App) handleIndex(c *gin.Context) {
	jobs, err := app.store.List()
	if err != nil {
		log.Printf("⚠️  获取任务列表失败: %v", err)
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(templates.RenderIndexPage(jobs)))
}

// handleUpload 处理视频上传
func (app *App) handleUpload(c *gin.Context) {
	// 1. 获取文件
	file, err := c.FormFile("video")
	if err != nil {
		err = models.NewError(models.KindNoFileUploaded, "upload", errors.New("请上传视频文件"))
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	// 2. 验证文件格式
	ext := filepath.Ext(file.Filename)
	if !isValidVideoFormat(ext) {
		err = models.NewError(models.KindUnsupportedFormat, "upload",
			fmt.Errorf("不支持的文件格式 %q，支持: .mp4, .avi, .mov, .webm, .mkv, .wmv", ext))
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	// 3. 验证文件大小
	if file.Size > app.config.Server.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("文件太大，最大 %.0f MB", float64(app.config.Server.MaxUploadSize)/1024/1024),
		})
		return
	}

	// 4. 解析翻译模式
	mode, err := models.ParseTranslationMode(c.DefaultPostForm("mode", string(models.ModeOriginal)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 5. 生成唯一文件名并保存
	jobID := uuid.New().String()
	filename := jobID + strings.ToLower(ext)
	savePath := filepath.Join(app.config.Server.UploadDir, filename)

	if err := os.MkdirAll(app.config.Server.UploadDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建上传目录失败"})
		return
	}
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败"})
		return
	}

	log.Printf("✓ 文件已保存: %s (%.2f MB)", filename, float64(file.Size)/1024/1024)

	// 6. 创建任务
	job := &models.SubtitleJob{
		JobID:     jobID,
		Filename:  file.Filename,
		VideoPath: savePath,
		Mode:      mode,
		Status:    models.StatusPending,
		Progress:  0,
		CreatedAt: time.Now(),
	}

	// 7. 保存到存储
	if err := app.store.Save(job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存任务失败"})
		return
	}

	// 8. 加入队列（面试亮点：异步处理）
	if err := app.queue.Enqueue(job); err != nil {
		log.Printf("❌ 任务加入队列失败: %v", err)
		_ = app.store.Update(jobID, func(j *models.SubtitleJob) {
			j.Status = models.StatusFailed
			j.Error = err.Error()
			j.CompletedAt = time.Now()
		})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "任务加入队列失败"})
		return
	}

	log.Printf("✓ 任务已加入队列: %s (模式: %s)", jobID, mode)

	// 9. 返回结果
	c.JSON(http.StatusOK, gin.H{
		"job_id":   jobID,
		"filename": file.Filename,
		"size":     file.Size,
		"status":   job.Status,
		"mode":     mode,
		"message":  "上传成功，正在处理中...",
	})
}

// handleGetJob 获取任务状态
func (app *App) handleGetJob(c *gin.Context) {
	job, err := app.store.Get(c.Param("job_id"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newJobView(job))
}

// handleListJobs 列出所有任务
func (app *App) handleListJobs(c *gin.Context) {
	jobs, err := app.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"jobs":  newJobViews(jobs),
		"total": len(jobs),
	})
}

// handleDeleteJob 删除任务以及上传的视频和字幕文件
func (app *App) handleDeleteJob(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := app.store.Get(jobID)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	for _, path := range []string{job.VideoPath, job.VTTPath, job.SRTPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("⚠️  删除文件 %s 失败: %v", path, err)
		}
	}

	if err := app.store.Delete(jobID); err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	log.Printf("✓ 任务已删除: %s", jobID)
	c.JSON(http.StatusOK, gin.H{"message": "删除成功", "job_id": jobID})
}

// handlePlayer 播放页面
func (app *App) handlePlayer(c *gin.Context) {
	job, err := app.store.Get(c.Param("job_id"))
	if err != nil {
		c.String(errorStatus(err), "任务不存在")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(templates.RenderPlayerPage(job)))
}

// handleVideo 返回上传的视频（支持 Range 请求）
func (app *App) handleVideo(c *gin.Context) {
	job, err := app.store.Get(c.Param("job_id"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.File(job.VideoPath)
}

// subtitleFile 查找已完成任务的字幕文件，未就绪时写出错误响应并返回 false
func (app *App) subtitleFile(c *gin.Context, format subtitle.Format) (string, bool) {
	job, err := app.store.Get(c.Param("job_id"))
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return "", false
	}

	path := job.VTTPath
	if format == subtitle.FormatSRT {
		path = job.SRTPath
	}
	if job.Status != models.StatusCompleted || path == "" {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "字幕尚未生成",
			"status": job.Status,
		})
		return "", false
	}
	return path, true
}

// handleSubtitle 以 text/vtt 返回字幕，供 <track> 使用
func (app *App) handleSubtitle(c *gin.Context) {
	path, ok := app.subtitleFile(c, subtitle.FormatVTT)
	if !ok {
		return
	}
	c.Header("Content-Type", "text/vtt; charset=utf-8")
	c.File(path)
}

// handleDownloadSubtitle 下载字幕文件
func (app *App) handleDownloadSubtitle(c *gin.Context) {
	format, err := subtitle.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path, ok := app.subtitleFile(c, format)
	if !ok {
		return
	}
	c.FileAttachment(path, "subtitles"+format.Ext())
}
