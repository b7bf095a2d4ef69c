package transcriber

import (
    "context"
    "errors"
    "fmt"
    "log"
    "os"
    "strings"
    "sync"

    "github.com/z-wentao/scriptsync/pkg/models"
)

// Recognizer 语音识别接口（WhisperClient 实现）
type Recognizer interface {
    RecognizeWithRetry(ctx context.Context, audioPath string, mode models.TranslationMode, language string, maxRetries int) (*WhisperResponse, error)
}

// Media 音频提取与分片接口（AudioSplitter 实现）
type Media interface {
    ExtractAudio(ctx context.Context, videoPath string) (string, error)
    Split(ctx context.Context, audioPath string) ([]models.Chunk, float64, error)
    Cleanup(chunks []models.Chunk) error
}

// TranscriptionEngine 转换引擎
// 面试亮点：Goroutine Pool + Channel 并发处理
type TranscriptionEngine struct {
    recognizer       Recognizer
    media            Media
    chunkConcurrency int    // 音频分片并发处理数
    language         string // 原文模式的语言提示
    maxRetries       int
}

// EngineOptions 引擎参数
type EngineOptions struct {
    ChunkConcurrency int
    Language         string
    MaxRetries       int
}

func NewTranscriptionEngine(recognizer Recognizer, media Media, opts EngineOptions) *TranscriptionEngine {
    if opts.ChunkConcurrency <= 0 {
	opts.ChunkConcurrency = 3 // 默认 3 个并发分片处理
    }
    if opts.MaxRetries <= 0 {
	opts.MaxRetries = 3
    }

    return &TranscriptionEngine{
	recognizer:       recognizer,
	media:            media,
	chunkConcurrency: opts.ChunkConcurrency,
	language:         opts.Language,
	maxRetries:       opts.MaxRetries,
    }
}

// chunkResult 处理结果（内部用于 Channel 传递）
type chunkResult struct {
    ChunkIndex int
    Response   *WhisperResponse
    Error      error
}

// Result 识别结果
type Result struct {
    Segments []models.Segment // 已合并、按时间排列、从 1 编号
    Language string
    Duration float64
}

// Segments 从视频中识别出带时间戳的字幕片段
// 1. 提取音轨并分片
// 2. Goroutine Pool 控制并发数，Channel 收集结果
// 3. 按分片顺序合并，时间戳加上分片偏移
func (te *TranscriptionEngine) Segments(
    ctx context.Context,
    videoPath string,
    mode models.TranslationMode,
    progressCallback func(progress int),
) (*Result, error) {
    // 1. 提取音轨
    log.Printf("开始提取音轨: %s", videoPath)
    audioPath, err := te.media.ExtractAudio(ctx, videoPath)
    if err != nil {
	return nil, fmt.Errorf("提取音轨失败: %w", err)
    }
    defer os.Remove(audioPath)

    // 2. 分片
    chunks, duration, err := te.media.Split(ctx, audioPath)
    if err != nil {
	return nil, fmt.Errorf("分片失败: %w", err)
    }
    defer te.media.Cleanup(chunks)
    if len(chunks) == 0 {
	return nil, models.NewError(models.KindMediaExtraction, "split audio", errors.New("音频分片为空"))
    }

    totalChunks := len(chunks)
    log.Printf("✓ 音频已分片，共 %d 个分片", totalChunks)

    // 3. 创建任务队列和结果收集 Channel
    taskChan := make(chan models.Chunk, totalChunks)
    resultChan := make(chan chunkResult, totalChunks)

    // 4. 启动 Goroutine Pool
    log.Printf("🚀 启动 %d 个并发分片处理器进行处理...", te.chunkConcurrency)
    var wg sync.WaitGroup
    for i := 0; i < te.chunkConcurrency; i++ {
	wg.Add(1)
	go te.chunkProcessor(ctx, i, taskChan, resultChan, mode, &wg)
    }

    // 5. 发送任务到队列
    for _, chunk := range chunks {
	taskChan <- chunk
    }
    close(taskChan) // 关闭任务 Channel，告诉 worker 没有更多任务了

    // 6. 启动结果收集 Goroutine
    go func() {
	wg.Wait()         // 等待所有 worker 完成
	close(resultChan) // 关闭结果 Channel
    }()

    // 7. 收集结果
    results := make(map[int]*WhisperResponse)
    var errs []error
    completedCount := 0

    for result := range resultChan {
	completedCount++

	if result.Error != nil {
	    errs = append(errs, fmt.Errorf("分片 %d 失败: %w", result.ChunkIndex, result.Error))
	    log.Printf("❌ 分片 #%d 识别失败: %v", result.ChunkIndex, result.Error)
	} else {
	    results[result.ChunkIndex] = result.Response
	    log.Printf("✅ 分片 #%d 识别完成 | 进度: %d/%d (%.1f%%) | 字幕条数: %d",
		result.ChunkIndex, completedCount, totalChunks,
		float64(completedCount*100)/float64(totalChunks), len(result.Response.Segments))
	}

	// 进度回调
	if progressCallback != nil {
	    progressCallback((completedCount * 100) / totalChunks)
	}
    }

    // 8. 检查是否有错误
    if len(errs) > 0 {
	return nil, fmt.Errorf("识别过程中出现 %d 个错误: %w", len(errs), errs[0])
    }

    // 9. 按顺序合并
    segments := MergeSegments(chunks, results)
    log.Printf("✓ 所有分片识别完成，共 %d 条字幕", len(segments))

    language := te.language
    if mode == models.ModeTranslate {
	language = "en"
    }
    if resp := results[chunks[0].Index]; resp != nil && resp.Language != "" {
	language = resp.Language
    }

    return &Result{
	Segments: segments,
	Language: language,
	Duration: duration,
    }, nil
}

// chunkProcessor 分片处理器 - Goroutine Pool 中的工作单元
func (te *TranscriptionEngine) chunkProcessor(
    ctx context.Context,
    processorID int,
    taskChan <-chan models.Chunk,
    resultChan chan<- chunkResult,
    mode models.TranslationMode,
    wg *sync.WaitGroup,
) {
    defer wg.Done()

    for chunk := range taskChan {
	// 检查 Context 是否已取消
	select {
	case <-ctx.Done():
	    resultChan <- chunkResult{
		ChunkIndex: chunk.Index,
		Error:      fmt.Errorf("任务被取消: %w", ctx.Err()),
	    }
	    continue
	default:
	}

	log.Printf("🔄 [分片处理器-%d] 正在处理分片 #%d (%.1fs - %.1fs)",
	    processorID, chunk.Index, chunk.Start, chunk.End)
	response, err := te.recognizer.RecognizeWithRetry(ctx, chunk.FilePath, mode, te.language, te.maxRetries)

	resultChan <- chunkResult{
	    ChunkIndex: chunk.Index,
	    Response:   response,
	    Error:      err,
	}
    }
}

// MergeSegments 按分片顺序合并片段
// 时间戳加上分片起始偏移，去掉首尾空白与空文本，并从 1 开始重新编号
func MergeSegments(chunks []models.Chunk, results map[int]*WhisperResponse) []models.Segment {
    merged := make([]models.Segment, 0)

    for _, chunk := range chunks {
	resp, ok := results[chunk.Index]
	if !ok || resp == nil {
	    continue
	}

	for _, seg := range resp.Segments {
	    text := strings.TrimSpace(seg.Text)
	    if text == "" {
		continue
	    }
	    merged = append(merged, models.Segment{
		ID:    len(merged) + 1,
		Start: chunk.Start + seg.Start,
		End:   chunk.Start + seg.End,
		Text:  text,
	    })
	}
    }

    return merged
}
