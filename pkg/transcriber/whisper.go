package transcriber

import (
    "context"
    "fmt"
    "time"

    "github.com/sashabaranov/go-openai"

    "github.com/z-wentao/scriptsync/pkg/models"
)

// WhisperClient OpenAI Whisper API 客户端
type WhisperClient struct {
    client *openai.Client
    model  string
    // 重试退避的基础间隔，测试中可调小
    backoff time.Duration
}

// NewWhisperClient 创建 Whisper 客户端
func NewWhisperClient(client *openai.Client, model string) *WhisperClient {
    if model == "" {
	model = openai.Whisper1
    }
    return &WhisperClient{
	client:  client,
	model:   model,
	backoff: time.Second,
    }
}

// WhisperResponse API 响应（verbose_json 格式）
type WhisperResponse struct {
    Text     string
    Language string
    Duration float64
    Segments []models.Segment // 片段内时间戳（相对当前音频分片）
}

// Transcribe 按源语言转录音频（返回完整响应，包含时间戳）
func (wc *WhisperClient) Transcribe(ctx context.Context, audioPath string, language string) (*WhisperResponse, error) {
    resp, err := wc.client.CreateTranscription(ctx, openai.AudioRequest{
	Model:    wc.model,
	FilePath: audioPath,
	Language: language, // 可选，不指定则自动检测
	Format:   openai.AudioResponseFormatVerboseJSON,
	TimestampGranularities: []openai.TranscriptionTimestampGranularity{
	    openai.TranscriptionTimestampGranularitySegment,
	},
    })
    if err != nil {
	return nil, models.NewError(models.KindTranscriptionService, "transcription", err)
    }
    return ConvertResponse(resp), nil
}

// Translate 将音频直接翻译为英文（Whisper translations 接口）
func (wc *WhisperClient) Translate(ctx context.Context, audioPath string) (*WhisperResponse, error) {
    resp, err := wc.client.CreateTranslation(ctx, openai.AudioRequest{
	Model:    wc.model,
	FilePath: audioPath,
	Format:   openai.AudioResponseFormatVerboseJSON,
    })
    if err != nil {
	return nil, models.NewError(models.KindTranslationService, "translation", err)
    }
    return ConvertResponse(resp), nil
}

// Recognize 按模式选择转录或翻译接口
func (wc *WhisperClient) Recognize(ctx context.Context, audioPath string, mode models.TranslationMode, language string) (*WhisperResponse, error) {
    if mode == models.ModeTranslate {
	return wc.Translate(ctx, audioPath)
    }
    return wc.Transcribe(ctx, audioPath, language)
}

// RecognizeWithRetry 带重试的识别
func (wc *WhisperClient) RecognizeWithRetry(ctx context.Context, audioPath string, mode models.TranslationMode, language string, maxRetries int) (*WhisperResponse, error) {
    if maxRetries <= 0 {
	maxRetries = 1
    }

    var lastErr error

    for i := 0; i < maxRetries; i++ {
	resp, err := wc.Recognize(ctx, audioPath, mode, language)
	if err == nil {
	    return resp, nil
	}

	lastErr = err

	// 检查是否因为 Context 取消
	if ctx.Err() != nil {
	    return nil, fmt.Errorf("任务被取消: %w", ctx.Err())
	}

	// 指数退避
	if i < maxRetries-1 {
	    waitTime := wc.backoff * time.Duration(1<<uint(i)) // 1s, 2s, 4s, 8s...
	    select {
	    case <-time.After(waitTime):
		continue
	    case <-ctx.Done():
		return nil, fmt.Errorf("任务被取消: %w", ctx.Err())
	    }
	}
    }

    return nil, fmt.Errorf("重试 %d 次后仍然失败: %w", maxRetries, lastErr)
}

// ConvertResponse 将 go-openai 的 verbose_json 响应转换为内部片段
func ConvertResponse(resp openai.AudioResponse) *WhisperResponse {
    segments := make([]models.Segment, 0, len(resp.Segments))
    for _, s := range resp.Segments {
	segments = append(segments, models.Segment{
	    ID:    s.ID,
	    Start: s.Start,
	    End:   s.End,
	    Text:  s.Text,
	})
    }
    return &WhisperResponse{
	Text:     resp.Text,
	Language: resp.Language,
	Duration: resp.Duration,
	Segments: segments,
    }
}
