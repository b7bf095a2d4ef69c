package models

import (
    "fmt"
    "time"
)

type JobStatus string

const (
    StatusPending    JobStatus = "pending"
    StatusProcessing JobStatus = "processing"
    StatusCompleted  JobStatus = "completed"
    StatusFailed     JobStatus = "failed"
)

// TranslationMode 字幕翻译模式
type TranslationMode string

const (
    // ModeOriginal 原文字幕：按源语言转录，文本原样输出
    ModeOriginal TranslationMode = "original"
    // ModeTranslate 翻译字幕：Whisper 翻译后逐条调用翻译器替换文本
    ModeTranslate TranslationMode = "translate"
)

// ParseTranslationMode 解析表单/命令行传入的模式，空字符串视为 original
func ParseTranslationMode(s string) (TranslationMode, error) {
    switch TranslationMode(s) {
    case "", ModeOriginal:
	return ModeOriginal, nil
    case ModeTranslate:
	return ModeTranslate, nil
    default:
	return "", fmt.Errorf("不支持的翻译模式: %q", s)
    }
}

type SubtitleJob struct {
    JobID        string          `json:"job_id"`
    Filename     string          `json:"filename"`
    VideoPath    string          `json:"video_path"`
    Mode         TranslationMode `json:"mode"`
    Status       JobStatus       `json:"status"`
    Progress     int             `json:"progress"`
    VTTPath      string          `json:"vtt_path"` // WebVTT 字幕文件路径（网页播放 + 下载）
    SRTPath      string          `json:"srt_path"` // SRT 字幕文件路径
    Language     string          `json:"language"`
    Duration     float64         `json:"duration"`
    SegmentCount int             `json:"segment_count"`
    Error        string          `json:"error"`
    CreatedAt    time.Time       `json:"created_at"`
    CompletedAt  time.Time       `json:"completed_at"`

    // RabbitMQ 相关（不序列化到 JSON）
    DeliveryTag      uint64 `json:"-"`
    RabbitMQDelivery any    `json:"-"`
}

// Segment 一条带时间戳的字幕片段（由转录结果产生，只读）
type Segment struct {
    ID    int     `json:"id"`
    Start float64 `json:"start"` // 开始时间（秒）
    End   float64 `json:"end"`   // 结束时间（秒）
    Text  string  `json:"text"`
}

// Chunk 音频分片
type Chunk struct {
    Index    int     `json:"index"`     // 分片序号
    FilePath string  `json:"file_path"` // 分片文件路径
    Start    float64 `json:"start"`     // 开始时间（秒）
    End      float64 `json:"end"`       // 结束时间（秒）
}
