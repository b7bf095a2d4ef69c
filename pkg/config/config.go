package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/sashabaranov/go-openai"
)

// Config 应用配置
type Config struct {
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Subtitle    SubtitleConfig    `yaml:"subtitle"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Queue       QueueConfig       `yaml:"queue"`
	Storage     StorageConfig     `yaml:"storage"`
	Server      ServerConfig      `yaml:"server"`
}

// OpenAIConfig OpenAI 配置
type OpenAIConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`            // 为空使用官方地址
	TranscriptionModel string `yaml:"transcription_model"` // 默认 whisper-1
	ChatModel          string `yaml:"chat_model"`          // 默认 gpt-3.5-turbo
}

// SubtitleConfig 字幕配置
type SubtitleConfig struct {
	SourceLanguage       string `yaml:"source_language"`        // 原文模式下传给 Whisper 的语言提示
	TargetLanguage       string `yaml:"target_language"`        // 翻译模式下的目标语言
	TranslateConcurrency int    `yaml:"translate_concurrency"`  // 同时翻译的字幕条数，1 为顺序翻译
}

// TranscriberConfig 转换器配置
type TranscriberConfig struct {
	WorkerPoolSize  int           `yaml:"worker_pool_size"` // Worker 实例数量（同时处理多少个视频）
	WorkerCount     int           `yaml:"worker_count"`     // 每个音频文件的并发分片数
	SegmentDuration int           `yaml:"segment_duration"`
	MaxRetries      int           `yaml:"max_retries"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
}

// QueueConfig 队列配置
type QueueConfig struct {
	Type       string         `yaml:"type"`
	BufferSize int            `yaml:"buffer_size"`
	RabbitMQ   RabbitMQConfig `yaml:"rabbitmq"`
}

// RabbitMQConfig RabbitMQ 配置
type RabbitMQConfig struct {
	URL       string `yaml:"url"`
	QueueName string `yaml:"queue_name"`
}

// StorageConfig 任务存储配置
type StorageConfig struct {
	Type  string      `yaml:"type"` // memory | redis
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // 任务数据过期时间
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port          int    `yaml:"port"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
	UploadDir     string `yaml:"upload_dir"`
	Mode          string `yaml:"mode"` // gin 运行模式: debug | release | test
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	// 读取配置文件
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	return Parse(data)
}

// Parse 解析 YAML 配置并填充默认值
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 环境变量优先于配置文件中的密钥
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		config.OpenAI.APIKey = key
	}

	// 验证配置
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &config, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" || c.OpenAI.APIKey == "your-openai-api-key-here" {
		return fmt.Errorf("请在配置文件或 OPENAI_API_KEY 中设置有效的 OpenAI API Key")
	}

	if c.OpenAI.TranscriptionModel == "" {
		c.OpenAI.TranscriptionModel = openai.Whisper1
	}

	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = openai.GPT3Dot5Turbo
	}

	if c.Subtitle.SourceLanguage == "" {
		c.Subtitle.SourceLanguage = "en"
	}

	if c.Subtitle.TargetLanguage == "" {
		c.Subtitle.TargetLanguage = "fr"
	}

	if c.Subtitle.TranslateConcurrency <= 0 {
		c.Subtitle.TranslateConcurrency = 1
	}

	if c.Transcriber.WorkerPoolSize <= 0 {
		c.Transcriber.WorkerPoolSize = 2 // 默认 2 个 Worker 实例
	}

	if c.Transcriber.WorkerCount <= 0 {
		c.Transcriber.WorkerCount = 3
	}

	if c.Transcriber.SegmentDuration <= 0 {
		c.Transcriber.SegmentDuration = 600
	}

	if c.Transcriber.MaxRetries <= 0 {
		c.Transcriber.MaxRetries = 3
	}

	if c.Transcriber.JobTimeout <= 0 {
		c.Transcriber.JobTimeout = 30 * time.Minute
	}

	switch c.Queue.Type {
	case "":
		c.Queue.Type = "memory"
	case "memory":
	case "rabbitmq":
		if c.Queue.RabbitMQ.URL == "" {
			return fmt.Errorf("使用 RabbitMQ 队列时必须设置 queue.rabbitmq.url")
		}
		if c.Queue.RabbitMQ.QueueName == "" {
			c.Queue.RabbitMQ.QueueName = "scriptsync.jobs"
		}
	default:
		return fmt.Errorf("不支持的队列类型: %s", c.Queue.Type)
	}

	if c.Queue.BufferSize <= 0 {
		c.Queue.BufferSize = 100
	}

	switch c.Storage.Type {
	case "":
		c.Storage.Type = "memory"
	case "memory":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			c.Storage.Redis.Addr = "localhost:6379"
		}
		if c.Storage.Redis.TTL <= 0 {
			c.Storage.Redis.TTL = time.Hour
		}
	default:
		return fmt.Errorf("不支持的存储类型: %s", c.Storage.Type)
	}

	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}

	if c.Server.MaxUploadSize <= 0 {
		c.Server.MaxUploadSize = 200 * 1024 * 1024 // 200 MB
	}

	if c.Server.UploadDir == "" {
		c.Server.UploadDir = "uploads"
	}

	return nil
}

// ClientConfig 构造 go-openai 客户端配置
func (o OpenAIConfig) ClientConfig() openai.ClientConfig {
	cfg := openai.DefaultConfig(o.APIKey)
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
	return cfg
}

// NewClient 创建 OpenAI 客户端（Whisper 与 Chat 共用）
func (o OpenAIConfig) NewClient() *openai.Client {
	return openai.NewClientWithConfig(o.ClientConfig())
}
