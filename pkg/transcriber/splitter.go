package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/z-wentao/scriptsync/pkg/models"
)

// chunksDirSuffix 临时分片目录后缀，Cleanup 只删除带该后缀的目录
const chunksDirSuffix = "_chunks"

// AudioSplitter 音频提取与分片器
type AudioSplitter struct {
	segmentDuration int // 每个分片的时长（秒），默认 600 秒（10 分钟）
	ffmpeg          string
	ffprobe         string
}

// NewAudioSplitter 创建分片器
func NewAudioSplitter(segmentDuration int) *AudioSplitter {
	if segmentDuration <= 0 {
		segmentDuration = 600 // 默认 10 分钟
	}
	return &AudioSplitter{
		segmentDuration: segmentDuration,
		ffmpeg:          "ffmpeg",
		ffprobe:         "ffprobe",
	}
}

// ExtractAudio 从视频中提取音轨并转码为 MP3，返回音频文件路径
// ffmpeg -i video.mp4 -vn -acodec libmp3lame -ab 128k -y video.mp3
func (as *AudioSplitter) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	audioPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".mp3"

	cmd := exec.CommandContext(ctx, as.ffmpeg,
		"-i", videoPath,
		"-vn",                   // 禁用视频流
		"-acodec", "libmp3lame", // 转码为 MP3
		"-ab", "128k",           // 音频比特率 128kbps
		"-y",
		audioPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", models.NewError(models.KindMediaExtraction, "extract audio",
			fmt.Errorf("ffmpeg 执行失败: %v (stderr: %s)", err, lastLines(stderr.String(), 5)))
	}

	log.Printf("✓ 音轨已提取: %s", audioPath)
	return audioPath, nil
}

// Split 将音频文件切分成多个分片
func (as *AudioSplitter) Split(ctx context.Context, audioPath string) ([]models.Chunk, float64, error) {
	// 1. 获取音频时长
	duration, err := as.Duration(ctx, audioPath)
	if err != nil {
		return nil, 0, fmt.Errorf("获取音频时长失败: %w", err)
	}

	log.Printf("📊 音频时长: %.2f 秒 (%.2f 分钟)", duration, duration/60)

	if duration <= float64(as.segmentDuration) {
		// 不需要切分，直接返回原文件
		log.Printf("✓ 音频较短，无需切分，直接处理")
		return []models.Chunk{
			{
				Index:    0,
				FilePath: audioPath,
				Start:    0,
				End:      duration,
			},
		}, duration, nil
	}

	// 2. 计算需要切分的分片数
	chunkCount := chunkCountFor(duration, as.segmentDuration)
	log.Printf("✂️  音频将被切分为 %d 个分片 (每片 %d 秒)", chunkCount, as.segmentDuration)

	// 3. 创建临时目录存放分片
	// 每个音频独立目录，避免多个 Worker 同时处理时互相覆盖
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	chunksDir := filepath.Join(filepath.Dir(audioPath), base+chunksDirSuffix)
	if err := os.MkdirAll(chunksDir, 0755); err != nil {
		return nil, 0, fmt.Errorf("创建分片目录失败: %w", err)
	}

	// 4. 切分音频
	chunks := make([]models.Chunk, 0, chunkCount)
	for i := 0; i < chunkCount; i++ {
		start := float64(i * as.segmentDuration)
		end := start + float64(as.segmentDuration)
		if end > duration {
			end = duration
		}

		chunkPath := filepath.Join(chunksDir, fmt.Sprintf("chunk_%03d.mp3", i))

		log.Printf("  ✂️  正在切分分片 %d/%d: %.2f秒 -> %.2f秒", i+1, chunkCount, start, end)
		if err := as.extractChunk(ctx, audioPath, chunkPath, start, float64(as.segmentDuration)); err != nil {
			return nil, 0, fmt.Errorf("切分分片 %d 失败: %w", i, err)
		}

		chunks = append(chunks, models.Chunk{
			Index:    i,
			FilePath: chunkPath,
			Start:    start,
			End:      end,
		})
	}

	return chunks, duration, nil
}

// chunkCountFor 按分片时长向上取整
func chunkCountFor(duration float64, segmentDuration int) int {
	count := int(duration) / segmentDuration
	if float64(count*segmentDuration) < duration {
		count++
	}
	if count == 0 {
		count = 1
	}
	return count
}

// Duration 获取音频/视频文件时长（秒）
// ffprobe -v error -show_entries format=duration -of default=noprint_wrappers=1:nokey=1 input.mp3
func (as *AudioSplitter) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, as.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	// 捕获 stdout 和 stderr
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, models.NewError(models.KindMediaExtraction, "probe duration",
			fmt.Errorf("ffprobe 执行失败: %v (stderr: %s)", err, stderr.String()))
	}

	return parseDuration(stdout.String())
}

func parseDuration(out string) (float64, error) {
	durationStr := strings.TrimSpace(out)
	if durationStr == "" {
		return 0, models.NewError(models.KindMediaExtraction, "probe duration", fmt.Errorf("ffprobe 未返回时长信息"))
	}

	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, models.NewError(models.KindMediaExtraction, "probe duration",
			fmt.Errorf("解析时长失败: %v (output: %s)", err, durationStr))
	}

	return duration, nil
}

// extractChunk 从音频中截取一个分片（直接复制，不重新编码）
// ffmpeg -i input.mp3 -ss 0 -t 600 -acodec copy -y output.mp3
func (as *AudioSplitter) extractChunk(ctx context.Context, inputPath, outputPath string, startTime, duration float64) error {
	cmd := exec.CommandContext(ctx, as.ffmpeg,
		"-i", inputPath,
		"-ss", fmt.Sprintf("%.2f", startTime),
		"-t", fmt.Sprintf("%.2f", duration),
		"-acodec", "copy",
		"-y",
		outputPath,
	)

	// 捕获 stderr 以便调试
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return models.NewError(models.KindMediaExtraction, "split audio",
			fmt.Errorf("ffmpeg 执行失败: %v (stderr: %s)", err, lastLines(stderr.String(), 5)))
	}

	return nil
}

// Cleanup 清理临时分片文件
func (as *AudioSplitter) Cleanup(chunks []models.Chunk) error {
	if len(chunks) > 0 {
		chunksDir := filepath.Dir(chunks[0].FilePath)
		// 只删除临时创建的分片目录，不删除 uploads 等原始目录
		if strings.HasSuffix(filepath.Base(chunksDir), chunksDirSuffix) {
			log.Printf("🧹 清理临时分片目录: %s", chunksDir)
			return os.RemoveAll(chunksDir)
		}
	}
	return nil
}

// lastLines ffmpeg 的 stderr 很长，只保留最后几行
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
