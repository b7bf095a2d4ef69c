package subtitle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/z-wentao/scriptsync/pkg/models"
)

// Header VTT 文件必须以 "WEBVTT" 开头
const Header = "WEBVTT"

// Format 字幕文件格式
type Format string

const (
	FormatVTT Format = "vtt"
	FormatSRT Format = "srt"
)

// ParseFormat 解析格式参数，空字符串视为 vtt
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatVTT:
		return FormatVTT, nil
	case FormatSRT:
		return FormatSRT, nil
	default:
		return "", fmt.Errorf("不支持的字幕格式: %s", s)
	}
}

// Ext 文件扩展名
func (f Format) Ext() string {
	return "." + string(f)
}

// Translator 单条文本翻译器
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Assembler 字幕组装器
// 按输入顺序为每个 Segment 输出一个 cue 块，不重排、不丢弃
type Assembler struct {
	translator  Translator
	concurrency int
	format      Format
}

// Option 组装器选项
type Option func(*Assembler)

// WithConcurrency 翻译模式下同时进行的翻译请求数（默认 1，即逐条顺序翻译）
func WithConcurrency(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithFormat 输出格式（默认 VTT）
func WithFormat(f Format) Option {
	return func(a *Assembler) {
		a.format = f
	}
}

// NewAssembler 创建组装器，translator 仅在 ModeTranslate 下使用，可为 nil
func NewAssembler(translator Translator, opts ...Option) *Assembler {
	a := &Assembler{
		translator:  translator,
		concurrency: 1,
		format:      FormatVTT,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Format 返回输出格式
func (a *Assembler) Format() Format {
	return a.format
}

// Assemble 生成完整的字幕文档
// 任一片段翻译失败时整个文档失败，不返回部分结果
func (a *Assembler) Assemble(ctx context.Context, segments []models.Segment, mode models.TranslationMode) (string, error) {
	// 1. 先格式化全部时间戳（无网络开销，非法输入尽早失败）
	timings, err := a.timings(segments)
	if err != nil {
		return "", err
	}

	// 2. 解析每条字幕的显示文本
	texts, err := a.resolveTexts(ctx, segments, mode)
	if err != nil {
		return "", err
	}

	// 3. 拼接文档
	var builder strings.Builder
	if a.format == FormatVTT {
		builder.WriteString(Header + "\n\n")
	}
	for i, seg := range segments {
		fmt.Fprintf(&builder, "%d\n", seg.ID)
		builder.WriteString(timings[i] + "\n")
		builder.WriteString(texts[i] + "\n\n")
	}

	return builder.String(), nil
}

// Write 组装后一次性写入 w
func (a *Assembler) Write(ctx context.Context, w io.Writer, segments []models.Segment, mode models.TranslationMode) error {
	doc, err := a.Assemble(ctx, segments, mode)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, doc); err != nil {
		return fmt.Errorf("写入字幕失败: %w", err)
	}
	return nil
}

// WriteFile 组装并原子写入文件（临时文件 + rename），失败时不留下半成品
func (a *Assembler) WriteFile(ctx context.Context, outputPath string, segments []models.Segment, mode models.TranslationMode) error {
	doc, err := a.Assemble(ctx, segments, mode)
	if err != nil {
		return err
	}

	// 创建输出目录
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".subtitle-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(doc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("写入字幕文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("写入字幕文件失败: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("保存字幕文件失败: %w", err)
	}

	return nil
}

// Resolve 返回显示文本已确定的片段副本，不修改输入
// 同一份翻译结果需要输出多种格式时，先 Resolve 再以 ModeOriginal 组装
func (a *Assembler) Resolve(ctx context.Context, segments []models.Segment, mode models.TranslationMode) ([]models.Segment, error) {
	// 时间戳非法时不发起任何翻译请求
	if _, err := a.timings(segments); err != nil {
		return nil, err
	}
	texts, err := a.resolveTexts(ctx, segments, mode)
	if err != nil {
		return nil, err
	}
	resolved := make([]models.Segment, len(segments))
	copy(resolved, segments)
	for i := range resolved {
		resolved[i].Text = texts[i]
	}
	return resolved, nil
}

// timings 格式化每个片段的 "start --> end" 行
func (a *Assembler) timings(segments []models.Segment) ([]string, error) {
	timings := make([]string, len(segments))
	for i, seg := range segments {
		start, err := a.timestamp(seg.Start)
		if err != nil {
			return nil, fmt.Errorf("片段 %d 开始时间: %w", seg.ID, err)
		}
		end, err := a.timestamp(seg.End)
		if err != nil {
			return nil, fmt.Errorf("片段 %d 结束时间: %w", seg.ID, err)
		}
		timings[i] = start + " --> " + end
	}
	return timings, nil
}

func (a *Assembler) timestamp(seconds float64) (string, error) {
	if a.format == FormatSRT {
		return FormatSRTTimestamp(seconds)
	}
	return FormatTimestamp(seconds)
}

// resolveTexts 原文模式直接返回文本；翻译模式每个片段一个任务，结果按原顺序写回
func (a *Assembler) resolveTexts(ctx context.Context, segments []models.Segment, mode models.TranslationMode) ([]string, error) {
	texts := make([]string, len(segments))

	switch mode {
	case models.ModeOriginal:
		for i, seg := range segments {
			texts[i] = seg.Text
		}
		return texts, nil
	case models.ModeTranslate:
	default:
		return nil, fmt.Errorf("不支持的翻译模式: %q", mode)
	}

	if a.translator == nil {
		return nil, models.NewError(models.KindTranslationService, "translate", errors.New("未配置翻译器"))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, seg := range segments {
		g.Go(func() error {
			// 已有片段失败或调用方取消，不再发起新的翻译请求
			if err := gctx.Err(); err != nil {
				return err
			}

			translated, err := a.translator.Translate(gctx, seg.Text)
			if err != nil {
				if !errors.Is(err, models.ErrTranslationService) {
					err = models.NewError(models.KindTranslationService, "translate", err)
				}
				return fmt.Errorf("片段 %d 翻译失败: %w", seg.ID, err)
			}

			// 翻译结果原样使用，不做校验
			texts[i] = translated
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}
