package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/z-wentao/scriptsync/pkg/config"
	"github.com/z-wentao/scriptsync/pkg/models"
	"github.com/z-wentao/scriptsync/pkg/subtitle"
	"github.com/z-wentao/scriptsync/pkg/transcriber"
	"github.com/z-wentao/scriptsync/pkg/translator"
)

type convertOptions struct {
	input     string
	output    string
	format    string
	translate bool
}

func newConvertCommand(configPath *string) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "读取 Whisper verbose_json 响应并生成字幕文件",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := subtitle.ParseFormat(opts.format)
			if err != nil {
				return err
			}

			segments, err := readSegments(opts.input)
			if err != nil {
				return err
			}

			mode := models.ModeOriginal
			var tr subtitle.Translator
			concurrency := 1
			if opts.translate {
				cfg, err := config.LoadConfig(*configPath)
				if err != nil {
					return fmt.Errorf("加载配置失败: %w", err)
				}
				// 输入为 Whisper 翻译结果（英文），逐条翻译为目标语言
				t, err := translator.NewOpenAITranslator(cfg.OpenAI.NewClient(), cfg.OpenAI.ChatModel, "en", cfg.Subtitle.TargetLanguage)
				if err != nil {
					return err
				}
				tr = t
				mode = models.ModeTranslate
				concurrency = cfg.Subtitle.TranslateConcurrency
			}

			assembler := subtitle.NewAssembler(tr, subtitle.WithFormat(format), subtitle.WithConcurrency(concurrency))
			if opts.output == "" {
				return assembler.Write(cmd.Context(), cmd.OutOrStdout(), segments, mode)
			}
			if err := assembler.WriteFile(cmd.Context(), opts.output, segments, mode); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ 已生成 %s (%d 条字幕)\n", opts.output, len(segments))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "Whisper verbose_json 文件，- 表示标准输入")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "输出文件，为空时写到标准输出")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "vtt", "输出格式: vtt | srt")
	cmd.Flags().BoolVar(&opts.translate, "translate", false, "逐条翻译为配置中的目标语言")

	return cmd
}

// readSegments 解析 verbose_json，按出现顺序合并并从 1 重新编号
func readSegments(path string) ([]models.Segment, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("打开输入文件失败: %w", err)
		}
		defer f.Close()
		r = f
	}

	var resp openai.AudioResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("解析 verbose_json 失败: %w", err)
	}

	whole := []models.Chunk{{Index: 0, FilePath: path}}
	results := map[int]*transcriber.WhisperResponse{0: transcriber.ConvertResponse(resp)}
	return transcriber.MergeSegments(whole, results), nil
}
