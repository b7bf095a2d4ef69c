package translator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/z-wentao/scriptsync/pkg/models"
)

// OpenAITranslator 基于 Chat Completion 的逐条字幕翻译器
type OpenAITranslator struct {
	client *openai.Client
	model  string
	source string // 源语言英文名称，如 English
	target string // 目标语言英文名称，如 French
}

// NewOpenAITranslator 创建翻译器
// source/target 为 BCP-47 语言标签（如 "en"、"fr"）
func NewOpenAITranslator(client *openai.Client, model, source, target string) (*OpenAITranslator, error) {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}

	sourceName, err := LanguageName(source)
	if err != nil {
		return nil, fmt.Errorf("源语言无效: %w", err)
	}
	targetName, err := LanguageName(target)
	if err != nil {
		return nil, fmt.Errorf("目标语言无效: %w", err)
	}

	return &OpenAITranslator{
		client: client,
		model:  model,
		source: sourceName,
		target: targetName,
	}, nil
}

// LanguageName 将语言标签转换为英文名称，用于提示词
func LanguageName(tag string) (string, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return "", err
	}
	name := display.English.Languages().Name(t)
	if name == "" {
		return "", fmt.Errorf("未知语言: %s", tag)
	}
	return name, nil
}

// Target 目标语言名称
func (t *OpenAITranslator) Target() string {
	return t.target
}

// Translate 翻译一条字幕文本
// 返回模型输出的原始内容，不做校验也不重试
func (t *OpenAITranslator) Translate(ctx context.Context, text string) (string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("You are a helpful assistant that translates %s words to %s.", t.source, t.target),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(t.source, t.target, text),
			},
		},
	})
	if err != nil {
		return "", models.NewError(models.KindTranslationService, "chat completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", models.NewError(models.KindTranslationService, "chat completion", errors.New("OpenAI API 未返回结果"))
	}

	return resp.Choices[0].Message.Content, nil
}

// buildPrompt 构建提示词
func buildPrompt(source, target, text string) string {
	return fmt.Sprintf("Translate the following %s word to %s: '%s'. Only return the exact translation of %s. Nothing more",
		source, target, text, text)
}
