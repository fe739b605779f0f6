package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/aiwuxian/sanguo-rpg/internal/models"
)

// Narrator 润色冒险结局文本
type Narrator interface {
	Narrate(ctx context.Context, actorName, story, ending string) (string, error)
}

const narratorSystemPrompt = "你是一位三国题材的说书人。根据玩家的冒险经过，用不超过150字的白话重述最终结局，" +
	"保持原结局的事实与收获不变，不要添加新的奖励或选项。"

// LLMService 基于 OpenAI 兼容接口的说书人
type LLMService struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

func NewLLMService(cfg models.LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("未配置 LLM API Key")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		config.BaseURL = cfg.APIBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &LLMService{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
	}, nil
}

// Narrate 调用模型重写结局
func (s *LLMService) Narrate(ctx context.Context, actorName, story, ending string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: narratorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("主公：%s\n\n经过：\n%s\n\n结局：\n%s", actorName, story, ending)},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("调用LLM失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM 没有返回内容")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("LLM 返回了空文本")
	}
	return text, nil
}
