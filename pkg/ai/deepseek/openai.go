package deepseek

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"

	"github.com/medqa-ai/medqa/pkg/ai"
	"github.com/medqa-ai/medqa/pkg/types"
)

const (
	NAME = "DeepSeek"
)

// Driver 通过 openai 兼容接口访问 DeepSeek，同时承担问答与向量化
type Driver struct {
	client *openai.Client
	model  ai.ModelName
}

func New(token, proxy string, model ai.ModelName) *Driver {
	cfg := openai.DefaultConfig(token)
	if proxy != "" {
		cfg.BaseURL = proxy
	}

	if model.ChatModel == "" {
		model.ChatModel = "deepseek-chat"
	}
	if model.EmbeddingModel == "" {
		model.EmbeddingModel = string(openai.SmallEmbedding3)
	}

	return &Driver{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (s *Driver) Lang() string {
	return ai.MODEL_BASE_LANGUAGE_CN
}

func (s *Driver) Generate(ctx context.Context, messages []types.MessageContext, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.model.ChatModel,
		Temperature: temperature,
		Messages: lo.Map(messages, func(item types.MessageContext, _ int) openai.ChatCompletionMessage {
			return item.ToChatCompletionMessage()
		}),
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("Completion error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("Completion error: empty choices")
	}

	slog.Debug("Query", slog.String("driver", NAME), slog.String("model", s.model.ChatModel))

	return resp.Choices[0].Message.Content, nil
}

func (s *Driver) GenerateStream(ctx context.Context, messages []types.MessageContext, temperature float32) (ai.Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.model.ChatModel,
		Temperature: temperature,
		Stream:      true,
		Messages: lo.Map(messages, func(item types.MessageContext, _ int) openai.ChatCompletionMessage {
			return item.ToChatCompletionMessage()
		}),
	}

	resp, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Completion error: %w", err)
	}

	slog.Debug("Query", slog.String("driver", NAME), slog.Bool("stream", true))

	return ai.NewStream(resp), nil
}

// Embedding 分批向量化，批大小 6
func (s *Driver) Embedding(ctx context.Context, content []string) ([][]float32, error) {
	var (
		groups   [][]string
		result   [][]float32
		batchMax = 6
	)

	for i, v := range content {
		if i%batchMax == 0 {
			groups = append(groups, []string{})
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], v)
	}

	for _, v := range groups {
		resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(s.model.EmbeddingModel),
			Input: v,
		})
		if err != nil {
			return nil, fmt.Errorf("Error creating embedding: %w", err)
		}
		for _, d := range resp.Data {
			result = append(result, d.Embedding)
		}
	}

	return result, nil
}
