package ai

import (
	"context"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"

	"github.com/medqa-ai/medqa/pkg/types"
)

const MODEL_BASE_LANGUAGE_CN = "zh"

// 单次请求的 token 上限，超出后从最早的历史轮次开始裁剪
const msgTokenLimit = 8000

type ModelName struct {
	ChatModel      string `toml:"chat_model"`
	EmbeddingModel string `toml:"embedding_model"`
}

// Chat 模型会话能力。Generate 为阻塞式单次生成，
// GenerateStream 按 token 流式产出，调用方通过 Stream.Close 终止消费
type Chat interface {
	Generate(ctx context.Context, messages []types.MessageContext, temperature float32) (string, error)
	GenerateStream(ctx context.Context, messages []types.MessageContext, temperature float32) (Stream, error)
	Lang
}

type Embedder interface {
	Embedding(ctx context.Context, content []string) ([][]float32, error)
}

type Lang interface {
	Lang() string
}

// Stream 模型流式输出，Recv 在流结束时返回 io.EOF
type Stream interface {
	Recv() (string, error)
	Close() error
}

type chatCompletionStream struct {
	inner *openai.ChatCompletionStream
}

// NewStream 将 openai 流包装为只暴露增量文本的 Stream
func NewStream(inner *openai.ChatCompletionStream) Stream {
	return &chatCompletionStream{inner: inner}
}

func (s *chatCompletionStream) Recv() (string, error) {
	for {
		resp, err := s.inner.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *chatCompletionStream) Close() error {
	s.inner.Close()
	return nil
}

func NumTokens(messages []types.MessageContext) (int, error) {
	// deepseek 未收录于 tiktoken 的模型表，统一按 cl100k_base 估算
	tkm, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return 0, err
	}

	var numTokens int
	for _, message := range messages {
		numTokens += 3 // every message follows <|start|>{role}\n{content}<|end|>\n
		numTokens += len(tkm.Encode(message.Content, nil, nil))
		numTokens += len(tkm.Encode(message.Role.String(), nil, nil))
	}
	numTokens += 3
	return numTokens, nil
}

func MsgIsOverLimit(msgs []types.MessageContext) bool {
	tokenNum, err := NumTokens(msgs)
	if err != nil {
		return false
	}
	return tokenNum > msgTokenLimit
}

// FitMessages 在消息序列超出 token 上限时，从 system 之后最早的历史开始丢弃，
// 最终的用户提问始终保留
func FitMessages(msgs []types.MessageContext) []types.MessageContext {
	for MsgIsOverLimit(msgs) && len(msgs) > 2 {
		trimmed := make([]types.MessageContext, 0, len(msgs)-1)
		trimmed = append(trimmed, msgs[0])
		trimmed = append(trimmed, msgs[2:]...)
		msgs = trimmed
	}
	return msgs
}
