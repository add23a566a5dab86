package answer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medqa-ai/medqa/pkg/ai"
	"github.com/medqa-ai/medqa/pkg/retrieval"
	"github.com/medqa-ai/medqa/pkg/types"
)

type stubRetriever struct {
	snippets []retrieval.Snippet
	err      error
	calls    int
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, _ int) ([]retrieval.Snippet, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snippets, nil
}

// stubChat 按预置脚本依次返回响应，并记录每次调用的温度
type stubChat struct {
	responses    []string
	err          error
	temperatures []float32
	stream       ai.Stream
}

func (s *stubChat) Generate(_ context.Context, _ []types.MessageContext, temperature float32) (string, error) {
	s.temperatures = append(s.temperatures, temperature)
	if s.err != nil {
		return "", s.err
	}
	idx := len(s.temperatures) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

func (s *stubChat) GenerateStream(_ context.Context, _ []types.MessageContext, temperature float32) (ai.Stream, error) {
	s.temperatures = append(s.temperatures, temperature)
	if s.err != nil {
		return nil, s.err
	}
	return s.stream, nil
}

func (s *stubChat) Lang() string { return ai.MODEL_BASE_LANGUAGE_CN }

type sliceStream struct {
	chunks []string
	pos    int
}

func (s *sliceStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *sliceStream) Close() error { return nil }

func validRaw(t *testing.T) string {
	t.Helper()
	raw, err := json.Marshal(validAnswer())
	require.NoError(t, err)
	return string(raw)
}

func newTestGenerator(chat ai.Chat) (*Generator, *stubRetriever, *stubRetriever) {
	online := &stubRetriever{snippets: []retrieval.Snippet{{Text: "标题：x\n摘要：y"}}}
	offline := &stubRetriever{snippets: []retrieval.Snippet{{Text: "示例问：a\n示例答：b"}}}
	return NewGenerator(chat, online, offline), online, offline
}

func TestGenerateStructuredThirdAttemptSucceeds(t *testing.T) {
	ok := validRaw(t)
	chat := &stubChat{responses: []string{"这不是 JSON", "还不是 JSON", ok}}
	g, _, _ := newTestGenerator(chat)

	result := g.GenerateStructured(context.Background(), "低烧怎么办", nil, 0.7)

	assert.Equal(t, OutcomeOK, result.Outcome)
	assert.False(t, result.Degraded())
	assert.Equal(t, ok, result.Raw)

	require.Len(t, chat.temperatures, 3)
	assert.InDelta(t, 0.7, chat.temperatures[0], 1e-6)
	// 第三次调用温度应为 max(0.5, 0.7-0.4)
	assert.InDelta(t, 0.5, chat.temperatures[2], 1e-6)
}

func TestGenerateStructuredTemperatureDecay(t *testing.T) {
	chat := &stubChat{responses: []string{"bad", "bad", validRaw(t)}}
	g, _, _ := newTestGenerator(chat)

	g.GenerateStructured(context.Background(), "q", nil, 1.2)

	require.Len(t, chat.temperatures, 3)
	assert.InDelta(t, 1.2, chat.temperatures[0], 1e-6)
	assert.InDelta(t, 1.0, chat.temperatures[1], 1e-6)
	assert.InDelta(t, 0.8, chat.temperatures[2], 1e-6)
}

func TestGenerateStructuredExhaustsRetries(t *testing.T) {
	chat := &stubChat{responses: []string{"永远不是 JSON"}}
	g, _, _ := newTestGenerator(chat)

	result := g.GenerateStructured(context.Background(), "q", nil, 0.7)

	assert.Len(t, chat.temperatures, 3)
	assert.Equal(t, OutcomeValidationExhausted, result.Outcome)
	assert.True(t, result.Degraded())
	assert.Equal(t, FallbackJSON, result.Raw)
	assert.NoError(t, result.Reason)
}

func TestGenerateStructuredProviderFailure(t *testing.T) {
	providerErr := errors.New("connection refused")
	chat := &stubChat{err: providerErr}
	g, _, _ := newTestGenerator(chat)

	result := g.GenerateStructured(context.Background(), "q", nil, 0.7)

	assert.Equal(t, OutcomeProviderFailed, result.Outcome)
	assert.Equal(t, FallbackJSON, result.Raw)
	assert.ErrorIs(t, result.Reason, providerErr)
	// 失败后不再重试
	assert.Len(t, chat.temperatures, 1)
}

func TestGenerateStructuredRetrievalFailureDegrades(t *testing.T) {
	retrievalErr := errors.New("search unavailable")
	chat := &stubChat{responses: []string{validRaw(t)}}
	g := NewGenerator(chat, &stubRetriever{err: retrievalErr}, &stubRetriever{})

	result := g.GenerateStructured(context.Background(), "q", nil, 0.7)

	assert.Equal(t, OutcomeProviderFailed, result.Outcome)
	assert.Equal(t, FallbackJSON, result.Raw)
	assert.ErrorIs(t, result.Reason, retrievalErr)
	// 检索失败时不应触发模型调用
	assert.Empty(t, chat.temperatures)
}

func TestRetrievalHookObservesBothAdapters(t *testing.T) {
	chat := &stubChat{responses: []string{validRaw(t)}}
	g, _, _ := newTestGenerator(chat)

	var adapters []string
	g.WithRetrievalHook(func(adapter string, cost time.Duration) {
		adapters = append(adapters, adapter)
	})

	g.GenerateStructured(context.Background(), "q", nil, 0.7)
	assert.Equal(t, []string{"online", "offline"}, adapters)
}

func TestStreamNaturalReply(t *testing.T) {
	chat := &stubChat{stream: &sliceStream{chunks: []string{"多喝", "水"}}}
	g, online, offline := newTestGenerator(chat)

	stream, err := g.StreamNaturalReply(context.Background(), "低烧", nil, 0.7)
	require.NoError(t, err)

	var full string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		full += chunk
	}
	assert.Equal(t, "多喝水", full)
	assert.Equal(t, 1, online.calls)
	assert.Equal(t, 1, offline.calls)
}

func TestStreamNaturalReplyPropagatesFailure(t *testing.T) {
	t.Run("检索失败直接上抛", func(t *testing.T) {
		retrievalErr := errors.New("offline index gone")
		chat := &stubChat{stream: &sliceStream{}}
		g := NewGenerator(chat, &stubRetriever{}, &stubRetriever{err: retrievalErr})

		_, err := g.StreamNaturalReply(context.Background(), "q", nil, 0.7)
		assert.ErrorIs(t, err, retrievalErr)
		assert.True(t, IsRetrievalError(err))
	})

	t.Run("模型失败直接上抛", func(t *testing.T) {
		providerErr := errors.New("rate limited")
		chat := &stubChat{err: providerErr}
		g, _, _ := newTestGenerator(chat)

		_, err := g.StreamNaturalReply(context.Background(), "q", nil, 0.7)
		assert.ErrorIs(t, err, providerErr)
		assert.False(t, IsRetrievalError(err))
	})
}
