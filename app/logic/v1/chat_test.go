package v1_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medqa-ai/medqa/app/core"
	v1 "github.com/medqa-ai/medqa/app/logic/v1"
	"github.com/medqa-ai/medqa/pkg/ai"
	"github.com/medqa-ai/medqa/pkg/errors"
	"github.com/medqa-ai/medqa/pkg/i18n"
	"github.com/medqa-ai/medqa/pkg/retrieval"
	"github.com/medqa-ai/medqa/pkg/types"
)

const validAnswerJSON = `{"direct_reply":"可能是普通感冒。","answer":"结合症状看大概率是病毒性感冒。","suggestion":"1. 多喝水 2. 注意休息","risk_level":"低","confidence":0.9,"consult_urgency":"无需立即就医","possible_causes":[],"recommended_department":"呼吸内科"}`

var streamDeltas = []string{"你好，", "建议多休息，", "注意补水。"}

type buildEmbedder struct{}

func (buildEmbedder) Embedding(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 0.5, 0}
	}
	return vecs, nil
}

// newLLMStub 模拟 OpenAI 兼容接口：embeddings、普通与流式 chat completions。
// structured 是非流式接口返回的回答内容
func newLLMStub(t *testing.T, structured string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input any `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		count := 1
		if arr, ok := req.Input.([]any); ok {
			count = len(arr)
		}
		data := make([]map[string]any, count)
		for i := 0; i < count; i++ {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{1, 0, 0}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	})

	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream bool `json:"stream"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if !req.Stream {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"id": "cmpl-1", "object": "chat.completion", "created": 1, "model": "deepseek-chat",
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": structured},
					"finish_reason": "stop",
				}},
				"usage": map[string]int{},
			})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range streamDeltas {
			chunk, _ := json.Marshal(map[string]any{
				"id": "cmpl-1", "object": "chat.completion.chunk", "created": 1, "model": "deepseek-chat",
				"choices": []map[string]any{{
					"index": 0,
					"delta": map[string]any{"content": delta},
				}},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	return httptest.NewServer(mux)
}

func newWebStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// resty 只对 JSON content type 做自动反序列化
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"webPages": map[string]any{
				"value": []map[string]any{
					{"name": "感冒防治指南", "url": "https://example.com/cold", "snippet": "多休息多饮水"},
				},
			},
		})
	}))
}

func setupTestCore(t *testing.T) *core.Core {
	return setupTestCoreWith(t, validAnswerJSON)
}

func buildTestIndex(t *testing.T) (indexDir, corpusPath string) {
	t.Helper()

	indexDir = t.TempDir()
	corpusPath = filepath.Join(indexDir, "contexts.json")
	require.NoError(t, retrieval.SaveCorpus(corpusPath, []retrieval.ContextRecord{
		{Ask: "感冒了怎么办", Answer: "多喝水多休息", Department: "呼吸内科", Title: "感冒"},
	}))

	docs, err := retrieval.LoadCorpus(corpusPath)
	require.NoError(t, err)
	require.NoError(t, retrieval.BuildVectorIndex(context.Background(), indexDir, docs, buildEmbedder{}))
	return indexDir, corpusPath
}

func setupTestCoreWith(t *testing.T, structured string) *core.Core {
	t.Helper()

	llm := newLLMStub(t, structured)
	t.Cleanup(llm.Close)
	web := newWebStub(t)
	t.Cleanup(web.Close)

	dir, corpusPath := buildTestIndex(t)

	cfg := core.CoreConfig{
		Addr: "127.0.0.1:0",
		AI: core.AIConfig{
			Token:    "test-token",
			Endpoint: llm.URL,
			Model:    ai.ModelName{ChatModel: "deepseek-chat"},
		},
		Retrieval: core.RetrievalConfig{
			CorpusPath:  corpusPath,
			IndexDir:    dir,
			WebEndpoint: web.URL,
			WebAPIKey:   "test-key",
		},
	}
	return core.MustSetupCore(cfg)
}

// 会话窗口是包级共享的，测试前后都清空，避免互相污染
func newTestLogic(t *testing.T, c *core.Core) *v1.ChatLogic {
	t.Helper()
	logic := v1.NewChatLogic(context.Background(), c)
	logic.ClearHistory()
	t.Cleanup(logic.ClearHistory)
	return logic
}

func TestStreamAndReplace(t *testing.T) {
	c := setupTestCore(t)
	logic := newTestLogic(t, c)

	var got []string
	formatted, err := logic.StreamAndReplace("咳嗽两天了怎么办", v1.DefaultTemperature, func(delta string) error {
		got = append(got, delta)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, streamDeltas, got)
	assert.Contains(t, formatted.Formatted, "可能是普通感冒。")
	assert.Contains(t, formatted.Formatted, "仅供参考")
	assert.NotEmpty(t, formatted.Raw)

	turns := logic.History()
	require.Len(t, turns, 2)
	assert.Equal(t, types.USER_ROLE_USER, turns[0].Role)
	assert.Equal(t, "咳嗽两天了怎么办", turns[0].Content)
	assert.Equal(t, types.USER_ROLE_ASSISTANT, turns[1].Role)
	// 助手历史保存的是完整的流式自然语言回复，不是结构化摘要
	assert.Equal(t, "你好，建议多休息，注意补水。", turns[1].Content)
	assert.NotEmpty(t, turns[1].Formatted)
}

func TestStreamAndReplaceDegradedKeepsStreamedReply(t *testing.T) {
	// 结构化接口永远返回非 JSON，三次重试后落到兜底卡片
	c := setupTestCoreWith(t, "这不是 JSON")
	logic := newTestLogic(t, c)

	var got []string
	formatted, err := logic.StreamAndReplace("咳嗽两天了怎么办", v1.DefaultTemperature, func(delta string) error {
		got = append(got, delta)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, streamDeltas, got)
	assert.Contains(t, formatted.Formatted, "抱歉，我暂时无法提供有效建议。")

	// 卡片降级不影响会话上下文，历史里仍是流式回复原文
	turns := logic.History()
	require.Len(t, turns, 2)
	assert.Equal(t, "你好，建议多休息，注意补水。", turns[1].Content)
}

func TestStreamAndReplaceRetrievalUnavailable(t *testing.T) {
	llm := newLLMStub(t, validAnswerJSON)
	t.Cleanup(llm.Close)

	dir, corpusPath := buildTestIndex(t)

	cfg := core.CoreConfig{
		Addr: "127.0.0.1:0",
		AI: core.AIConfig{
			Token:    "test-token",
			Endpoint: llm.URL,
			Model:    ai.ModelName{ChatModel: "deepseek-chat"},
		},
		Retrieval: core.RetrievalConfig{
			CorpusPath:  corpusPath,
			IndexDir:    dir,
			WebEndpoint: "http://127.0.0.1:1",
			WebAPIKey:   "test-key",
		},
	}
	logic := newTestLogic(t, core.MustSetupCore(cfg))

	_, err := logic.StreamAndReplace("咳嗽两天了怎么办", v1.DefaultTemperature, func(string) error { return nil })
	require.Error(t, err)

	ce, ok := err.(*errors.CustomizedError)
	require.True(t, ok)
	assert.Equal(t, i18n.ERROR_RETRIEVAL_UNAVAILABLE, ce.Message())

	// 失败的轮次不写历史
	assert.Empty(t, logic.History())
}

func TestStreamAndReplaceRejectsEmptyQuery(t *testing.T) {
	c := setupTestCore(t)
	logic := newTestLogic(t, c)

	_, err := logic.StreamAndReplace("   ", v1.DefaultTemperature, func(string) error { return nil })
	assert.Error(t, err)
}

func TestCompareTemperatures(t *testing.T) {
	c := setupTestCore(t)
	logic := newTestLogic(t, c)

	comparisons, err := logic.CompareTemperatures("最近总是失眠")
	require.NoError(t, err)
	require.Len(t, comparisons, 2)

	assert.Equal(t, v1.DefaultTemperature, comparisons[0].Temperature)
	assert.Equal(t, v1.CompareTemperatureHigh, comparisons[1].Temperature)
	for _, cmp := range comparisons {
		assert.False(t, cmp.Degraded)
		assert.Equal(t, "可能是普通感冒。", cmp.DirectReply)
		assert.NotEmpty(t, cmp.Formatted)
	}

	// 对照实验不写历史
	assert.Empty(t, logic.History())
}

func TestClearHistory(t *testing.T) {
	c := setupTestCore(t)
	logic := newTestLogic(t, c)

	_, err := logic.StreamAndReplace("头有点晕", v1.DefaultTemperature, func(string) error { return nil })
	require.NoError(t, err)
	require.NotEmpty(t, logic.History())

	logic.ClearHistory()
	assert.Empty(t, logic.History())
}

func TestSharedSessionWindow(t *testing.T) {
	c := setupTestCore(t)
	a := newTestLogic(t, c)

	_, err := a.StreamAndReplace("嗓子疼", v1.DefaultTemperature, func(string) error { return nil })
	require.NoError(t, err)

	// 单会话形态，任意入口看到同一个窗口
	b := v1.NewChatLogic(context.Background(), c)
	assert.Equal(t, a.History(), b.History())
}
