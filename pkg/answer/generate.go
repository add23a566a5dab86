package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/medqa-ai/medqa/pkg/ai"
	"github.com/medqa-ai/medqa/pkg/retrieval"
	"github.com/medqa-ai/medqa/pkg/types"
)

const (
	maxAttempts      = 3
	temperatureStep  = 0.2
	temperatureFloor = 0.5

	// 结构化与自然语言两条路径各自的检索条数
	StructuredTopK = 50
	NaturalTopK    = 20
)

// FallbackJSON 重试耗尽或生成链路失败时的兜底结构化回答，
// 始终是合法 JSON，下游渲染无需特判
const FallbackJSON = `{"answer": "抱歉，我暂时无法提供有效建议。", "suggestion": "请尝试描述得更详细一些，或者稍后再试。", "risk_level": "未知", "possible_causes": [], "recommended_department": "无"}`

// ErrRetrievalUnavailable 标记检索链路的失败，
// 调用方据此与模型失败区分提示语
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

func IsRetrievalError(err error) bool {
	return errors.Is(err, ErrRetrievalUnavailable)
}

type Outcome int

const (
	// OutcomeOK 模型输出通过 schema 校验
	OutcomeOK Outcome = iota
	// OutcomeValidationExhausted 三次尝试均未通过校验，带回兜底 JSON
	OutcomeValidationExhausted
	// OutcomeProviderFailed 检索或模型调用失败，带回兜底 JSON
	OutcomeProviderFailed
)

// Result 结构化生成的显式结果。Raw 恒为合法 JSON；
// 降级时 Degraded() 为真，Reason 记录失败原因（校验耗尽时为 nil）
type Result struct {
	Outcome Outcome
	Raw     string
	Reason  error
}

func (r Result) Degraded() bool {
	return r.Outcome != OutcomeOK
}

// Generator 驱动 检索 → prompt → 模型 → 校验/重试 的完整生成链路
type Generator struct {
	chat    ai.Chat
	online  retrieval.Retriever
	offline retrieval.Retriever

	// 校验失败触发重试时回调，attempt 从 1 开始
	onRetry func(attempt int)
	// 每次适配器检索完成后回调，adapter 取 online/offline
	onRetrieval func(adapter string, cost time.Duration)
}

func NewGenerator(chat ai.Chat, online, offline retrieval.Retriever) *Generator {
	return &Generator{
		chat:    chat,
		online:  online,
		offline: offline,
	}
}

// WithRetryHook 注册重试观测回调
func (g *Generator) WithRetryHook(fn func(attempt int)) *Generator {
	g.onRetry = fn
	return g
}

// WithRetrievalHook 注册检索耗时观测回调
func (g *Generator) WithRetrievalHook(fn func(adapter string, cost time.Duration)) *Generator {
	g.onRetrieval = fn
	return g
}

// GenerateStructured 结构化问答入口。重试最多 3 次，每次失败后温度
// 下调 0.2、下限 0.5；检索与模型错误在此收口为兜底结果，不向外传播
func (g *Generator) GenerateStructured(ctx context.Context, query string, histories []types.DialogueTurn, temperature float32) Result {
	webDocs, manualDocs, err := g.retrieveContexts(ctx, query, StructuredTopK)
	if err != nil {
		slog.Error("structured generation degraded on retrieval", slog.String("error", err.Error()))
		return Result{Outcome: OutcomeProviderFailed, Raw: FallbackJSON, Reason: err}
	}

	messages := ai.BuildStructuredMessages(query, histories, webDocs, manualDocs)

	temp := temperature
	for attempt := 0; attempt < maxAttempts; attempt++ {
		raw, err := g.chat.Generate(ctx, messages, temp)
		if err != nil {
			slog.Error("structured generation degraded on model call",
				slog.Int("attempt", attempt), slog.String("error", err.Error()))
			return Result{Outcome: OutcomeProviderFailed, Raw: FallbackJSON, Reason: err}
		}

		slog.Debug("raw model output", slog.Int("attempt", attempt), slog.String("output", raw))

		if Validate(raw) {
			return Result{Outcome: OutcomeOK, Raw: raw}
		}

		if g.onRetry != nil {
			g.onRetry(attempt + 1)
		}

		temp = temp - temperatureStep
		if temp < temperatureFloor {
			temp = temperatureFloor
		}
	}

	slog.Warn("structured generation exhausted retries", slog.String("query", query))
	return Result{Outcome: OutcomeValidationExhausted, Raw: FallbackJSON}
}

// StreamNaturalReply 自然语言流式入口，检索上下文与结构化路径一致。
// 与 GenerateStructured 不同，这里的失败原样抛给调用方
func (g *Generator) StreamNaturalReply(ctx context.Context, query string, histories []types.DialogueTurn, temperature float32) (ai.Stream, error) {
	webDocs, manualDocs, err := g.retrieveContexts(ctx, query, NaturalTopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}

	messages := ai.BuildNaturalMessages(query, histories, webDocs, manualDocs)
	return g.chat.GenerateStream(ctx, messages, temperature)
}

// 两个适配器相互独立、顺序调用；两路上下文分开返回，prompt 中按来源分块
func (g *Generator) retrieveContexts(ctx context.Context, query string, topK int) (webDocs, manualDocs []string, err error) {
	webHits, err := g.timedRetrieve(ctx, "online", g.online, query, topK)
	if err != nil {
		return nil, nil, err
	}
	manualHits, err := g.timedRetrieve(ctx, "offline", g.offline, query, topK)
	if err != nil {
		return nil, nil, err
	}
	return retrieval.Texts(webHits), retrieval.Texts(manualHits), nil
}

func (g *Generator) timedRetrieve(ctx context.Context, adapter string, r retrieval.Retriever, query string, topK int) ([]retrieval.Snippet, error) {
	start := time.Now()
	hits, err := r.Retrieve(ctx, query, topK)
	if g.onRetrieval != nil {
		g.onRetrieval(adapter, time.Since(start))
	}
	return hits, err
}
