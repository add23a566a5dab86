package v1

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/medqa-ai/medqa/app/core"
	"github.com/medqa-ai/medqa/pkg/answer"
	"github.com/medqa-ai/medqa/pkg/errors"
	"github.com/medqa-ai/medqa/pkg/i18n"
	"github.com/medqa-ai/medqa/pkg/safe"
	"github.com/medqa-ai/medqa/pkg/types"
)

const (
	// DefaultTemperature 常规问答采样温度
	DefaultTemperature float32 = 0.7
	// CompareTemperatureHigh 温度对比实验的高温档
	CompareTemperatureHigh float32 = 1.2
)

type ChatLogic struct {
	ctx     context.Context
	core    *core.Core
	session *ChatSession
}

func NewChatLogic(ctx context.Context, core *core.Core) *ChatLogic {
	l := &ChatLogic{
		ctx:     ctx,
		core:    core,
		session: defaultSession,
	}

	return l
}

// StreamAndReplace 一次完整的问答交互。先把自然语言回复逐段写给 emit，
// 流结束后生成结构化卡片作为最终回复（对应前端用卡片替换流式草稿），
// 并把本轮问答写入会话窗口。结构化链路内部降级，这里只会因流式部分失败而报错
func (l *ChatLogic) StreamAndReplace(query string, temperature float32, emit func(delta string) error) (types.FormattedResult, error) {
	clean := l.core.Srv().Sanitizer().CleanInput(query)
	if clean == "" {
		return types.FormattedResult{}, errors.New("ChatLogic.StreamAndReplace.CleanInput", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}

	timer := l.core.Metrics().ChatResponseTimer()
	defer timer.ObserveDuration()

	l.session.mu.Lock()
	turns := l.session.window.Turns()
	l.session.mu.Unlock()

	stream, err := l.core.Generator().StreamNaturalReply(l.ctx, clean, turns, temperature)
	if err != nil {
		key := i18n.ERROR_MODEL_UNAVAILABLE
		if answer.IsRetrievalError(err) {
			key = i18n.ERROR_RETRIEVAL_UNAVAILABLE
		}
		return types.FormattedResult{}, errors.New("ChatLogic.StreamAndReplace.StreamNaturalReply", key, err)
	}
	defer stream.Close()

	// 结构化生成与流式输出并行，流放完后卡片通常已经就绪。
	// goroutine 内 panic 时保底为降级结果
	result := answer.Result{Outcome: answer.OutcomeProviderFailed, Raw: answer.FallbackJSON}
	structuredDone := make(chan struct{})
	go safe.Run(func() {
		defer close(structuredDone)
		result = l.core.Generator().GenerateStructured(l.ctx, clean, turns, temperature)
	})

	var natural strings.Builder
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return types.FormattedResult{}, errors.New("ChatLogic.StreamAndReplace.Recv", i18n.ERROR_MODEL_UNAVAILABLE, err)
		}
		if err := emit(delta); err != nil {
			return types.FormattedResult{}, errors.Trace("ChatLogic.StreamAndReplace.Emit", err)
		}
		natural.WriteString(delta)
	}

	<-structuredDone
	if result.Degraded() {
		l.core.Metrics().DegradedInc(degradeReason(result.Outcome))
	}

	formatted := l.core.Formatter().Format(result.Raw)

	// 历史里记录真实的流式自然语言回复，卡片只作为展示附件。
	// 结构化链路即使降级也不影响会话上下文
	l.session.mu.Lock()
	l.session.window.Append(
		types.DialogueTurn{Role: types.USER_ROLE_USER, Content: clean},
		types.DialogueTurn{
			Role:      types.USER_ROLE_ASSISTANT,
			Content:   strings.TrimSpace(natural.String()),
			Formatted: formatted.Formatted,
		},
	)
	l.session.mu.Unlock()

	return formatted, nil
}

// TemperatureComparison 同一问题在不同温度下的回答对照
type TemperatureComparison struct {
	Temperature float32 `json:"temperature"`
	DirectReply string  `json:"direct_reply"`
	Formatted   string  `json:"formatted"`
	Degraded    bool    `json:"degraded"`
}

// CompareTemperatures 用默认温度与高温档各生成一次结构化回答。
// 实验性入口，不写入会话历史
func (l *ChatLogic) CompareTemperatures(query string) ([]TemperatureComparison, error) {
	clean := l.core.Srv().Sanitizer().CleanInput(query)
	if clean == "" {
		return nil, errors.New("ChatLogic.CompareTemperatures.CleanInput", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}

	l.session.mu.Lock()
	turns := l.session.window.Turns()
	l.session.mu.Unlock()

	var comparisons []TemperatureComparison
	for _, temp := range []float32{DefaultTemperature, CompareTemperatureHigh} {
		result := l.core.Generator().GenerateStructured(l.ctx, clean, turns, temp)
		if result.Degraded() {
			l.core.Metrics().DegradedInc(degradeReason(result.Outcome))
		}
		formatted := l.core.Formatter().Format(result.Raw)
		comparisons = append(comparisons, TemperatureComparison{
			Temperature: temp,
			DirectReply: answer.ExtractDirectReply(result.Raw),
			Formatted:   formatted.Formatted,
			Degraded:    result.Degraded(),
		})
	}
	return comparisons, nil
}

func (l *ChatLogic) History() []types.DialogueTurn {
	l.session.mu.Lock()
	defer l.session.mu.Unlock()
	return l.session.window.Turns()
}

func (l *ChatLogic) ClearHistory() {
	l.session.mu.Lock()
	defer l.session.mu.Unlock()
	l.session.window.Clear()
}

func degradeReason(o answer.Outcome) string {
	switch o {
	case answer.OutcomeValidationExhausted:
		return "validation_exhausted"
	case answer.OutcomeProviderFailed:
		return "provider_failed"
	default:
		return "unknown"
	}
}
