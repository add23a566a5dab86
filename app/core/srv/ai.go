package srv

import (
	"github.com/medqa-ai/medqa/pkg/ai"
)

// AI 聚合对话与向量化能力，二者可以来自同一个驱动
type AI struct {
	chat     ai.Chat
	embedder ai.Embedder
}

func (a *AI) Chat() ai.Chat {
	return a.chat
}

func (a *AI) Embedder() ai.Embedder {
	return a.embedder
}

func (a *AI) Lang() string {
	if a.chat == nil {
		return ai.MODEL_BASE_LANGUAGE_CN
	}
	return a.chat.Lang()
}
