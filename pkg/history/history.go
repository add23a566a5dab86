// Package history 维护有界的多轮对话窗口。
// 窗口只保留最近的若干条记录（默认 3 轮 6 条），先进先出淘汰。
package history

import (
	"github.com/medqa-ai/medqa/pkg/types"
)

// DefaultMaxEntries 3 轮对话，每轮 user + assistant 两条
const DefaultMaxEntries = 6

type Window struct {
	max   int
	turns []types.DialogueTurn
}

func NewWindow(maxEntries int) *Window {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Window{max: maxEntries}
}

// Append 在一轮回答完整结束后写入，流式中间内容不允许入窗
func (w *Window) Append(turns ...types.DialogueTurn) {
	w.turns = append(w.turns, turns...)
	if len(w.turns) > w.max {
		w.turns = w.turns[len(w.turns)-w.max:]
	}
}

// Turns 返回窗口内容的副本，调用方可以安全持有
func (w *Window) Turns() []types.DialogueTurn {
	out := make([]types.DialogueTurn, len(w.turns))
	copy(out, w.turns)
	return out
}

func (w *Window) Len() int {
	return len(w.turns)
}

func (w *Window) Clear() {
	w.turns = nil
}
