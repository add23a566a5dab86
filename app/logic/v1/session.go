package v1

import (
	"sync"

	"github.com/medqa-ai/medqa/pkg/history"
)

// ChatSession 对话窗口。服务是单会话形态，窗口被所有请求共享；
// Window 本身不做并发保护，由这里加锁
type ChatSession struct {
	mu     sync.Mutex
	window *history.Window
}

func newChatSession() *ChatSession {
	return &ChatSession{
		window: history.NewWindow(history.DefaultMaxEntries),
	}
}

var defaultSession = newChatSession()
