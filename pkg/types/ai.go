package types

import (
	"github.com/sashabaranov/go-openai"
)

type MessageUserRole string

const (
	USER_ROLE_SYSTEM    MessageUserRole = "system"
	USER_ROLE_USER      MessageUserRole = "user"
	USER_ROLE_ASSISTANT MessageUserRole = "assistant"
)

func (r MessageUserRole) String() string {
	return string(r)
}

// MessageContext 模型请求消息，system prompt + 历史对话 + 当前提问
type MessageContext struct {
	Role    MessageUserRole `json:"role"`
	Content string          `json:"content"`
}

func (m MessageContext) ToChatCompletionMessage() openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role:    m.Role.String(),
		Content: m.Content,
	}
}
