package types

// DialogueTurn 会话中的一条记录。Formatted 仅在助手回复携带结构化卡片时存在
type DialogueTurn struct {
	Role      MessageUserRole `json:"role"`
	Content   string          `json:"content"`
	Formatted string          `json:"formatted,omitempty"`
}

func (t DialogueTurn) ToMessageContext() MessageContext {
	return MessageContext{
		Role:    t.Role,
		Content: t.Content,
	}
}

// FormattedResult 结构化回答的渲染结果，Raw 为空表示原文不可解析
type FormattedResult struct {
	Formatted string `json:"formatted"`
	Raw       string `json:"raw,omitempty"`
}
