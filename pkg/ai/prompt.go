package ai

import (
	"strings"

	"github.com/samber/lo"

	"github.com/medqa-ai/medqa/pkg/types"
)

const (
	PROMPT_VAR_WEB_DOCS    = "${web_search_docs}"
	PROMPT_VAR_MANUAL_DOCS = "${manual_docs}"
)

// PROMPT_STRUCTURED_TPL_CN 结构化问答的 system prompt。
// 要求模型只输出 JSON，并给出 possible_causes 对象数组的完整示例
const PROMPT_STRUCTURED_TPL_CN = `你是一名专业医疗助理，正在与用户进行多轮对话。
请结合以下医学资料和历史对话认真回答用户问题。

【网页搜索信息】
${web_search_docs}

【权威手册信息】
${manual_docs}

请以以下 JSON 输出，不得添加 JSON 外文字：
{
  "direct_reply": "",
  "answer": "",
  "suggestion": "",
  "risk_level": "低 / 中 / 高",
  "confidence": 0.0,
  "consult_urgency": "立即就医 / 48h 内 / 观察即可",
  "possible_causes": ["..."],
  "recommended_department": "",
}
⚠️ possible_causes 和 references 必须是 **双引号** 包裹的 JSON 数组。

请将 possible_causes 字段扩展为对象数组，每个元素包含：
  • "name"：疾病名称
  • "reason"：为什么怀疑它（典型症状/流行病学）
  • "test"：首选排查方式(影像/实验室/体格)
示例：
"possible_causes": [
  {"name":"肺炎","reason":"低烧+咳嗽+湿啰音","test":"胸片"},
  {"name":"肺结核","reason":"低热盗汗体重减轻","test":"胸片/痰涂片"}
]
请确保返回内容严格为 JSON 格式，开头必须是 {，不得包含多余句子或标点。`

// PROMPT_NATURAL_TPL_CN 自然语言流式回答的 system prompt，
// 禁止任何 JSON 结构符号，避免打字机效果中途出现残缺 JSON
const PROMPT_NATURAL_TPL_CN = `你是一名专业医疗助理，正在进行多轮对话。
以下信息供参考（请勿直接引用原文）：
${web_search_docs}
${manual_docs}
请**仅用中文自然语言**回答，不要使用任何花括号、引号或 JSON 格式标记。`

func joinDocs(docs []string) string {
	return strings.Join(lo.Map(docs, func(doc string, _ int) string {
		return "- " + doc
	}), "\n")
}

func buildMessages(tpl, query string, histories []types.DialogueTurn, webDocs, manualDocs []string) []types.MessageContext {
	prompt := strings.ReplaceAll(tpl, PROMPT_VAR_WEB_DOCS, joinDocs(webDocs))
	prompt = strings.ReplaceAll(prompt, PROMPT_VAR_MANUAL_DOCS, joinDocs(manualDocs))

	messages := make([]types.MessageContext, 0, len(histories)+2)
	messages = append(messages, types.MessageContext{
		Role:    types.USER_ROLE_SYSTEM,
		Content: prompt,
	})
	for _, turn := range histories {
		messages = append(messages, turn.ToMessageContext())
	}
	messages = append(messages, types.MessageContext{
		Role:    types.USER_ROLE_USER,
		Content: query,
	})
	return FitMessages(messages)
}

// BuildStructuredMessages 组装结构化 JSON 问答的消息序列：
// system（含两类检索上下文）→ 有界历史 → 当前提问。不修改调用方的历史
func BuildStructuredMessages(query string, histories []types.DialogueTurn, webDocs, manualDocs []string) []types.MessageContext {
	return buildMessages(PROMPT_STRUCTURED_TPL_CN, query, histories, webDocs, manualDocs)
}

// BuildNaturalMessages 与 BuildStructuredMessages 相同的检索上下文，
// 但要求模型只用自然语言回复
func BuildNaturalMessages(query string, histories []types.DialogueTurn, webDocs, manualDocs []string) []types.MessageContext {
	return buildMessages(PROMPT_NATURAL_TPL_CN, query, histories, webDocs, manualDocs)
}
