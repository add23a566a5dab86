package answer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/medqa-ai/medqa/pkg/sanitize"
	"github.com/medqa-ai/medqa/pkg/types"
)

// Disclaimer 所有渲染结果都会附带的免责声明
const Disclaimer = "\n\n※ 本建议仅供参考，不能替代专业医疗诊断。如有紧急情况请立即就医。"

const noContentMessage = "⚠️ 模型未返回内容"

var riskColors = map[string]string{"低": "🟩", "中": "🟨", "高": "🟥"}

const defaultRiskIcon = "⬜️"

var (
	// 建议文本的分条边界：分号、换行、顿号，以及 "1." 式编号
	suggestionNumber    = regexp.MustCompile(`\d+\.([\s（【(])`)
	suggestionSeparator = regexp.MustCompile(`[;\n]|、`)
)

// Formatter 把结构化回答渲染成可展示的 Markdown 卡片，
// 渲染结果整体过一遍输出清洗
type Formatter struct {
	sanitizer *sanitize.Sanitizer
}

func NewFormatter(s *sanitize.Sanitizer) *Formatter {
	return &Formatter{sanitizer: s}
}

// Format 解析 JSON 并渲染；不可解析时退化为原文展示（Raw 置空），绝不报错
func (f *Formatter) Format(answer string) types.FormattedResult {
	if answer == "" {
		return types.FormattedResult{Formatted: noContentMessage + Disclaimer}
	}

	safe := RepairJSONText(answer)

	var data map[string]any
	if err := json.Unmarshal([]byte(safe), &data); err != nil {
		// 再截取一次花括号后重试，仍失败则原文退化展示
		start, end := strings.Index(safe, "{"), strings.LastIndex(safe, "}")
		if start < 0 || end <= start {
			return types.FormattedResult{Formatted: answer + Disclaimer}
		}
		snippet := strings.ReplaceAll(safe[start:end+1], "'", `"`)
		if err := json.Unmarshal([]byte(snippet), &data); err != nil {
			return types.FormattedResult{Formatted: answer + Disclaimer}
		}
	}

	risk := stringField(data, "risk_level", "未知")
	color, ok := riskColors[risk]
	if !ok {
		color = defaultRiskIcon
	}

	confidence := "?"
	if v, ok := data["confidence"]; ok {
		confidence = fmt.Sprintf("%v", v)
	}

	formatted := fmt.Sprintf(
		"🗣️ **直接回应**：%s\n\n"+
			"%s **风险等级**：%s（置信度 %s）\n\n"+
			"📝 **初步诊断**：%s\n\n"+
			"💡 **进一步建议**：\n%s\n\n"+
			"🏥 **就诊时限**：%s  |  **建议科室**：%s\n\n"+
			"💭 **可能原因**：\n%s",
		stringField(data, "direct_reply", ""),
		color, risk, confidence,
		stringField(data, "answer", ""),
		formatSuggestions(stringField(data, "suggestion", "")),
		stringField(data, "consult_urgency", ""),
		stringField(data, "recommended_department", ""),
		formatCauses(data["possible_causes"]),
	)

	return types.FormattedResult{
		Formatted: f.sanitizer.CleanOutput(formatted) + Disclaimer,
		Raw:       strings.TrimSpace(answer),
	}
}

// formatSuggestions 把整段建议拆成独立条目渲染
func formatSuggestions(suggestion string) string {
	normalized := suggestionNumber.ReplaceAllString(suggestion, "\n$1")
	var bullets []string
	for _, part := range suggestionSeparator.Split(normalized, -1) {
		if part = strings.TrimSpace(part); part != "" {
			bullets = append(bullets, "- "+part)
		}
	}
	if len(bullets) == 0 {
		return "- （暂无建议）"
	}
	return strings.Join(bullets, "\n")
}

// formatCauses 对象数组渲染为折叠块，字符串数组退化为逗号拼接，
// 空值或非数组给出占位文案
func formatCauses(causes any) string {
	list, ok := causes.([]any)
	if !ok || len(list) == 0 {
		return "（暂无可疑病因）"
	}

	if _, ok := list[0].(map[string]any); !ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	}

	var tree strings.Builder
	for _, item := range list {
		cause, ok := item.(map[string]any)
		if !ok {
			continue
		}
		tree.WriteString(fmt.Sprintf(
			"<details><summary>🔍 %s</summary>\n\n"+
				"- **怀疑理由**：%s\n"+
				"- **优先检查**：%s\n\n"+
				"</details>\n\n",
			stringField(cause, "name", ""),
			stringField(cause, "reason", "–"),
			stringField(cause, "test", "–"),
		))
	}
	return tree.String()
}

func stringField(data map[string]any, key, fallback string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// ExtractDirectReply 轻量提取 direct_reply 用于并排对比展示；
// 依次退化为 answer 前 60 字、原文前 60 字
func ExtractDirectReply(raw string) string {
	var data map[string]any
	if err := json.Unmarshal([]byte(RepairJSONText(raw)), &data); err != nil {
		return truncateRunes(raw, 60)
	}
	if s, ok := data["direct_reply"].(string); ok && s != "" {
		return s
	}
	ans, _ := data["answer"].(string)
	return truncateRunes(ans, 60)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
