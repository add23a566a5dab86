// Package answer 负责把模型自由文本变成符合固定 schema 的结构化回答：
// 文本修复、校验、带温度回退的重试，以及最终的可渲染输出。
package answer

import (
	"regexp"
	"strings"
)

var (
	trailingCommaObject = regexp.MustCompile(`,\s*}`)
	trailingCommaArray  = regexp.MustCompile(`,\s*]`)
)

// RepairJSONText 在每次解析前尝试修复常见格式问题：
//   - 去掉 ```json ... ``` 代码块标记
//   - 截取第一个 { 到最后一个 }
//   - 单引号替换成双引号（全局替换，字符串值里的撇号会被误伤，保留该已知局限）
//   - 删除结尾多余逗号
//
// 对同一文本重复调用结果不变。
func RepairJSONText(raw string) string {
	raw = strings.ReplaceAll(raw, "```json", "")
	raw = strings.ReplaceAll(raw, "```", "")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end >= start {
			raw = raw[start : end+1]
		}
	}

	raw = strings.ReplaceAll(raw, "'", `"`)
	raw = trailingCommaObject.ReplaceAllString(raw, "}")
	raw = trailingCommaArray.ReplaceAllString(raw, "]")
	return strings.TrimSpace(raw)
}
