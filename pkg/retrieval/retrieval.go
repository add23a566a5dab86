// Package retrieval 为问答流程提供两类独立的检索适配器：
// 离线混合检索（向量 + 词法）与在线网页搜索。
package retrieval

import (
	"context"

	"github.com/samber/lo"
)

// Snippet 一条检索命中，Text 为送入 prompt 的内容，Metadata 标记来源
type Snippet struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Retriever 检索能力的统一接口，离线与在线实现各自独立
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error)
}

// MergeDedup 合并多路命中并按正文去重，保留首次出现的顺序
func MergeDedup(hits ...[]Snippet) []Snippet {
	return lo.UniqBy(lo.Flatten(hits), func(item Snippet) string {
		return item.Text
	})
}

// Texts 提取命中正文，供 prompt 组装使用
func Texts(snippets []Snippet) []string {
	return lo.Map(snippets, func(item Snippet, _ int) string {
		return item.Text
	})
}
