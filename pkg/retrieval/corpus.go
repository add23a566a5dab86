package retrieval

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ContextRecord contexts.json 中的一条问答知识
type ContextRecord struct {
	Ask        string `json:"ask"`
	Answer     string `json:"answer"`
	Department string `json:"department"`
	Title      string `json:"title"`
}

type contextFile struct {
	Contexts []ContextRecord `json:"contexts"`
}

// Document 离线语料中的一篇文档，向量索引与 BM25 共享同一份
type Document struct {
	Text     string
	Metadata map[string]string
}

func (r ContextRecord) ToDocument() Document {
	return Document{
		Text: fmt.Sprintf("示例问：%s\n示例答：%s", strings.TrimSpace(r.Ask), strings.TrimSpace(r.Answer)),
		Metadata: map[string]string{
			"department": strings.TrimSpace(r.Department),
			"title":      strings.TrimSpace(r.Title),
		},
	}
}

// LoadCorpus 读取知识语料，文件缺失视为启动前置条件不满足
func LoadCorpus(path string) ([]Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", path, err)
	}

	var file contextFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}

	docs := make([]Document, 0, len(file.Contexts))
	for _, record := range file.Contexts {
		docs = append(docs, record.ToDocument())
	}
	return docs, nil
}

// SaveCorpus 供离线构建任务写出 contexts.json
func SaveCorpus(path string, records []ContextRecord) error {
	raw, err := json.MarshalIndent(contextFile{Contexts: records}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
