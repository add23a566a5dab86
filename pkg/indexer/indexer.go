package indexer

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/medqa-ai/medqa/pkg/ai"
	"github.com/medqa-ai/medqa/pkg/retrieval"
)

// MergeCSVDir 将目录下所有 CSV 问答文件合并写出为 contexts.json。
// 每个 CSV 的首行是表头，按列名取 ask/answer/department/title，多余列忽略。
func MergeCSVDir(csvDir, corpusPath string) (int, error) {
	entries, err := filepath.Glob(filepath.Join(csvDir, "*.csv"))
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("no csv files found in %s", csvDir)
	}
	sort.Strings(entries)

	var records []retrieval.ContextRecord
	for _, path := range entries {
		part, err := readCSV(path)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
		slog.Info("merged csv file", slog.String("file", filepath.Base(path)), slog.Int("records", len(part)))
		records = append(records, part...)
	}

	if err := retrieval.SaveCorpus(corpusPath, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func readCSV(path string) ([]retrieval.ContextRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[name] = i
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]retrieval.ContextRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, retrieval.ContextRecord{
			Ask:        field(row, "ask"),
			Answer:     field(row, "answer"),
			Department: field(row, "department"),
			Title:      field(row, "title"),
		})
	}
	return records, nil
}

// BuildIndex 读取 contexts.json 并构建向量索引文件
func BuildIndex(ctx context.Context, corpusPath, indexDir string, embedder ai.Embedder) (int, error) {
	docs, err := retrieval.LoadCorpus(corpusPath)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, fmt.Errorf("corpus %s is empty", corpusPath)
	}

	if err := retrieval.BuildVectorIndex(ctx, indexDir, docs, embedder); err != nil {
		return 0, err
	}
	return len(docs), nil
}
