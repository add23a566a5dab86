package retrieval

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/medqa-ai/medqa/pkg/ai"
)

const vectorIndexFile = "vectors.gob"

// vectorIndexData 落盘格式：文档与预计算向量一一对应
type vectorIndexData struct {
	Documents []Document
	Vectors   [][]float32
}

// VectorStore 只读的本地稠密索引。向量在离线构建时写入，
// 运行期仅做一次查询向量化和暴力余弦相似度排序
type VectorStore struct {
	embedder ai.Embedder
	docs     []Document
	vectors  [][]float32
}

// LoadVectorStore 从索引目录加载，文件缺失直接失败，不做降级
func LoadVectorStore(indexDir string, embedder ai.Embedder) (*VectorStore, error) {
	path := filepath.Join(indexDir, vectorIndexFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load vector index %s: %w", path, err)
	}
	defer f.Close()

	var data vectorIndexData
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode vector index %s: %w", path, err)
	}
	if len(data.Documents) != len(data.Vectors) {
		return nil, fmt.Errorf("corrupt vector index %s: %d documents but %d vectors", path, len(data.Documents), len(data.Vectors))
	}

	for i := range data.Vectors {
		normalize(data.Vectors[i])
	}

	return &VectorStore{
		embedder: embedder,
		docs:     data.Documents,
		vectors:  data.Vectors,
	}, nil
}

// BuildVectorIndex 离线构建：向量化全部文档并写入索引目录
func BuildVectorIndex(ctx context.Context, indexDir string, docs []Document, embedder ai.Embedder) error {
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.Text)
	}

	vectors, err := embedder.Embedding(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embed corpus: expected %d vectors, got %d", len(docs), len(vectors))
	}

	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(indexDir, vectorIndexFile))
	if err != nil {
		return err
	}
	defer f.Close()

	return gob.NewEncoder(f).Encode(vectorIndexData{
		Documents: docs,
		Vectors:   vectors,
	})
}

// Search 按向量相似度返回最接近的 topK 篇文档
func (s *VectorStore) Search(ctx context.Context, query string, topK int) ([]Document, error) {
	if topK <= 0 || len(s.docs) == 0 {
		return nil, nil
	}

	embedded, err := s.embedder.Embedding(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embedded) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(embedded))
	}
	queryVec := embedded[0]
	normalize(queryVec)

	type scored struct {
		idx   int
		score float32
	}
	scores := make([]scored, len(s.vectors))
	for i, vec := range s.vectors {
		scores[i] = scored{idx: i, score: dot(queryVec, vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if topK > len(scores) {
		topK = len(scores)
	}
	out := make([]Document, 0, topK)
	for _, s2 := range scores[:topK] {
		out = append(out, s.docs[s2.idx])
	}
	return out, nil
}

func (s *VectorStore) Documents() []Document {
	return s.docs
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
