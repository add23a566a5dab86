package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medqa-ai/medqa/pkg/ai"
)

// OfflineRetriever 离线混合检索：同一份语料上的向量近邻 + BM25 词法排序。
// 索引加载只在构建时发生一次，语料或索引缺失直接报错，运行期不做降级
type OfflineRetriever struct {
	vector *VectorStore
	bm25   *BM25
}

func NewOfflineRetriever(indexDir, corpusPath string, embedder ai.Embedder) (*OfflineRetriever, error) {
	docs, err := LoadCorpus(corpusPath)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("corpus %s is empty", corpusPath)
	}

	vector, err := LoadVectorStore(indexDir, embedder)
	if err != nil {
		return nil, err
	}

	slog.Info("offline retriever ready",
		slog.Int("corpus_documents", len(docs)),
		slog.Int("indexed_documents", len(vector.Documents())))

	return &OfflineRetriever{
		vector: vector,
		bm25:   NewBM25(docs),
	}, nil
}

// Retrieve 向量命中在前、词法命中在后，按正文去重（保留首次出现）
func (r *OfflineRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error) {
	vectorDocs, err := r.vector.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	bm25Docs := r.bm25.Rank(query, topK)

	return MergeDedup(toSnippets(vectorDocs), toSnippets(bm25Docs)), nil
}

func toSnippets(docs []Document) []Snippet {
	out := make([]Snippet, 0, len(docs))
	for _, doc := range docs {
		out = append(out, Snippet{Text: doc.Text, Metadata: doc.Metadata})
	}
	return out
}
