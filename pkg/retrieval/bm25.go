package retrieval

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// BM25 对同一份离线语料做词法排序检索。
// 中文按单字切分，拉丁字母与数字按连续串切分并统一小写
type BM25 struct {
	docs      []Document
	docTokens [][]string
	docFreq   map[string]int
	avgDocLen float64
}

func NewBM25(docs []Document) *BM25 {
	b := &BM25{
		docs:    docs,
		docFreq: make(map[string]int),
	}

	var totalLen int
	for _, doc := range docs {
		tokens := Tokenize(doc.Text)
		b.docTokens = append(b.docTokens, tokens)
		totalLen += len(tokens)

		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			b.docFreq[tok]++
		}
	}
	if len(docs) > 0 {
		b.avgDocLen = float64(totalLen) / float64(len(docs))
	}
	return b
}

// Rank 按词频重合度打分，返回得分为正的前 topK 篇文档
func (b *BM25) Rank(query string, topK int) []Document {
	if topK <= 0 || len(b.docs) == 0 {
		return nil
	}

	queryTokens := Tokenize(query)
	type scored struct {
		idx   int
		score float64
	}
	var hits []scored
	for i := range b.docs {
		if score := b.score(queryTokens, i); score > 0 {
			hits = append(hits, scored{idx: i, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	if topK > len(hits) {
		topK = len(hits)
	}
	out := make([]Document, 0, topK)
	for _, h := range hits[:topK] {
		out = append(out, b.docs[h.idx])
	}
	return out
}

func (b *BM25) score(queryTokens []string, docIdx int) float64 {
	tokens := b.docTokens[docIdx]
	termFreq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		termFreq[tok]++
	}

	docLen := float64(len(tokens))
	n := float64(len(b.docs))

	var score float64
	for _, tok := range queryTokens {
		tf := float64(termFreq[tok])
		if tf == 0 {
			continue
		}
		df := float64(b.docFreq[tok])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		score += idf * tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*docLen/b.avgDocLen))
	}
	return score
}

// Tokenize 汉字逐字成词，连续的字母数字串为一个词
func Tokenize(text string) []string {
	var (
		tokens []string
		word   strings.Builder
	)

	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, strings.ToLower(word.String()))
			word.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
