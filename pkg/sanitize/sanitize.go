package sanitize

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// 注入关键片段：```、system:、assistant:、user:、<script>、@everyone 等
var injectionPattern = regexp.MustCompile("(?i)(?:```|system:|assistant:|user:|<script>|@everyone|@@)")

var whitespaceRuns = regexp.MustCompile(`\s{2,}`)

// DefaultSensitiveWords 内置敏感词，外部词表在此基础上做并集
var DefaultSensitiveWords = []string{"自杀", "暴力", "癌症", "色情", "血腥"}

const MaskToken = "***"

// 输出渲染时放行的结构化标签（折叠块及其标题）
var passthroughTags = map[string]string{
	"<details>":  "§details_open§",
	"</details>": "§details_close§",
	"<summary>":  "§summary_open§",
	"</summary>": "§summary_close§",
}

// 与 html.EscapeString 不同，不转义引号，与折叠块渲染保持一致
var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Policy 是一份不可变的清洗配置。通过 NewPolicy 构建后不应再修改
type Policy struct {
	words []string
}

func NewPolicy(extra ...string) Policy {
	return Policy{
		words: lo.Uniq(append(append([]string{}, DefaultSensitiveWords...), extra...)),
	}
}

// NewPolicyFromFile 从词表文件（每行一个词）加载额外敏感词，
// 文件不存在时仅使用内置词表。
func NewPolicyFromFile(path string) (Policy, error) {
	if path == "" {
		return NewPolicy(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewPolicy(), nil
		}
		return Policy{}, err
	}
	defer f.Close()

	var extra []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if word := strings.TrimSpace(scanner.Text()); word != "" {
			extra = append(extra, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return Policy{}, err
	}
	return NewPolicy(extra...), nil
}

func (p Policy) Words() []string {
	return append([]string{}, p.words...)
}

// Sanitizer 对用户输入和模型输出做纯文本清洗，不产生任何副作用，也不会失败
type Sanitizer struct {
	policy Policy
}

func New(policy Policy) *Sanitizer {
	return &Sanitizer{policy: policy}
}

// CleanInput 输入预处理：屏蔽敏感词 + 去除注入片段 + 简单 XSS 转义 + 压缩空白。
// 敏感词按子串替换，长词中的命中同样会被掩码，这是既定策略。
func (s *Sanitizer) CleanInput(text string) string {
	text = injectionPattern.ReplaceAllString(text, "")

	for _, word := range s.policy.words {
		text = strings.ReplaceAll(text, word, MaskToken)
	}

	text = htmlEscaper.Replace(text)

	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(text, " "))
}

// CleanOutput 后置清洗：去除注入片段，保留 <details>/<summary>，其余 HTML 转义
func (s *Sanitizer) CleanOutput(text string) string {
	cleaned := injectionPattern.ReplaceAllString(text, "")

	for tag, placeholder := range passthroughTags {
		cleaned = strings.ReplaceAll(cleaned, tag, placeholder)
	}

	cleaned = htmlEscaper.Replace(cleaned)

	for tag, placeholder := range passthroughTags {
		cleaned = strings.ReplaceAll(cleaned, placeholder, tag)
	}

	return cleaned
}
