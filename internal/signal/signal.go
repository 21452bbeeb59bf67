// Package signal 从发言文本中提取关键短语，并按立场给出情绪标签。
// 这是基于规则的启发式提取，结果确定且不会失败。
package signal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/run-bigpig/tribunal/internal/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MaxKeyPoints 每条发言最多保留的关键短语数
const MaxKeyPoints = 3

// DefaultPatterns 领域短语模式，按优先级排列
var DefaultPatterns = []string{
	`\bzero\s+records?\b`,
	`\bdata\s+absence\b`,
	`\bmissing\s+(?:pages?|data|fields?|records?)\b`,
	`\bstale\s+(?:data|records?|listings?)\b`,
	`\bno\s+recent\s+activity\b`,
	`\bsudden\s+(?:drop|spike|increase|decrease)\b`,
	`\banomal(?:y|ies|ous)\b`,
	`\binconsisten(?:t|cy|cies)\b`,
	`\bfalse\s+positives?\b`,
	`\bconsistent\s+(?:history|activity|records?)\b`,
	`\b(?:high|elevated|low)\s+risk\b`,
	`\bcompliance\s+(?:gaps?|issues?)\b`,
}

var spaceRe = regexp.MustCompile(`\s+`)

// Heuristic 基于正则的信号提取器
type Heuristic struct {
	patterns []*regexp.Regexp
	limit    int
}

// New 使用给定模式创建提取器，模式统一按大小写不敏感编译
func New(patterns []string, limit int) (*Heuristic, error) {
	if limit <= 0 {
		limit = MaxKeyPoints
	}
	h := &Heuristic{limit: limit}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		h.patterns = append(h.patterns, re)
	}
	return h, nil
}

// Default 默认提取器
func Default() *Heuristic {
	h, err := New(DefaultPatterns, MaxKeyPoints)
	if err != nil {
		panic(err)
	}
	return h
}

var defaultHeuristic = Default()

// KeyPoints 按模式顺序取每个模式的首个匹配，按规范化形式去重，最多 limit 条
func (h *Heuristic) KeyPoints(text string) []string {
	result := make([]string, 0, h.limit)
	if strings.TrimSpace(text) == "" {
		return result
	}
	seen := make(map[string]struct{}, h.limit)
	for _, re := range h.patterns {
		if len(result) >= h.limit {
			break
		}
		match := re.FindString(text)
		if match == "" {
			continue
		}
		key := Normalize(match)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, key)
	}
	return result
}

// Sentiment 立场到情绪的静态映射
func (h *Heuristic) Sentiment(stance models.Stance) models.Sentiment {
	return DeriveSentiment(stance)
}

// Normalize NFKC 规范化、合并空白并转小写
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return cases.Lower(language.Und).String(s)
}

// ExtractKeyPoints 使用默认模式提取关键短语
func ExtractKeyPoints(text string) []string {
	return defaultHeuristic.KeyPoints(text)
}

// DeriveSentiment 质疑方 -> critical，支持方 -> optimistic，其余 -> neutral
func DeriveSentiment(stance models.Stance) models.Sentiment {
	switch stance {
	case models.StanceAdversarial:
		return models.SentimentCritical
	case models.StanceAdvocacy:
		return models.SentimentOptimistic
	default:
		return models.SentimentNeutral
	}
}
