// Package verdict 从裁决文本中提取结构化结论。
//
// 文本格式是尽力而为的关键字锚定语法（大小写不敏感）：
//
//	Verdict: ALERT
//	Reasoning: ...
//	Recommendation: ...
//
// 缺少标记时使用默认值，任何输入都会得到完整的 Verdict。
package verdict

import (
	"regexp"
	"strconv"

	"github.com/run-bigpig/tribunal/internal/models"
	"github.com/run-bigpig/tribunal/internal/textclean"
)

var (
	decisionRe       = regexp.MustCompile(`(?i)verdict:\s*(\w+)`)
	reasoningRe      = regexp.MustCompile(`(?i)reasoning:`)
	recommendationRe = regexp.MustCompile(`(?i)recommendation:`)
	confidenceRe     = regexp.MustCompile(`(?i)confidence:\s*(\d+(?:\.\d+)?)\s*(%)?`)
)

// Parser 裁决解析器
type Parser struct {
	// DefaultConfidence 文本未给出置信度时使用
	DefaultConfidence float64
}

// NewParser 使用默认置信度创建解析器
func NewParser() *Parser {
	return &Parser{DefaultConfidence: models.DefaultConfidence}
}

// Parse 使用默认解析器解析
func Parse(text string) models.Verdict {
	return NewParser().Parse(text)
}

// Parse 解析裁决文本，从不失败
func (p *Parser) Parse(text string) models.Verdict {
	cleaned := textclean.Clean(text)

	v := models.Verdict{
		Decision:   models.DecisionWatch,
		Confidence: p.DefaultConfidence,
	}

	if m := decisionRe.FindStringSubmatch(cleaned); m != nil {
		if d, ok := models.ParseDecision(m[1]); ok {
			v.Decision = d
		}
	}

	recLoc := recommendationRe.FindStringIndex(cleaned)
	if loc := reasoningRe.FindStringIndex(cleaned); loc != nil {
		rest := cleaned[loc[1]:]
		if next := recommendationRe.FindStringIndex(rest); next != nil {
			rest = rest[:next[0]]
		}
		v.Reasoning = textclean.Clean(rest)
	} else {
		v.Reasoning = cleaned
	}

	if recLoc != nil {
		v.Recommendation = textclean.Clean(cleaned[recLoc[1]:])
	}

	if c, ok := parseConfidence(cleaned); ok {
		v.Confidence = c
	}
	return v
}

// parseConfidence 解析可选的 "Confidence: 0.9" 或 "Confidence: 90%"
func parseConfidence(text string) (float64, bool) {
	m := confidenceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if m[2] == "%" {
		f /= 100
	}
	return f, ValidConfidence(f)
}

// ValidConfidence 置信度是否在 [0,1] 区间
func ValidConfidence(f float64) bool {
	return f >= 0 && f <= 1
}
