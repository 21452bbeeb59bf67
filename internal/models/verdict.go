package models

import "strings"

// Decision 裁决结论
type Decision string

const (
	DecisionClear Decision = "CLEAR"
	DecisionWatch Decision = "WATCH"
	DecisionAlert Decision = "ALERT"
)

// DefaultConfidence 服务端未提供置信度时使用的固定值
const DefaultConfidence = 0.8

// ParseDecision 解析结论，大小写不敏感
func ParseDecision(s string) (Decision, bool) {
	switch d := Decision(strings.ToUpper(strings.TrimSpace(s))); d {
	case DecisionClear, DecisionWatch, DecisionAlert:
		return d, true
	}
	return "", false
}

// Verdict 结构化裁决
type Verdict struct {
	Decision       Decision `json:"decision"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	Recommendation string   `json:"recommendation"`
}
