package models

// Stance 参与者在辩论中的立场
type Stance string

const (
	StanceAdversarial  Stance = "adversarial"  // 质疑方
	StanceAdvocacy     Stance = "advocacy"     // 支持方
	StanceAdjudicating Stance = "adjudicating" // 裁决方，不参与轮转
)

// Valid 是否为已知立场
func (s Stance) Valid() bool {
	switch s {
	case StanceAdversarial, StanceAdvocacy, StanceAdjudicating:
		return true
	}
	return false
}

// Participant 辩论参与者（名单配置，会话期间不可变）
type Participant struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Role   string `json:"role" yaml:"role"`
	Glyph  string `json:"glyph" yaml:"glyph"`
	Stance Stance `json:"stance" yaml:"stance"`
}

// InRotation 是否参与正反方轮转
func (p Participant) InRotation() bool {
	return p.Stance != StanceAdjudicating
}

// SystemSpeaker 保留的系统发言者 ID
const SystemSpeaker = "system"
