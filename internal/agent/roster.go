package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/run-bigpig/tribunal/internal/models"

	"golang.org/x/text/cases"
)

// 名单校验错误
var (
	ErrEmptyRoster       = errors.New("roster has no participants")
	ErrDuplicateID       = errors.New("duplicate participant id")
	ErrInvalidStance     = errors.New("invalid participant stance")
	ErrMultipleJudges    = errors.New("roster has more than one adjudicating participant")
	ErrMissingIdentifier = errors.New("participant id is required")
)

// Roster 有序参与者名单，构建后只读，可被多个会话共享
type Roster struct {
	participants []models.Participant
	byKey        map[string]int // 折叠后的 ID / 名称 -> 下标
}

// NewRoster 校验并创建名单
func NewRoster(participants []models.Participant) (*Roster, error) {
	if len(participants) == 0 {
		return nil, ErrEmptyRoster
	}

	r := &Roster{
		participants: make([]models.Participant, len(participants)),
		byKey:        make(map[string]int, len(participants)*2),
	}
	copy(r.participants, participants)

	judges := 0
	for i, p := range r.participants {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("participant #%d: %w", i+1, ErrMissingIdentifier)
		}
		if !p.Stance.Valid() {
			return nil, fmt.Errorf("participant %s: %w: %q", p.ID, ErrInvalidStance, p.Stance)
		}
		if p.Stance == models.StanceAdjudicating {
			judges++
		}
		idKey := foldKey(p.ID)
		if _, dup := r.byKey[idKey]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		r.byKey[idKey] = i
	}
	if judges > 1 {
		return nil, ErrMultipleJudges
	}

	// 名称作为次要索引，不覆盖 ID
	for i, p := range r.participants {
		if p.Name == "" {
			continue
		}
		if _, taken := r.byKey[foldKey(p.Name)]; !taken {
			r.byKey[foldKey(p.Name)] = i
		}
	}
	return r, nil
}

// foldKey Caser 有状态，不能跨 goroutine 共享，每次新建
func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Participants 返回名单副本（保持顺序）
func (r *Roster) Participants() []models.Participant {
	out := make([]models.Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

// Len 参与者数量
func (r *Roster) Len() int {
	return len(r.participants)
}

// Resolve 按 ID 或显示名称查找参与者（大小写不敏感）
func (r *Roster) Resolve(speaker string) (models.Participant, bool) {
	if speaker == "" {
		return models.Participant{}, false
	}
	i, ok := r.byKey[foldKey(speaker)]
	if !ok {
		return models.Participant{}, false
	}
	return r.participants[i], true
}

// Rotation 参与正反方轮转的参与者
func (r *Roster) Rotation() []models.Participant {
	var result []models.Participant
	for _, p := range r.participants {
		if p.InRotation() {
			result = append(result, p)
		}
	}
	return result
}

// Adjudicator 裁决方（可能不存在）
func (r *Roster) Adjudicator() (models.Participant, bool) {
	for _, p := range r.participants {
		if !p.InRotation() {
			return p, true
		}
	}
	return models.Participant{}, false
}

// DisplayName 发言者显示名，未知发言者原样返回
func (r *Roster) DisplayName(speaker string) string {
	if p, ok := r.Resolve(speaker); ok && p.Name != "" {
		return p.Name
	}
	return speaker
}
