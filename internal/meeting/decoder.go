package meeting

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/run-bigpig/tribunal/internal/models"
)

// 解码失败原因
var (
	ErrMissingType = errors.New("frame has no type")
	ErrUnknownType = errors.New("frame has unknown type")
)

// DecodeError 无法解码的帧，会话记录后丢弃
type DecodeError struct {
	Reason string
	Raw    string // 原始帧（截断）
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode frame: %s: %v, raw: %s", e.Reason, e.Err, e.Raw)
	}
	return fmt.Sprintf("decode frame: %s, raw: %s", e.Reason, e.Raw)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// wireFrame 服务端推送的帧
type wireFrame struct {
	Type       *string  `json:"type"`
	Speaker    string   `json:"speaker"`
	Content    string   `json:"content"`
	Confidence *float64 `json:"confidence"`
}

// Decode 解码一帧，失败时返回 *DecodeError，不会 panic
func Decode(raw []byte) (models.SessionEvent, error) {
	return decodeAt(raw, time.Now())
}

func decodeAt(raw []byte, receivedAt time.Time) (models.SessionEvent, error) {
	var frame wireFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return models.SessionEvent{}, &DecodeError{Reason: "invalid json", Raw: truncateString(string(raw), 200), Err: err}
	}
	if frame.Type == nil || strings.TrimSpace(*frame.Type) == "" {
		return models.SessionEvent{}, &DecodeError{Reason: "missing type", Raw: truncateString(string(raw), 200), Err: ErrMissingType}
	}
	kind, ok := models.ParseEventKind(strings.ToLower(strings.TrimSpace(*frame.Type)))
	if !ok {
		return models.SessionEvent{}, &DecodeError{
			Reason: fmt.Sprintf("type %q", *frame.Type),
			Raw:    truncateString(string(raw), 200),
			Err:    ErrUnknownType,
		}
	}

	return models.SessionEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		Speaker:    strings.TrimSpace(frame.Speaker),
		Content:    frame.Content,
		Confidence: frame.Confidence,
		ReceivedAt: receivedAt,
	}, nil
}

// truncateString 截断字符串用于日志输出
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
