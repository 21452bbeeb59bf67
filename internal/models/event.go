package models

import "time"

// EventKind 事件类型
type EventKind string

const (
	KindMessage EventKind = "message" // 参与者发言
	KindVerdict EventKind = "verdict" // 最终裁决
	KindStatus  EventKind = "status"  // 心跳，不入日志
	KindTrace   EventKind = "trace"   // 诊断信息
	KindError   EventKind = "error"   // 服务端错误
)

// ParseEventKind 解析事件类型
func ParseEventKind(s string) (EventKind, bool) {
	switch k := EventKind(s); k {
	case KindMessage, KindVerdict, KindStatus, KindTrace, KindError:
		return k, true
	}
	return "", false
}

// SessionEvent 会话事件，创建后不可变
type SessionEvent struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"type"`
	Speaker    string    `json:"speaker"`
	Content    string    `json:"content"`
	Confidence *float64  `json:"confidence,omitempty"` // 服务端提供的置信度（可选）
	ReceivedAt time.Time `json:"receivedAt"`
}

// Sentiment 发言情绪标签
type Sentiment string

const (
	SentimentCritical   Sentiment = "critical"
	SentimentOptimistic Sentiment = "optimistic"
	SentimentNeutral    Sentiment = "neutral"
)

// TranscriptEntry 由 message 事件推导出的只读记录
type TranscriptEntry struct {
	Seq           int       `json:"seq"`        // 在记录中的位置（从1开始）
	EventIndex    int       `json:"eventIndex"` // 在事件日志中的位置
	ParticipantID string    `json:"participantId"`
	Round         int       `json:"round"`
	Text          string    `json:"text"`
	KeyPoints     []string  `json:"keyPoints"`
	Sentiment     Sentiment `json:"sentiment"`
}
