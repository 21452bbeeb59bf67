// Package transport 负责与辩论服务之间的单条连接。
//
// 连接的生命周期以消息的形式投递到一个有界 channel 上：先是 EventOpened，
// 然后是若干 EventFrame，最后是 EventClosed 或 EventFailed 之一，随后 channel
// 被关闭。调用 Close 之后不会再投递任何事件。失败是终态，不自动重连。
package transport

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/run-bigpig/tribunal/internal/logger"
)

var log = logger.New("Transport")

// DefaultQueueSize 入站事件队列默认容量
const DefaultQueueSize = 256

// ErrEmptySubject 主题为空，调用方错误，不会尝试连接
var ErrEmptySubject = errors.New("subject key must not be empty")

// EventType 连接事件类型
type EventType int

const (
	EventOpened EventType = iota
	EventFrame
	EventClosed
	EventFailed
)

func (t EventType) String() string {
	switch t {
	case EventOpened:
		return "opened"
	case EventFrame:
		return "frame"
	case EventClosed:
		return "closed"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

// Event 连接事件
type Event struct {
	Type EventType
	Data []byte // 仅 EventFrame
	Err  error  // 仅 EventFailed
}

// Channel 单条连接的句柄
type Channel interface {
	// Events 按到达顺序投递事件，终态事件之后关闭
	Events() <-chan Event
	// Close 幂等，可重复调用
	Close() error
}

// Dialer 打开到指定主题的连接
type Dialer interface {
	// Open 立即返回句柄，连接在后台建立；ctx 只约束建立连接阶段
	Open(ctx context.Context, subjectKey string) (Channel, error)
}

// ValidateSubject 校验主题
func ValidateSubject(subjectKey string) error {
	if strings.TrimSpace(subjectKey) == "" {
		return ErrEmptySubject
	}
	return nil
}

// CloseQuietly 关闭句柄，允许 nil
func CloseQuietly(ch Channel) {
	if ch == nil {
		return
	}
	if err := ch.Close(); err != nil {
		log.Debug("close channel: %v", err)
	}
}

// pump 事件投递的公共部分
type pump struct {
	events  chan Event
	closing chan struct{}
	once    sync.Once
}

func newPump(size int) *pump {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &pump{
		events:  make(chan Event, size),
		closing: make(chan struct{}),
	}
}

func (p *pump) Events() <-chan Event {
	return p.events
}

// emit 投递事件，队列满时阻塞（不丢帧）；已请求关闭时返回 false
func (p *pump) emit(ev Event) bool {
	select {
	case <-p.closing:
		return false
	default:
	}
	select {
	case p.events <- ev:
		return true
	case <-p.closing:
		return false
	}
}

// requestClose 标记关闭，只有第一次调用返回 true
func (p *pump) requestClose() bool {
	first := false
	p.once.Do(func() {
		close(p.closing)
		first = true
	})
	return first
}

func (p *pump) isClosing() bool {
	select {
	case <-p.closing:
		return true
	default:
		return false
	}
}
