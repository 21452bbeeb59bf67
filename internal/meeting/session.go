package meeting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/run-bigpig/tribunal/internal/agent"
	"github.com/run-bigpig/tribunal/internal/archive"
	"github.com/run-bigpig/tribunal/internal/logger"
	"github.com/run-bigpig/tribunal/internal/models"
	"github.com/run-bigpig/tribunal/internal/signal"
	"github.com/run-bigpig/tribunal/internal/transport"
	"github.com/run-bigpig/tribunal/internal/verdict"
)

// 日志实例
var log = logger.New("Meeting")

// 错误定义
var (
	ErrNotConcluded = errors.New("session has not concluded")
	ErrNoSession    = errors.New("no session for subject")
	ErrNoRoster     = errors.New("session requires a roster")
	ErrNoDialer     = errors.New("session requires a dialer")
)

// State 会话状态
type State string

const (
	StateIdle       State = "idle"
	StateInProgress State = "in-progress"
	StateConcluded  State = "concluded"
)

// phase 连接阶段
type phase int

const (
	phaseNone   phase = iota // 未启动
	phaseActive              // 连接中或已连接
	phaseClosed              // 连接已关闭或失败
)

// stateOf 状态只由连接阶段和是否收到裁决决定
func stateOf(p phase, hasVerdict, concludeOnVerdict bool) State {
	switch p {
	case phaseActive:
		if concludeOnVerdict && hasVerdict {
			return StateConcluded
		}
		return StateInProgress
	case phaseClosed:
		return StateConcluded
	}
	return StateIdle
}

// Snapshot 会话当前的完整视图
type Snapshot struct {
	SessionID    string                   `json:"sessionId"`
	Subject      string                   `json:"subject"`
	State        State                    `json:"state"`
	Transcript   []models.TranscriptEntry `json:"transcript"`
	Verdict      *models.Verdict          `json:"verdict,omitempty"`
	EventCount   int                      `json:"eventCount"`
	Roster       []models.Participant     `json:"roster"`
	StartedAt    time.Time                `json:"startedAt"`
	LastActivity time.Time                `json:"lastActivity"`
	Failure      string                   `json:"failure,omitempty"` // 连接失败原因
}

// UpdateCallback 会话状态变化回调
type UpdateCallback func(snap Snapshot)

// Option 会话选项
type Option func(*options)

type options struct {
	onUpdate          UpdateCallback
	concludeOnVerdict bool
	parser            VerdictParser
	signals           SignalExtractor
	now               func() time.Time
}

// WithUpdateCallback 每次状态变化后以最新快照回调，回调中的 panic 会被捕获
func WithUpdateCallback(cb UpdateCallback) Option {
	return func(o *options) { o.onUpdate = cb }
}

// WithConcludeOnVerdict 收到裁决即视为结束，不再等待连接关闭
func WithConcludeOnVerdict(enabled bool) Option {
	return func(o *options) { o.concludeOnVerdict = enabled }
}

// WithVerdictParser 替换裁决解析器
func WithVerdictParser(p VerdictParser) Option {
	return func(o *options) {
		if p != nil {
			o.parser = p
		}
	}
}

// WithSignalExtractor 替换要点提取器
func WithSignalExtractor(s SignalExtractor) Option {
	return func(o *options) {
		if s != nil {
			o.signals = s
		}
	}
}

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// connection 一次 Start 对应的连接
type connection struct {
	gen  uint64
	ch   transport.Channel
	quit chan struct{}
	done chan struct{}
}

// Session 单个主题的辩论会话，独占自己的连接和事件日志
type Session struct {
	roster *agent.Roster
	dialer transport.Dialer
	opts   options

	mu           sync.RWMutex
	id           string
	subject      string
	phase        phase
	events       []models.SessionEvent
	conn         *connection
	gen          uint64
	done         chan struct{}
	startedAt    time.Time
	lastActivity time.Time
	failure      error
}

// NewSession 创建会话（初始为 idle）
func NewSession(roster *agent.Roster, dialer transport.Dialer, opts ...Option) (*Session, error) {
	if roster == nil {
		return nil, ErrNoRoster
	}
	if dialer == nil {
		return nil, ErrNoDialer
	}
	o := options{
		parser:  verdict.NewParser(),
		signals: signal.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	done := make(chan struct{})
	close(done)
	return &Session{
		roster: roster,
		dialer: dialer,
		opts:   o,
		done:   done,
	}, nil
}

// Start 为主题打开连接；已有连接时先关闭（重启），事件日志清空
func (s *Session) Start(ctx context.Context, subjectKey string) error {
	if err := transport.ValidateSubject(subjectKey); err != nil {
		return err
	}

	s.mu.Lock()
	s.teardownLocked()
	s.gen++
	gen := s.gen

	ch, err := s.dialer.Open(ctx, subjectKey)
	if err != nil {
		s.resetLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return fmt.Errorf("open session %s: %w", subjectKey, err)
	}

	now := s.opts.now()
	c := &connection{gen: gen, ch: ch, quit: make(chan struct{}), done: make(chan struct{})}
	s.conn = c
	s.done = c.done
	s.id = uuid.NewString()
	s.subject = subjectKey
	s.phase = phaseActive
	s.events = nil
	s.failure = nil
	s.startedAt = now
	s.lastActivity = now
	snap := s.snapshotLocked()
	s.mu.Unlock()

	log.Info("session %s started: subject=%s gen=%d", snap.SessionID, subjectKey, gen)
	s.notify(snap)
	go s.consume(c)
	return nil
}

// Stop 任意状态回到 idle：关闭连接并清空日志
func (s *Session) Stop() {
	s.mu.Lock()
	wasIdle := s.phase == phaseNone && s.conn == nil
	s.teardownLocked()
	s.resetLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if !wasIdle {
		log.Info("session stopped")
		s.notify(snap)
	}
}

// teardownLocked 关闭当前连接，之后到达的事件都会被丢弃
func (s *Session) teardownLocked() {
	if s.conn == nil {
		return
	}
	close(s.conn.quit)
	transport.CloseQuietly(s.conn.ch)
	s.conn = nil
}

func (s *Session) resetLocked() {
	s.id = ""
	s.subject = ""
	s.phase = phaseNone
	s.events = nil
	s.failure = nil
	s.startedAt = time.Time{}
	s.lastActivity = time.Time{}
}

// consume 单消费者按到达顺序处理连接事件
func (s *Session) consume(c *connection) {
	defer close(c.done)
	events := c.ch.Events()
	for {
		select {
		case <-c.quit:
			return
		case ev, ok := <-events:
			if !ok {
				// 未收到终态事件就结束，按关闭处理
				s.handle(c, transport.Event{Type: transport.EventClosed})
				return
			}
			if !s.handle(c, ev) {
				return
			}
		}
	}
}

// handle 处理一个连接事件，连接已被替换时返回 false
func (s *Session) handle(c *connection, ev transport.Event) bool {
	s.mu.Lock()
	if s.conn != c {
		s.mu.Unlock()
		log.Debug("drop %s event from stale connection gen=%d", ev.Type, c.gen)
		return false
	}

	changed := false
	switch ev.Type {
	case transport.EventOpened:
		log.Info("connection open: subject=%s", s.subject)
	case transport.EventFrame:
		now := s.opts.now()
		s.lastActivity = now
		event, err := decodeAt(ev.Data, now)
		if err != nil {
			log.Warn("discard malformed frame: %v", err)
			break
		}
		if event.Kind == models.KindStatus {
			break
		}
		s.events = append(s.events, event)
		changed = true
	case transport.EventClosed, transport.EventFailed:
		if s.phase == phaseClosed {
			break
		}
		s.phase = phaseClosed
		if ev.Type == transport.EventFailed {
			s.failure = ev.Err
			log.Warn("connection failed: subject=%s err=%v", s.subject, ev.Err)
		} else {
			log.Info("connection closed: subject=%s events=%d", s.subject, len(s.events))
		}
		changed = true
	}

	var snap Snapshot
	if changed {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if changed {
		s.notify(snap)
	}
	return true
}

// notify 回调在锁外执行
func (s *Session) notify(snap Snapshot) {
	if s.opts.onUpdate == nil {
		return
	}
	safeCall(func() { s.opts.onUpdate(snap) })
}

// safeCall 安全调用，捕获 panic 避免崩溃
func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic recovered in update callback: %v", r)
		}
	}()
	fn()
}

func (s *Session) verdictLocked() (models.Verdict, bool) {
	return LatestVerdict(s.events, s.opts.parser)
}

func (s *Session) stateLocked() State {
	_, hasVerdict := s.verdictLocked()
	return stateOf(s.phase, hasVerdict, s.opts.concludeOnVerdict)
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:    s.id,
		Subject:      s.subject,
		Transcript:   AssembleTranscript(s.events, s.roster, s.opts.signals),
		EventCount:   len(s.events),
		Roster:       s.roster.Participants(),
		StartedAt:    s.startedAt,
		LastActivity: s.lastActivity,
	}
	v, ok := s.verdictLocked()
	if ok {
		snap.Verdict = &v
	}
	snap.State = stateOf(s.phase, ok, s.opts.concludeOnVerdict)
	if s.failure != nil {
		snap.Failure = s.failure.Error()
	}
	return snap
}

// Snapshot 当前视图，只读
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// State 当前状态
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Subject 当前主题，idle 时为空
func (s *Session) Subject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subject
}

// Events 事件日志副本
func (s *Session) Events() []models.SessionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SessionEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Transcript 当前发言记录
func (s *Session) Transcript() []models.TranscriptEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AssembleTranscript(s.events, s.roster, s.opts.signals)
}

// Verdict 最近一次裁决
func (s *Session) Verdict() (models.Verdict, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verdictLocked()
}

// LastActivity 最近一次收到帧的时间（未收到帧时为启动时间）
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// Done 当前连接的事件循环结束时关闭；未启动时返回已关闭的 channel
func (s *Session) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// Export 将已结束会话的 message / verdict 事件导出为纯文本，不改变状态
func (s *Session) Export() (archive.Export, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stateLocked() != StateConcluded {
		return archive.Export{}, ErrNotConcluded
	}

	var parts []string
	for _, ev := range s.events {
		if ev.Kind != models.KindMessage && ev.Kind != models.KindVerdict {
			continue
		}
		speaker := ev.Speaker
		if ev.Kind == models.KindMessage {
			// 只导出名册内参与者的发言
			if _, ok := s.roster.Resolve(speaker); !ok {
				continue
			}
		}
		if speaker == "" {
			speaker = models.SystemSpeaker
		}
		parts = append(parts, fmt.Sprintf("[%s]: %s", s.roster.DisplayName(speaker), ev.Content))
	}

	now := s.opts.now()
	return archive.Export{
		Subject:   s.subject,
		Filename:  archive.FileName(s.subject, now),
		Content:   []byte(strings.Join(parts, "\n\n")),
		CreatedAt: now,
	}, nil
}
