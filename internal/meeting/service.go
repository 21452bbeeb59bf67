package meeting

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/run-bigpig/tribunal/internal/agent"
	"github.com/run-bigpig/tribunal/internal/transport"

	"golang.org/x/sync/errgroup"
)

// Service 多主题会话注册表，每个主题独立的连接和事件日志
type Service struct {
	roster     *agent.Roster
	dialer     transport.Dialer
	opts       []Option
	sessions   map[string]*Session // key: subject
	sessionsMu sync.RWMutex
}

// NewService 创建会话服务，opts 应用到每个新会话
func NewService(roster *agent.Roster, dialer transport.Dialer, opts ...Option) *Service {
	return &Service{
		roster:   roster,
		dialer:   dialer,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Open 打开主题会话；已存在时重启
func (s *Service) Open(ctx context.Context, subject string) (*Session, error) {
	if err := transport.ValidateSubject(subject); err != nil {
		return nil, err
	}

	s.sessionsMu.Lock()
	sess, ok := s.sessions[subject]
	if !ok {
		var err error
		sess, err = NewSession(s.roster, s.dialer, s.opts...)
		if err != nil {
			s.sessionsMu.Unlock()
			return nil, err
		}
		s.sessions[subject] = sess
	}
	s.sessionsMu.Unlock()

	if err := sess.Start(ctx, subject); err != nil {
		if !ok {
			s.sessionsMu.Lock()
			if s.sessions[subject] == sess {
				delete(s.sessions, subject)
			}
			s.sessionsMu.Unlock()
		}
		return nil, err
	}
	return sess, nil
}

// Get 获取主题会话
func (s *Service) Get(subject string) (*Session, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	sess, ok := s.sessions[subject]
	return sess, ok
}

// Close 停止并移除主题会话
func (s *Service) Close(subject string) error {
	s.sessionsMu.Lock()
	sess, ok := s.sessions[subject]
	delete(s.sessions, subject)
	s.sessionsMu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSession, subject)
	}
	sess.Stop()
	return nil
}

// CloseAll 停止全部会话
func (s *Service) CloseAll() {
	s.sessionsMu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.sessionsMu.Unlock()

	for _, sess := range sessions {
		sess.Stop()
	}
}

// Snapshots 全部会话快照，按主题排序
func (s *Service) Snapshots() []Snapshot {
	s.sessionsMu.RLock()
	subjects := make([]string, 0, len(s.sessions))
	for subject := range s.sessions {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	sessions := make([]*Session, len(subjects))
	for i, subject := range subjects {
		sessions[i] = s.sessions[subject]
	}
	s.sessionsMu.RUnlock()

	snaps := make([]Snapshot, len(sessions))
	for i, sess := range sessions {
		snaps[i] = sess.Snapshot()
	}
	return snaps
}

// Sweep 移除结束超过 ttl 的会话，返回移除数量
func (s *Service) Sweep(ttl time.Duration) int {
	s.sessionsMu.Lock()
	var expired []*Session
	for subject, sess := range s.sessions {
		snap := sess.Snapshot()
		if snap.State == StateConcluded && sess.opts.now().Sub(snap.LastActivity) > ttl {
			expired = append(expired, sess)
			delete(s.sessions, subject)
		}
	}
	s.sessionsMu.Unlock()

	for _, sess := range expired {
		sess.Stop()
	}
	if len(expired) > 0 {
		log.Info("swept %d sessions", len(expired))
	}
	return len(expired)
}

// WatchAll 并发打开多个主题，等待全部结束或 ctx 取消，返回按输入顺序的快照
//
// idle > 0 时每个会话带一个 Watchdog；被看门狗停止的会话以 idle 快照返回，不影响其他主题。
func (s *Service) WatchAll(ctx context.Context, subjects []string, idle time.Duration) ([]Snapshot, error) {
	g, gctx := errgroup.WithContext(ctx)
	sessions := make([]*Session, len(subjects))
	for i, subject := range subjects {
		g.Go(func() error {
			sess, err := s.Open(gctx, subject)
			if err != nil {
				return err
			}
			sessions[i] = sess
			if idle > 0 {
				wctx, cancel := context.WithCancel(gctx)
				defer cancel()
				go Watchdog(wctx, sess, idle)
			}
			return waitConcluded(gctx, sess)
		})
	}
	err := g.Wait()

	snaps := make([]Snapshot, 0, len(subjects))
	for _, sess := range sessions {
		if sess != nil {
			snaps = append(snaps, sess.Snapshot())
		}
	}
	return snaps, err
}

// waitConcluded 等待会话结束：连接循环退出，或（收到裁决即结束时）状态变为 concluded
func waitConcluded(ctx context.Context, sess *Session) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	done := sess.Done()
	for {
		if sess.State() == StateConcluded {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return nil
		case <-ticker.C:
		}
	}
}

// Watchdog 调用方的空闲看门狗：idle 时间内未收到帧则 Stop 会话，返回是否触发
func Watchdog(ctx context.Context, sess *Session, idle time.Duration) bool {
	if idle <= 0 {
		return false
	}
	interval := idle / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	done := sess.Done()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-done:
			return false
		case <-ticker.C:
			if sess.State() != StateInProgress {
				continue
			}
			if sess.opts.now().Sub(sess.LastActivity()) >= idle {
				log.Warn("no frame within %v, stopping session %s", idle, sess.Subject())
				sess.Stop()
				return true
			}
		}
	}
}
