package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// maxReplayLine 单帧最大长度
const maxReplayLine = 1 << 20

// ReplayDialer 回放录制的会话：每行一个 JSON 帧
type ReplayDialer struct {
	Dir       string        // 录制文件目录，文件名为 <转义主题>.jsonl
	Interval  time.Duration // 帧间隔，0 表示不等待
	QueueSize int
}

// NewReplayDialer 创建回放拨号器
func NewReplayDialer(dir string) *ReplayDialer {
	return &ReplayDialer{Dir: dir}
}

// Path 主题对应的录制文件
func (d *ReplayDialer) Path(subjectKey string) string {
	return filepath.Join(d.Dir, url.PathEscape(subjectKey)+".jsonl")
}

// Open 校验主题后在后台开始回放
func (d *ReplayDialer) Open(ctx context.Context, subjectKey string) (Channel, error) {
	if err := ValidateSubject(subjectKey); err != nil {
		return nil, err
	}
	ch := &replayChannel{pump: newPump(d.QueueSize)}
	go ch.run(ctx, d.Path(subjectKey), d.Interval)
	return ch, nil
}

type replayChannel struct {
	*pump
}

func (c *replayChannel) run(ctx context.Context, path string, interval time.Duration) {
	defer close(c.events)

	if err := ctx.Err(); err != nil {
		c.emit(Event{Type: EventFailed, Err: err})
		return
	}
	f, err := os.Open(path)
	if err != nil {
		c.emit(Event{Type: EventFailed, Err: fmt.Errorf("open replay: %w", err)})
		return
	}
	defer f.Close()

	if !c.emit(Event{Type: EventOpened}) {
		return
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReplayLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if interval > 0 {
			select {
			case <-c.closing:
				return
			case <-time.After(interval):
			}
		}
		frame := make([]byte, len(line))
		copy(frame, line)
		if !c.emit(Event{Type: EventFrame, Data: frame}) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		c.emit(Event{Type: EventFailed, Err: fmt.Errorf("read replay: %w", err)})
		return
	}
	c.emit(Event{Type: EventClosed})
}

// Close 幂等，停止回放
func (c *replayChannel) Close() error {
	c.requestClose()
	return nil
}
