package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultHandshakeTimeout 默认握手超时
const DefaultHandshakeTimeout = 10 * time.Second

// WebSocketDialer 通过 WebSocket 连接辩论服务
type WebSocketDialer struct {
	BaseURL          string        // 例如 ws://localhost:8000/ws/debate
	HandshakeTimeout time.Duration // 0 使用默认值
	QueueSize        int           // 0 使用默认值
	Header           http.Header   // 额外请求头
}

// NewWebSocketDialer 创建 WebSocket 拨号器
func NewWebSocketDialer(baseURL string) *WebSocketDialer {
	return &WebSocketDialer{BaseURL: baseURL}
}

// Target 目标地址：BaseURL + "/" + 转义后的主题
func (d *WebSocketDialer) Target(subjectKey string) (string, error) {
	if err := ValidateSubject(subjectKey); err != nil {
		return "", err
	}
	u, err := url.Parse(d.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	rawPath := strings.TrimSuffix(u.EscapedPath(), "/") + "/" + url.PathEscape(subjectKey)
	path, err := url.PathUnescape(rawPath)
	if err != nil {
		return "", fmt.Errorf("escape subject: %w", err)
	}
	u.Path = path
	u.RawPath = rawPath
	return u.String(), nil
}

// Open 校验主题后在后台建立连接
func (d *WebSocketDialer) Open(ctx context.Context, subjectKey string) (Channel, error) {
	target, err := d.Target(subjectKey)
	if err != nil {
		return nil, err
	}

	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	dialCtx, cancel := context.WithCancel(ctx)
	ch := &wsChannel{
		pump:   newPump(d.QueueSize),
		target: target,
		cancel: cancel,
	}
	go ch.run(dialCtx, dialer, d.Header)
	return ch, nil
}

// wsChannel WebSocket 连接句柄
type wsChannel struct {
	*pump
	target string
	cancel context.CancelFunc

	mu   sync.Mutex
	conn *websocket.Conn
}

// run 读循环：唯一的事件生产者
func (c *wsChannel) run(ctx context.Context, dialer *websocket.Dialer, header http.Header) {
	defer close(c.events)
	defer c.cancel()

	conn, resp, err := dialer.DialContext(ctx, c.target, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if c.isClosing() {
			return
		}
		log.Warn("dial %s failed: %v", c.target, err)
		c.emit(Event{Type: EventFailed, Err: fmt.Errorf("dial %s: %w", c.target, err)})
		return
	}
	if !c.setConn(conn) {
		return
	}

	log.Debug("connected: %s", c.target)
	if !c.emit(Event{Type: EventOpened}) {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.isClosing() {
				return
			}
			c.dropConn()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("server closed %s", c.target)
				c.emit(Event{Type: EventClosed})
				return
			}
			log.Warn("read %s failed: %v", c.target, err)
			c.emit(Event{Type: EventFailed, Err: fmt.Errorf("read: %w", err)})
			return
		}
		if !c.emit(Event{Type: EventFrame, Data: data}) {
			return
		}
	}
}

// setConn 记录连接；若已请求关闭则直接关闭连接
func (c *wsChannel) setConn(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosing() {
		conn.Close()
		return false
	}
	c.conn = conn
	return true
}

// dropConn 服务端断开后释放连接，之后的 Close 不再触碰它
func (c *wsChannel) dropConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close 幂等关闭：取消握手、发送关闭帧并断开
func (c *wsChannel) Close() error {
	if !c.requestClose() {
		return nil
	}
	c.cancel()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil &&
		!errors.Is(err, websocket.ErrCloseSent) {
		log.Debug("write close frame: %v", err)
	}
	return conn.Close()
}
