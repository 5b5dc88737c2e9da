package ws

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/lib/log"
)

var logger = log.Logger("signaling/ws")

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultReconnectDelay   = 3 * time.Second
	writeTimeout            = 5 * time.Second
	rosterBuffer            = 4
)

// Option 客户端选项
type Option func(*Client)

// WithHandshakeTimeout 设置握手超时
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialer.HandshakeTimeout = d
		}
	}
}

// WithReconnectDelay 设置断线重连间隔
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// Client websocket 信令客户端
type Client struct {
	url            string
	localID        string
	dialer         *websocket.Dialer
	reconnectDelay time.Duration

	peers chan []string

	mu      sync.Mutex
	conn    *websocket.Conn
	handler func(interfaces.SignalMessage)
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool

	// writeMu 串行化写操作，gorilla 连接只允许一个并发写者
	writeMu sync.Mutex
}

var _ interfaces.Signaling = (*Client)(nil)

// NewClient 创建信令客户端；localID 为空时生成随机 ID
func NewClient(rawURL, localID string, opts ...Option) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "ws" && u.Scheme != "wss") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if localID == "" {
		localID = uuid.NewString()
	}
	c := &Client{
		url:            u.String(),
		localID:        localID,
		dialer:         &websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout},
		reconnectDelay: defaultReconnectDelay,
		peers:          make(chan []string, rosterBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// LocalID 返回本地 ID
func (c *Client) LocalID() string {
	return c.localID
}

// Peers 返回名单通道，Close 后关闭
func (c *Client) Peers() <-chan []string {
	return c.peers
}

// SetOnMessage 设置 offer/answer/candidate 处理函数
func (c *Client) SetOnMessage(handler func(interfaces.SignalMessage)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// Connect 连接信令服务并登记本地 ID；已连接时直接返回
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.done != nil {
		return nil
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.conn = conn
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.done = make(chan struct{})
	go c.loop(conn, c.done)

	logger.Info("已连接信令服务", "url", c.url, "localID", c.localID)
	return nil
}

// dial 建立连接并发送 register
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, err
	}
	reg := interfaces.SignalMessage{
		Type: interfaces.SignalRegister,
		ID:   uuid.NewString(),
		From: c.localID,
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(reg); err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetWriteDeadline(time.Time{})
	return conn, nil
}

// loop 读取消息，连接断开后重连直到 Close
func (c *Client) loop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		err := c.read(conn)
		if c.ctx.Err() != nil {
			return
		}
		logger.Warn("信令连接断开，稍后重连", "error", err, "delay", c.reconnectDelay)

		conn = c.reconnect()
		if conn == nil {
			return
		}
	}
}

func (c *Client) reconnect() *websocket.Conn {
	for {
		timer := time.NewTimer(c.reconnectDelay)
		select {
		case <-c.ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		conn, err := c.dial(c.ctx)
		if err != nil {
			logger.Debug("信令重连失败", "error", err)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return nil
		}
		c.conn = conn
		c.mu.Unlock()
		logger.Info("信令服务已重连", "url", c.url)
		return conn
	}
}

func (c *Client) read(conn *websocket.Conn) error {
	for {
		var msg interfaces.SignalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.To != "" && msg.To != c.localID {
			continue
		}

		if msg.Type == interfaces.SignalRoster {
			c.pushRoster(msg.Peers)
			continue
		}

		c.mu.Lock()
		h := c.handler
		c.mu.Unlock()
		if h != nil {
			h(msg)
		}
	}
}

// pushRoster 推送名单；通道满时丢弃最旧的名单，只保留最新状态
func (c *Client) pushRoster(ids []string) {
	roster := append([]string(nil), ids...)
	for {
		select {
		case c.peers <- roster:
			return
		default:
		}
		select {
		case <-c.peers:
		default:
		}
	}
}

// Send 发送信令消息，自动填写 From 和 ID
func (c *Client) Send(ctx context.Context, msg interfaces.SignalMessage) error {
	c.mu.Lock()
	conn, closed := c.conn, c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if conn == nil {
		return ErrNotConnected
	}

	if msg.From == "" {
		msg.From = c.localID
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(deadline)
	return conn.WriteJSON(msg)
}

// Close 关闭连接并停止重连
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn, cancel, done := c.conn, c.cancel, c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = conn.Close()
	}
	if done != nil {
		<-done
	}
	close(c.peers)
	return err
}
