package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/lib/log"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

var logger = log.Logger("backend/rpc")

const (
	defaultTimeout        = 10 * time.Second
	defaultReconnectDelay = 3 * time.Second
	maxErrorBody          = 4 << 10
)

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 使用自定义的 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout 设置单次命令超时
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithReconnectDelay 设置事件流重连间隔
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// WithDialer 使用自定义的 websocket 拨号器
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// Client 后端节点的远程客户端
type Client struct {
	baseURL   string
	eventsURL string

	http           *http.Client
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
}

var _ interfaces.Backend = (*Client)(nil)

// NewClient 创建客户端，endpoint 形如 "http://127.0.0.1:7300"
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}
	ws := *u
	switch u.Scheme {
	case "http":
		ws.Scheme = "ws"
	case "https":
		ws.Scheme = "wss"
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}
	ws.Path += "/events"

	c := &Client{
		baseURL:        u.String(),
		eventsURL:      ws.String(),
		http:           &http.Client{Timeout: defaultTimeout},
		dialer:         websocket.DefaultDialer,
		reconnectDelay: defaultReconnectDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ============================================================================
//                              命令
// ============================================================================

// Start 启动后端节点，返回本地 PeerID
func (c *Client) Start(ctx context.Context, cfg interfaces.StartConfig) (string, error) {
	var resp peerIDResponse
	if err := c.call(ctx, methodStart, newStartRequest(cfg), &resp); err != nil {
		return "", err
	}
	return resp.PeerID, nil
}

// Stop 停止后端节点
func (c *Client) Stop(ctx context.Context) error {
	return c.call(ctx, methodStop, nil, nil)
}

// ConnectToBootstrap 连接一个引导节点
func (c *Client) ConnectToBootstrap(ctx context.Context, addr string) error {
	return c.call(ctx, methodConnectToBootstrap, addrRequest{Addr: addr}, nil)
}

// GetHealthSnapshot 获取健康快照；后端没有快照时返回 (nil, nil)
func (c *Client) GetHealthSnapshot(ctx context.Context) (*types.HealthSnapshot, error) {
	var resp snapshotResponse
	if err := c.call(ctx, methodHealthSnapshot, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Snapshot.toSnapshot(), nil
}

// GetPeerCount 获取节点数
func (c *Client) GetPeerCount(ctx context.Context) (uint, error) {
	var resp countResponse
	if err := c.call(ctx, methodPeerCount, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// GetPeerID 获取本地 PeerID，未运行时为 ""
func (c *Client) GetPeerID(ctx context.Context) (string, error) {
	var resp peerIDResponse
	if err := c.call(ctx, methodPeerID, nil, &resp); err != nil {
		return "", err
	}
	return resp.PeerID, nil
}

// IsRunning 后端节点是否在运行
func (c *Client) IsRunning(ctx context.Context) (bool, error) {
	var resp runningResponse
	if err := c.call(ctx, methodIsRunning, nil, &resp); err != nil {
		return false, err
	}
	return resp.Running, nil
}

// ConnectToPeer 发起连接，不等待结果
func (c *Client) ConnectToPeer(ctx context.Context, addr string) error {
	return c.call(ctx, methodConnectToPeer, addrRequest{Addr: addr}, nil)
}

// DisconnectFromPeer 断开节点
func (c *Client) DisconnectFromPeer(ctx context.Context, peerID string) error {
	return c.call(ctx, methodDisconnectFromPeer, peerIDRequest{PeerID: peerID}, nil)
}

// GetConnectedPeers 获取已连接节点列表
func (c *Client) GetConnectedPeers(ctx context.Context) ([]types.ConnectedPeer, error) {
	var resp peersResponse
	if err := c.call(ctx, methodConnectedPeers, nil, &resp); err != nil {
		return nil, err
	}
	peers := make([]types.ConnectedPeer, 0, len(resp.Peers))
	for _, p := range resp.Peers {
		peers = append(peers, p.toPeer())
	}
	return peers, nil
}

// call 执行一次命令
//
// 响应体先按错误信封解析，带 error 字段时返回 *RemoteError。
func (c *Client) call(ctx context.Context, method string, body, out any) error {
	if body == nil {
		body = struct{}{}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	var env envelope
	if len(data) > 0 && json.Unmarshal(data, &env) == nil && env.Error != "" {
		logger.Debug("后端命令返回错误", "method", method, "error", env.Error)
		return &RemoteError{Method: method, Status: res.StatusCode, Message: env.Error}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg != "" {
			return &RemoteError{Method: method, Status: res.StatusCode, Message: msg}
		}
		return &StatusError{Method: method, Status: res.StatusCode}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
