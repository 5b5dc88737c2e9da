package dhtlink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-dhtlink/config"
	"github.com/dep2p/go-dhtlink/internal/core/orchestrator"
	"github.com/dep2p/go-dhtlink/internal/core/peers"
	"github.com/dep2p/go-dhtlink/internal/discovery"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/lib/log"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

var logger = log.Logger("dhtlink")

// stopTimeout Close 时停止 Fx 应用的超时
const stopTimeout = 15 * time.Second

// Client dhtlink 客户端，用户交互的主入口
type Client struct {
	cfg *config.Config
	app *fx.App

	// 由 Fx 注入
	orch      *orchestrator.Orchestrator
	peers     *peers.Manager
	discovery *discovery.Reconciler
	bus       interfaces.EventBus
	backend   interfaces.Backend

	mu      sync.Mutex
	started bool
	closed  bool
}

// New 创建客户端（不启动）
//
// 示例：
//
//	client, err := dhtlink.New(
//	    dhtlink.WithBackendEndpoint("http://127.0.0.1:7300"),
//	    dhtlink.WithBootstrapNodes(nodes...),
//	)
func New(opts ...Option) (*Client, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	cfg := o.toConfig()
	c := &Client{cfg: cfg}

	app, err := buildFxApp(o, cfg, c)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	c.app = app
	return c, nil
}

// Start 快捷启动函数，等价于 New() + Start()
func Start(ctx context.Context, opts ...Option) (*Client, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start client: %w", err)
	}
	return c, nil
}

// Start 启动内部组件（发现、事件泵、NAT 推送订阅）
//
// 不会连接网络，连接需要显式调用 Connect。
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if c.started {
		return nil
	}
	if err := c.app.Start(ctx); err != nil {
		return err
	}
	c.started = true
	logger.Info("客户端已启动",
		"backend", c.backend != nil,
		"discovery", c.discovery.Kind())
	return nil
}

// Close 断开网络并释放所有资源，关闭后不可重新启动
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	c.mu.Unlock()

	if !started {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	// Fx OnStop 会再次断开，这里先断开以便拿到停止后端的错误
	err := c.orch.Disconnect(ctx)
	err = multierr.Append(err, c.app.Stop(ctx))
	logger.Info("客户端已关闭")
	return err
}

func (c *Client) ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if !c.started {
		return ErrNotStarted
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              连接
// ════════════════════════════════════════════════════════════════════════════

// Connect 连接网络
//
// 已连接或正在连接时直接返回 nil。致命错误原样返回，状态回到 Disconnected，
// 不会自动重试。
func (c *Client) Connect(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.orch.Connect(ctx)
}

// Cancel 取消正在进行的连接
func (c *Client) Cancel(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.orch.Cancel(ctx)
}

// Disconnect 断开网络
func (c *Client) Disconnect(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.orch.Disconnect(ctx)
}

// Status 当前连接状态
func (c *Client) Status() types.ConnectionStatus {
	return c.orch.Status()
}

// Attempts 当前连接尝试次数
func (c *Client) Attempts() uint64 {
	return c.orch.Attempts()
}

// PeerID 本地 PeerID，未连接时为 ""
func (c *Client) PeerID() string {
	return c.orch.PeerID()
}

// Standalone 已连接但没有连上任何引导节点
func (c *Client) Standalone() bool {
	return c.orch.Standalone()
}

// Snapshot 最近一次健康快照，可能为 nil
func (c *Client) Snapshot() *types.HealthSnapshot {
	return c.orch.Snapshot()
}

// PeerCount 最近一次观测到的节点数
func (c *Client) PeerCount() uint {
	return c.orch.PeerCount()
}

// ════════════════════════════════════════════════════════════════════════════
//                              节点
// ════════════════════════════════════════════════════════════════════════════

// ConnectToPeer 直连节点
func (c *Client) ConnectToPeer(ctx context.Context, address string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.peers.ConnectToPeer(ctx, address)
}

// DisconnectFromPeer 断开节点（按地址或节点 ID）
func (c *Client) DisconnectFromPeer(ctx context.Context, address string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.peers.DisconnectFromPeer(ctx, address)
}

// ConnectedPeers 已连接节点列表
func (c *Client) ConnectedPeers() []types.ConnectedPeer {
	return c.peers.Peers()
}

// RefreshPeers 从后端刷新已连接节点列表
func (c *Client) RefreshPeers(ctx context.Context) ([]types.ConnectedPeer, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.peers.Refresh(ctx)
}

// SendToPeer 通过点对点会话发送数据（回退通道）
func (c *Client) SendToPeer(peerID string, data []byte) error {
	return c.peers.Send(peerID, data)
}

// ════════════════════════════════════════════════════════════════════════════
//                              发现
// ════════════════════════════════════════════════════════════════════════════

// DiscoveryKind 使用中的发现通道
func (c *Client) DiscoveryKind() interfaces.DiscoveryKind {
	return c.discovery.Kind()
}

// DiscoveredPeers 当前可见的发现集合
func (c *Client) DiscoveredPeers() []types.PeerDiscoveryEntry {
	return c.discovery.Entries()
}

// SelectPeer 选中发现到的节点，返回写入直连输入的地址
func (c *Client) SelectPeer(peerID string) (string, error) {
	return c.discovery.Select(peerID)
}

// DirectConnectInput 直连输入的当前值
func (c *Client) DirectConnectInput() string {
	return c.discovery.DirectConnectInput()
}

// SetDirectConnectInput 设置直连输入
func (c *Client) SetDirectConnectInput(v string) {
	c.discovery.SetDirectConnectInput(v)
}

// ConnectSelected 连接直连输入中的地址
func (c *Client) ConnectSelected(ctx context.Context) error {
	addr := c.DirectConnectInput()
	if addr == "" {
		return ErrPeerNotFound
	}
	return c.ConnectToPeer(ctx, addr)
}

// ════════════════════════════════════════════════════════════════════════════
//                              事件与配置
// ════════════════════════════════════════════════════════════════════════════

// EventBus 返回事件总线
func (c *Client) EventBus() interfaces.EventBus {
	return c.bus
}

// Subscribe 订阅事件，eventType 为事件指针，例如 new(types.EvtStatusChanged)
func (c *Client) Subscribe(eventType interface{}, opts ...interfaces.SubscriptionOpt) (interfaces.Subscription, error) {
	return c.bus.Subscribe(eventType, opts...)
}

// Config 返回生效的配置（只读）
func (c *Client) Config() *config.Config {
	return c.cfg
}
