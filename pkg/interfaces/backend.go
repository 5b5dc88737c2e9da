package interfaces

import (
	"context"
	"time"

	"github.com/dep2p/go-dhtlink/pkg/types"
)

// StartConfig 启动后端 DHT 节点的参数
type StartConfig struct {
	Port           int
	BootstrapNodes []string

	EnableAutoNAT        bool
	AutoNATProbeInterval time.Duration
	AutoNATServers       []string

	EnableAutoRelay   bool
	PreferredRelays   []string
	EnableRelayServer bool

	ChunkSizeKB int
	CacheSizeMB int
}

// Backend 定义后端节点进程的命令边界
//
// 后端独占唯一的 DHT 实例和监听端口，只有 Orchestrator 可以调用
// Start/Stop，其余组件只读取状态。
type Backend interface {
	// Start 启动 DHT 节点，返回本地 PeerID
	Start(ctx context.Context, cfg StartConfig) (string, error)

	// Stop 停止 DHT 节点
	Stop(ctx context.Context) error

	// ConnectToBootstrap 连接引导节点
	ConnectToBootstrap(ctx context.Context, addr string) error

	// GetHealthSnapshot 获取健康快照；快照不可用时返回 (nil, nil)
	GetHealthSnapshot(ctx context.Context) (*types.HealthSnapshot, error)

	// GetPeerCount 获取当前连接的节点数
	GetPeerCount(ctx context.Context) (uint, error)

	// GetPeerID 获取本地 PeerID，未启动时返回 ""
	GetPeerID(ctx context.Context) (string, error)

	// IsRunning 后端节点是否在运行
	IsRunning(ctx context.Context) (bool, error)

	// ConnectToPeer 发起到指定地址的连接（不等待结果）
	ConnectToPeer(ctx context.Context, addr string) error

	// DisconnectFromPeer 断开指定节点
	DisconnectFromPeer(ctx context.Context, peerID string) error

	// GetConnectedPeers 获取后端认定的已连接节点列表
	GetConnectedPeers(ctx context.Context) ([]types.ConnectedPeer, error)

	// Events 订阅后端推送事件，ctx 结束时通道关闭
	Events(ctx context.Context) (<-chan types.BackendEvent, error)
}
