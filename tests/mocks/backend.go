package mocks

import (
	"context"
	"sync"

	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

// MockBackend 模拟后端节点进程
//
// XxxFunc 字段为 nil 时使用内置的内存后端行为：Start 置为运行，
// Stop 置为停止，快照的 PeerCount 取自 SetPeerCount。
type MockBackend struct {
	mu sync.Mutex

	PeerIDValue string
	// SnapshotUnavailable 为 true 时 GetHealthSnapshot 返回 (nil, nil)
	SnapshotUnavailable bool

	running   bool
	peerCount uint
	snapshot  types.HealthSnapshot
	peers     []types.ConnectedPeer
	events    chan types.BackendEvent

	// 可覆盖的方法
	StartFunc              func(ctx context.Context, cfg interfaces.StartConfig) (string, error)
	StopFunc               func(ctx context.Context) error
	ConnectToBootstrapFunc func(ctx context.Context, addr string) error
	GetHealthSnapshotFunc  func(ctx context.Context) (*types.HealthSnapshot, error)
	GetPeerCountFunc       func(ctx context.Context) (uint, error)
	IsRunningFunc          func(ctx context.Context) (bool, error)
	ConnectToPeerFunc      func(ctx context.Context, addr string) error
	DisconnectFromPeerFunc func(ctx context.Context, peerID string) error
	GetConnectedPeersFunc  func(ctx context.Context) ([]types.ConnectedPeer, error)

	// 调用记录
	startCalls      []interfaces.StartConfig
	stopCalls       int
	bootstrapCalls  []string
	snapshotCalls   int
	connectCalls    []string
	disconnectCalls []string
}

var _ interfaces.Backend = (*MockBackend)(nil)

// NewMockBackend 创建带有默认值的 MockBackend
func NewMockBackend(peerID string) *MockBackend {
	return &MockBackend{
		PeerIDValue: peerID,
		events:      make(chan types.BackendEvent, 16),
	}
}

// ============================================================================
//                              状态控制
// ============================================================================

// SetRunning 设置运行状态
func (m *MockBackend) SetRunning(running bool) {
	m.mu.Lock()
	m.running = running
	m.mu.Unlock()
}

// SetPeerCount 设置节点数
func (m *MockBackend) SetPeerCount(n uint) {
	m.mu.Lock()
	m.peerCount = n
	m.mu.Unlock()
}

// SetSnapshot 设置快照模板（PeerCount 字段会被 SetPeerCount 的值覆盖）
func (m *MockBackend) SetSnapshot(s types.HealthSnapshot) {
	m.mu.Lock()
	m.snapshot = s
	m.mu.Unlock()
}

// SetConnectedPeers 设置已连接节点列表
func (m *MockBackend) SetConnectedPeers(peers []types.ConnectedPeer) {
	m.mu.Lock()
	m.peers = append([]types.ConnectedPeer(nil), peers...)
	m.mu.Unlock()
}

// Push 推送一个后端事件
func (m *MockBackend) Push(ev types.BackendEvent) {
	m.events <- ev
}

// StartCalls 返回 Start 调用记录
func (m *MockBackend) StartCalls() []interfaces.StartConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interfaces.StartConfig(nil), m.startCalls...)
}

// StopCalls 返回 Stop 调用次数
func (m *MockBackend) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

// BootstrapCalls 返回 ConnectToBootstrap 调用的地址
func (m *MockBackend) BootstrapCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.bootstrapCalls...)
}

// SnapshotCalls 返回 GetHealthSnapshot 调用次数
func (m *MockBackend) SnapshotCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotCalls
}

// ConnectCalls 返回 ConnectToPeer 调用的地址
func (m *MockBackend) ConnectCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.connectCalls...)
}

// DisconnectCalls 返回 DisconnectFromPeer 调用的节点 ID
func (m *MockBackend) DisconnectCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.disconnectCalls...)
}

// ============================================================================
//                              interfaces.Backend
// ============================================================================

// Start 启动节点
func (m *MockBackend) Start(ctx context.Context, cfg interfaces.StartConfig) (string, error) {
	m.mu.Lock()
	m.startCalls = append(m.startCalls, cfg)
	m.mu.Unlock()

	if m.StartFunc != nil {
		id, err := m.StartFunc(ctx, cfg)
		if err == nil {
			m.SetRunning(true)
		}
		return id, err
	}
	m.SetRunning(true)
	return m.PeerIDValue, nil
}

// Stop 停止节点
func (m *MockBackend) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.stopCalls++
	m.mu.Unlock()

	if m.StopFunc != nil {
		if err := m.StopFunc(ctx); err != nil {
			return err
		}
	}
	m.SetRunning(false)
	return nil
}

// ConnectToBootstrap 连接引导节点
func (m *MockBackend) ConnectToBootstrap(ctx context.Context, addr string) error {
	m.mu.Lock()
	m.bootstrapCalls = append(m.bootstrapCalls, addr)
	m.mu.Unlock()

	if m.ConnectToBootstrapFunc != nil {
		return m.ConnectToBootstrapFunc(ctx, addr)
	}
	return nil
}

// GetHealthSnapshot 获取健康快照
func (m *MockBackend) GetHealthSnapshot(ctx context.Context) (*types.HealthSnapshot, error) {
	m.mu.Lock()
	m.snapshotCalls++
	m.mu.Unlock()

	if m.GetHealthSnapshotFunc != nil {
		return m.GetHealthSnapshotFunc(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SnapshotUnavailable {
		return nil, nil
	}
	s := m.snapshot.Clone()
	if s == nil {
		s = &types.HealthSnapshot{}
	}
	s.PeerCount = m.peerCount
	return s, nil
}

// GetPeerCount 获取节点数
func (m *MockBackend) GetPeerCount(ctx context.Context) (uint, error) {
	if m.GetPeerCountFunc != nil {
		return m.GetPeerCountFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peerCount, nil
}

// GetPeerID 获取本地 PeerID
func (m *MockBackend) GetPeerID(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return "", nil
	}
	return m.PeerIDValue, nil
}

// IsRunning 是否运行中
func (m *MockBackend) IsRunning(ctx context.Context) (bool, error) {
	if m.IsRunningFunc != nil {
		return m.IsRunningFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running, nil
}

// ConnectToPeer 发起连接
func (m *MockBackend) ConnectToPeer(ctx context.Context, addr string) error {
	m.mu.Lock()
	m.connectCalls = append(m.connectCalls, addr)
	m.mu.Unlock()

	if m.ConnectToPeerFunc != nil {
		return m.ConnectToPeerFunc(ctx, addr)
	}
	return nil
}

// DisconnectFromPeer 断开节点
func (m *MockBackend) DisconnectFromPeer(ctx context.Context, peerID string) error {
	m.mu.Lock()
	m.disconnectCalls = append(m.disconnectCalls, peerID)
	m.mu.Unlock()

	if m.DisconnectFromPeerFunc != nil {
		return m.DisconnectFromPeerFunc(ctx, peerID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.peers[:0]
	for _, p := range m.peers {
		if p.ID != peerID {
			kept = append(kept, p)
		}
	}
	m.peers = kept
	return nil
}

// GetConnectedPeers 获取已连接节点
func (m *MockBackend) GetConnectedPeers(ctx context.Context) ([]types.ConnectedPeer, error) {
	if m.GetConnectedPeersFunc != nil {
		return m.GetConnectedPeersFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ConnectedPeer(nil), m.peers...), nil
}

// Events 返回事件通道
//
// 通道在 ctx 结束时关闭。
func (m *MockBackend) Events(ctx context.Context) (<-chan types.BackendEvent, error) {
	out := make(chan types.BackendEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-m.events:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
