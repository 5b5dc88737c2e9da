// Package peers 实现已连接节点列表与连接/断开流程
//
// 原生模式下，后端连接请求没有直接应答：发起连接后等待一段时间再刷新节点列表，
// 列表增长即视为成功。回退模式下通过会话工厂建立点对点会话，先插入一个
// away 状态的待定节点，再根据会话状态提升为 online 或降级为 offline。
package peers

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-dhtlink/internal/core/metrics"
	"github.com/dep2p/go-dhtlink/internal/util/addrutil"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/lib/log"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

var logger = log.Logger("core/peers")

// DefaultConnectVerifyDelay 发起连接到刷新节点列表之间的等待
const DefaultConnectVerifyDelay = 2 * time.Second

const (
	opConnect    = "connect"
	opDisconnect = "disconnect"
)

// Options 节点管理器依赖
type Options struct {
	// Backend 原生后端；为 nil 时使用 Sessions
	Backend interfaces.Backend
	// Sessions 回退模式的会话工厂
	Sessions interfaces.SessionFactory
	// EventBus 广播节点列表变化与操作失败，可以为 nil
	EventBus interfaces.EventBus
	Metrics  *metrics.Metrics
	Clock    clock.Clock
	// ConnectVerifyDelay 为 0 时使用默认值
	ConnectVerifyDelay time.Duration
}

// Manager 已连接节点管理器
type Manager struct {
	backend     interfaces.Backend
	sessions    interfaces.SessionFactory
	metrics     *metrics.Metrics
	clock       clock.Clock
	verifyDelay time.Duration

	listEmitter interfaces.Emitter
	failEmitter interfaces.Emitter

	mu    sync.Mutex
	peers []types.ConnectedPeer
	live  map[string]interfaces.Session
	// pending 正在连接中的地址，与 peers 一起参与重叠检查
	pending map[string]struct{}
}

// NewManager 创建节点管理器
func NewManager(opts Options) (*Manager, error) {
	m := &Manager{
		backend:     opts.Backend,
		sessions:    opts.Sessions,
		metrics:     opts.Metrics,
		clock:       opts.Clock,
		verifyDelay: opts.ConnectVerifyDelay,
		live:        make(map[string]interfaces.Session),
		pending:     make(map[string]struct{}),
	}
	if m.clock == nil {
		m.clock = clock.New()
	}
	if m.verifyDelay <= 0 {
		m.verifyDelay = DefaultConnectVerifyDelay
	}
	if opts.EventBus != nil {
		var err error
		if m.listEmitter, err = opts.EventBus.Emitter(new(types.EvtPeerListChanged), interfaces.Stateful()); err != nil {
			return nil, err
		}
		if m.failEmitter, err = opts.EventBus.Emitter(new(types.EvtPeerOperationFailed)); err != nil {
			_ = m.listEmitter.Close()
			return nil, err
		}
	}
	return m, nil
}

// Native 是否使用原生后端
func (m *Manager) Native() bool {
	return m.backend != nil
}

// Peers 返回节点列表副本
func (m *Manager) Peers() []types.ConnectedPeer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ConnectedPeer(nil), m.peers...)
}

// ============================================================================
//                              连接
// ============================================================================

// ConnectToPeer 连接到指定地址
//
// 已有节点或正在连接的地址与 address 相等或互相包含时拒绝，返回
// ErrAlreadyConnected。offline 节点仍留在列表中，在 DisconnectFromPeer
// 移除之前同样阻止重新连接。
func (m *Manager) ConnectToPeer(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return m.fail(opConnect, address, addrutil.ErrEmptyAddress)
	}

	before, existing, ok := m.reserve(address)
	if !ok {
		logger.Debug("地址与已连接节点重叠", "addr", address, "existing", existing)
		return m.fail(opConnect, address, ErrAlreadyConnected)
	}
	defer m.release(address)

	var err error
	switch {
	case m.backend != nil:
		err = m.connectNative(ctx, address, before)
	case m.sessions != nil:
		err = m.connectSession(ctx, address)
	default:
		err = ErrNoTransport
	}
	if err != nil {
		return m.fail(opConnect, address, err)
	}
	m.metrics.ObservePeerOp(opConnect, nil)
	return nil
}

// reserve 在同一临界区内完成重叠检查并登记待定地址
func (m *Manager) reserve(address string) (before int, existing string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.peers {
		if addrutil.Overlaps(p.Address, address) {
			return 0, p.Address, false
		}
	}
	for pending := range m.pending {
		if addrutil.Overlaps(pending, address) {
			return 0, pending, false
		}
	}
	m.pending[address] = struct{}{}
	return len(m.peers), "", true
}

func (m *Manager) release(address string) {
	m.mu.Lock()
	delete(m.pending, address)
	m.mu.Unlock()
}

// connectNative 发起连接，等待后刷新列表，通过数量变化推断结果
func (m *Manager) connectNative(ctx context.Context, address string, before int) error {
	if err := m.backend.ConnectToPeer(ctx, address); err != nil {
		return err
	}

	select {
	case <-m.clock.After(m.verifyDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	peers, err := m.Refresh(ctx)
	if err != nil {
		return err
	}
	if len(peers) <= before {
		return ErrConnectUnconfirmed
	}
	logger.Info("已连接节点", "addr", address, "peers", len(peers))
	return nil
}

// connectSession 通过信令建立点对点会话
func (m *Manager) connectSession(ctx context.Context, address string) error {
	peerID := addrutil.ExtractPeerID(address)
	if peerID == "" {
		return addrutil.ErrMissingPeerID
	}

	now := m.clock.Now()
	m.mu.Lock()
	m.peers = append(m.peers, types.ConnectedPeer{
		ID:       peerID,
		Address:  address,
		Status:   types.PeerAway,
		JoinDate: now,
		LastSeen: now,
	})
	m.mu.Unlock()
	m.emitList()

	s, err := m.sessions.Dial(ctx, peerID, func(st interfaces.SessionState) {
		m.onSessionState(peerID, st)
	})
	if err != nil {
		m.remove(peerID)
		return err
	}

	m.mu.Lock()
	m.live[peerID] = s
	m.mu.Unlock()
	logger.Info("已发起点对点会话", "peer", peerID)
	return nil
}

// Accept 登记对端发起的会话，返回会话状态回调
//
// 节点以 Away 加入列表，数据通道打开后变为 Online。
func (m *Manager) Accept(s interfaces.Session) func(interfaces.SessionState) {
	peerID := s.PeerID()
	now := m.clock.Now()

	m.mu.Lock()
	old := m.live[peerID]
	delete(m.live, peerID)
	m.mu.Unlock()
	if old != nil && old != s {
		_ = old.Close()
	}

	m.mu.Lock()
	m.live[peerID] = s
	known := false
	for i := range m.peers {
		if m.peers[i].ID == peerID {
			m.peers[i].Status = types.PeerAway
			m.peers[i].LastSeen = now
			known = true
		}
	}
	if !known {
		m.peers = append(m.peers, types.ConnectedPeer{
			ID:       peerID,
			Address:  peerID,
			Status:   types.PeerAway,
			JoinDate: now,
			LastSeen: now,
		})
	}
	m.mu.Unlock()
	m.emitList()
	logger.Info("接受对端会话", "peer", peerID)

	return func(st interfaces.SessionState) {
		m.mu.Lock()
		current := m.live[peerID] == s
		m.mu.Unlock()
		// 已被新会话替换的旧会话不再影响节点状态
		if !current {
			return
		}
		m.onSessionState(peerID, st)
	}
}

// onSessionState 会话状态映射到节点在线状态
func (m *Manager) onSessionState(peerID string, st interfaces.SessionState) {
	var status types.PeerStatus
	switch st {
	case interfaces.SessionConnected:
		status = types.PeerOnline
	case interfaces.SessionFailed, interfaces.SessionClosed:
		status = types.PeerOffline
	default:
		return
	}

	m.mu.Lock()
	changed := false
	for i := range m.peers {
		if m.peers[i].ID == peerID && m.peers[i].Status != status {
			m.peers[i].Status = status
			m.peers[i].LastSeen = m.clock.Now()
			changed = true
		}
	}
	if status == types.PeerOffline {
		delete(m.live, peerID)
	}
	m.mu.Unlock()

	if changed {
		logger.Debug("节点状态变化", "peer", peerID, "status", status)
		m.emitList()
	}
}

// ============================================================================
//                              断开
// ============================================================================

// DisconnectFromPeer 断开指定节点（按地址或节点 ID）
//
// 失败时保留列表中的节点。
func (m *Manager) DisconnectFromPeer(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)

	m.mu.Lock()
	var target *types.ConnectedPeer
	for i := range m.peers {
		if m.peers[i].Address == address || m.peers[i].ID == address {
			p := m.peers[i]
			target = &p
			break
		}
	}
	session := m.live[peerIDOf(target)]
	m.mu.Unlock()

	if target == nil {
		return m.fail(opDisconnect, address, ErrPeerNotFound)
	}
	peerID := peerIDOf(target)

	switch {
	case session != nil:
		if err := session.Close(); err != nil {
			logger.Debug("关闭会话失败", "peer", peerID, "error", err)
		}
	case m.backend != nil:
		if err := m.backend.DisconnectFromPeer(ctx, peerID); err != nil {
			return m.fail(opDisconnect, address, err)
		}
	}

	m.mu.Lock()
	delete(m.live, peerID)
	m.mu.Unlock()
	m.remove(peerID)
	m.metrics.ObservePeerOp(opDisconnect, nil)
	logger.Info("已断开节点", "peer", peerID)
	return nil
}

func peerIDOf(p *types.ConnectedPeer) string {
	if p == nil {
		return ""
	}
	if p.ID != "" {
		return p.ID
	}
	return addrutil.ExtractPeerID(p.Address)
}

// ============================================================================
//                              刷新与发送
// ============================================================================

// Refresh 用后端节点列表整体替换本地列表
//
// 回退模式下没有权威列表，返回当前列表。
func (m *Manager) Refresh(ctx context.Context) ([]types.ConnectedPeer, error) {
	if m.backend == nil {
		return m.Peers(), nil
	}
	list, err := m.backend.GetConnectedPeers(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.peers = append([]types.ConnectedPeer(nil), list...)
	m.mu.Unlock()
	m.emitList()
	return m.Peers(), nil
}

// Send 向会话发送数据，仅在数据通道打开时有效
func (m *Manager) Send(peerID string, data []byte) error {
	m.mu.Lock()
	s := m.live[peerID]
	m.mu.Unlock()
	if s == nil {
		return ErrNoSession
	}
	return s.Send(data)
}

// Reset 清空节点列表并关闭所有会话（断开网络时调用）
func (m *Manager) Reset() {
	m.mu.Lock()
	live := m.live
	m.live = make(map[string]interfaces.Session)
	m.peers = nil
	m.mu.Unlock()

	for _, s := range live {
		_ = s.Close()
	}
	m.emitList()
}

// Close 关闭节点管理器
func (m *Manager) Close() error {
	m.Reset()
	if m.listEmitter != nil {
		_ = m.listEmitter.Close()
	}
	if m.failEmitter != nil {
		_ = m.failEmitter.Close()
	}
	return nil
}

func (m *Manager) remove(peerID string) {
	m.mu.Lock()
	kept := m.peers[:0]
	for _, p := range m.peers {
		if p.ID != peerID {
			kept = append(kept, p)
		}
	}
	m.peers = kept
	m.mu.Unlock()
	m.emitList()
}

func (m *Manager) emitList() {
	if m.listEmitter == nil {
		return
	}
	_ = m.listEmitter.Emit(&types.EvtPeerListChanged{
		BaseEvent: types.NewBaseEvent(types.EventPeerListChanged),
		Peers:     m.Peers(),
	})
}

// fail 记录失败、广播通知并返回包装后的错误
func (m *Manager) fail(op, address string, err error) error {
	logger.Warn("节点操作失败", "op", op, "addr", address, "error", err)
	m.metrics.ObservePeerOp(op, err)
	if m.failEmitter != nil {
		_ = m.failEmitter.Emit(&types.EvtPeerOperationFailed{
			BaseEvent: types.NewBaseEvent(types.EventPeerOperationFailed),
			Op:        op,
			Address:   address,
			Err:       err,
		})
	}
	return &OpError{Op: op, Address: address, Err: err}
}
