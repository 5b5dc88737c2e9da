package discovery

import (
	"context"
	"errors"
	"sync"

	"github.com/dep2p/go-dhtlink/internal/core/metrics"
	"github.com/dep2p/go-dhtlink/internal/util/addrutil"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/lib/log"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

var logger = log.Logger("discovery")

// Reconciler 节点发现协调器
type Reconciler struct {
	source  interfaces.DiscoverySource
	emitter interfaces.Emitter
	metrics *metrics.Metrics

	mu      sync.RWMutex
	entries []types.PeerDiscoveryEntry
	direct  string

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconciler 创建发现协调器
//
// bus 可以为 nil，此时不广播集合变化。
func NewReconciler(source interfaces.DiscoverySource, bus interfaces.EventBus, m *metrics.Metrics) (*Reconciler, error) {
	r := &Reconciler{source: source, metrics: m}
	if bus != nil {
		em, err := bus.Emitter(new(types.EvtDiscoverySetChanged), interfaces.Stateful())
		if err != nil {
			return nil, err
		}
		r.emitter = em
	}
	return r, nil
}

// Kind 返回选定的发现通道
func (r *Reconciler) Kind() interfaces.DiscoveryKind {
	return r.source.Kind()
}

// Start 在后台运行发现通道；已在运行时返回 false
func (r *Reconciler) Start(ctx context.Context) bool {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		err := r.source.Run(ctx, r.Apply)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("发现通道退出", "kind", r.source.Kind(), "error", err)
		}
	}(r.done)

	logger.Info("节点发现已启动", "kind", r.source.Kind())
	return true
}

// Stop 停止发现通道并等待退出
func (r *Reconciler) Stop() {
	r.runMu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close 停止并关闭发射器
func (r *Reconciler) Close() error {
	r.Stop()
	if r.emitter != nil {
		return r.emitter.Close()
	}
	return nil
}

// Apply 用一个批次整体替换可见集合
//
// 批次中重复的 PeerID 只保留第一次出现的位置和最新的 LastSeen 条目。
func (r *Reconciler) Apply(batch []types.PeerDiscoveryEntry) {
	next := make([]types.PeerDiscoveryEntry, 0, len(batch))
	index := make(map[string]int, len(batch))
	for _, e := range batch {
		if e.PeerID == "" {
			continue
		}
		e.Addresses = append([]string(nil), e.Addresses...)
		if i, ok := index[e.PeerID]; ok {
			if e.LastSeen.After(next[i].LastSeen) {
				next[i] = e
			}
			continue
		}
		index[e.PeerID] = len(next)
		next = append(next, e)
	}

	r.mu.Lock()
	r.entries = next
	r.mu.Unlock()

	logger.Debug("发现集合已替换", "kind", r.source.Kind(), "peers", len(next))
	r.metrics.SetDiscoveredPeers(len(next))
	if r.emitter != nil {
		_ = r.emitter.Emit(&types.EvtDiscoverySetChanged{
			BaseEvent: types.NewBaseEvent(types.EventDiscoverySetChanged),
			Entries:   r.Entries(),
		})
	}
}

// Entries 返回可见集合的副本
func (r *Reconciler) Entries() []types.PeerDiscoveryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.PeerDiscoveryEntry, len(r.entries))
	for i, e := range r.entries {
		e.Addresses = append([]string(nil), e.Addresses...)
		out[i] = e
	}
	return out
}

// Select 选中一个节点，把它的最佳可连接地址写入直连输入
//
// 信令名单中的节点没有地址，直接使用节点 ID（只能单向发起连接）。
func (r *Reconciler) Select(peerID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.PeerID != peerID {
			continue
		}
		if len(e.Addresses) == 0 {
			r.direct = e.PeerID
			return r.direct, nil
		}
		best := addrutil.BestConnectable(e.Addresses)
		if best == "" {
			return "", ErrNoConnectableAddress
		}
		r.direct = best
		return best, nil
	}
	return "", ErrPeerNotFound
}

// DirectConnectInput 返回直连输入的当前值
func (r *Reconciler) DirectConnectInput() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.direct
}

// SetDirectConnectInput 设置直连输入（用户手动输入）
func (r *Reconciler) SetDirectConnectInput(v string) {
	r.mu.Lock()
	r.direct = v
	r.mu.Unlock()
}
