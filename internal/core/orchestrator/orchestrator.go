// Package orchestrator 实现连接编排器
//
// Orchestrator 独占连接状态（Disconnected/Connecting/Connected），协调引导连接、
// 健康轮询、NAT 通知与节点列表刷新。除了用户调用 Connect/Cancel/Disconnect，
// 只有轮询会根据节点数在 Connected 与 Connecting 之间切换，轮询永远不会把状态
// 改为 Disconnected。每次状态变化都通过事件总线广播 EvtStatusChanged。
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-dhtlink/internal/core/bootstrap"
	"github.com/dep2p/go-dhtlink/internal/core/health"
	"github.com/dep2p/go-dhtlink/internal/core/metrics"
	"github.com/dep2p/go-dhtlink/internal/core/nat"
	"github.com/dep2p/go-dhtlink/internal/core/peers"
	"github.com/dep2p/go-dhtlink/internal/core/poller"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/lib/log"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

var logger = log.Logger("core/orchestrator")

// Options 编排器依赖
type Options struct {
	// Backend 后端节点；为 nil 时 Connect 以后端不可用失败
	Backend     interfaces.Backend
	StartConfig interfaces.StartConfig

	// EventBus 状态、健康与 NAT 通知的广播目标，可以为 nil
	EventBus interfaces.EventBus
	Metrics  *metrics.Metrics
	// Peers 节点列表，轮询时后台刷新，断开时清空；可以为 nil
	Peers *peers.Manager
	Clock clock.Clock

	PollInterval     time.Duration
	PeerRefreshEvery int
}

// Orchestrator 连接编排器
type Orchestrator struct {
	backend   interfaces.Backend
	connector *bootstrap.Connector
	health    *health.Client
	store     *health.Store
	poller    *poller.Poller
	nat       *nat.Notifier
	peers     *peers.Manager
	metrics   *metrics.Metrics
	bus       interfaces.EventBus

	statusEm interfaces.Emitter
	healthEm interfaces.Emitter
	natEm    interfaces.Emitter

	mu          sync.Mutex
	status      types.ConnectionStatus
	attempts    uint64
	peerID      string
	standalone  bool
	established bool

	cancelFlag    atomic.Bool
	connectCancel context.CancelFunc
	connectDone   chan struct{}

	subCancel context.CancelFunc
	subDone   chan struct{}
	closed    atomic.Bool
}

// New 创建编排器
func New(opts Options) (*Orchestrator, error) {
	o := &Orchestrator{
		backend:   opts.Backend,
		connector: bootstrap.NewConnector(opts.Backend, opts.StartConfig),
		health:    health.NewClient(opts.Backend),
		store:     health.NewStore(),
		nat:       nat.NewNotifier(),
		peers:     opts.Peers,
		metrics:   opts.Metrics,
		bus:       opts.EventBus,
		status:    types.StatusDisconnected,
	}

	pollOpts := []poller.Option{
		poller.WithInterval(opts.PollInterval),
		poller.WithMetrics(opts.Metrics),
	}
	if opts.Clock != nil {
		pollOpts = append(pollOpts, poller.WithClock(opts.Clock))
	}
	if opts.Peers != nil {
		pollOpts = append(pollOpts, poller.WithPeerRefresh(opts.PeerRefreshEvery, func(ctx context.Context) error {
			_, err := opts.Peers.Refresh(ctx)
			return err
		}))
	}
	o.poller = poller.New(o.health, o.ApplyHealth, pollOpts...)

	if opts.EventBus != nil {
		var err error
		if o.statusEm, err = opts.EventBus.Emitter(new(types.EvtStatusChanged), interfaces.Stateful()); err != nil {
			return nil, err
		}
		if o.healthEm, err = opts.EventBus.Emitter(new(types.EvtHealthUpdated), interfaces.Stateful()); err != nil {
			_ = o.closeEmitters()
			return nil, err
		}
		if o.natEm, err = opts.EventBus.Emitter(new(types.EvtNatNotification)); err != nil {
			_ = o.closeEmitters()
			return nil, err
		}
	}
	return o, nil
}

// ============================================================================
//                              只读访问
// ============================================================================

// Status 当前连接状态
func (o *Orchestrator) Status() types.ConnectionStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Attempts 当前尝试次数（成功连接或断开后归零）
func (o *Orchestrator) Attempts() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempts
}

// PeerID 本地 PeerID，未连接时为 ""
func (o *Orchestrator) PeerID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.peerID
}

// Standalone 已连接但没有连上任何引导节点
func (o *Orchestrator) Standalone() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.standalone
}

// Snapshot 最近一次健康快照，可能为 nil
func (o *Orchestrator) Snapshot() *types.HealthSnapshot {
	return o.store.Snapshot()
}

// PeerCount 最近一次观测到的节点数
func (o *Orchestrator) PeerCount() uint {
	n, _ := o.store.PeerCount()
	return n
}

// Polling 轮询是否在运行
func (o *Orchestrator) Polling() bool {
	return o.poller.Running()
}

// ============================================================================
//                              状态变化
// ============================================================================

// setStatusLocked 更新状态并广播，调用方持有 o.mu
func (o *Orchestrator) setStatusLocked(next types.ConnectionStatus) {
	prev := o.status
	if prev == next {
		return
	}
	o.status = next
	o.metrics.ObserveStatus(prev, next)
	logger.Info("连接状态变化", "from", prev, "to", next, "attempt", o.attempts)

	if o.statusEm != nil {
		_ = o.statusEm.Emit(&types.EvtStatusChanged{
			BaseEvent:  types.NewBaseEvent(types.EventStatusChanged),
			Old:        prev,
			New:        next,
			Attempt:    o.attempts,
			Standalone: o.standalone,
		})
	}
}

func (o *Orchestrator) closeEmitters() error {
	for _, em := range []interfaces.Emitter{o.statusEm, o.healthEm, o.natEm} {
		if em != nil {
			_ = em.Close()
		}
	}
	return nil
}
