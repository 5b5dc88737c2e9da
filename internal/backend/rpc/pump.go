package rpc

import (
	"context"
	"errors"
	"sync"

	"github.com/dep2p/go-dhtlink/internal/core/metrics"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

// ErrNoEventBus 没有事件总线
var ErrNoEventBus = errors.New("rpc: event bus required")

// Pump 把后端推送事件转发到事件总线
//
// 发现批次以 EvtPeerDiscoveryBatch、NAT 状态以 EvtNatStatusUpdate 发布，
// 两者都是有状态事件，后订阅者能拿到最近一次推送。
type Pump struct {
	backend interfaces.Backend
	metrics *metrics.Metrics

	discoveryEm interfaces.Emitter
	natEm       interfaces.Emitter

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPump 创建事件泵
func NewPump(backend interfaces.Backend, bus interfaces.EventBus, m *metrics.Metrics) (*Pump, error) {
	if bus == nil {
		return nil, ErrNoEventBus
	}
	p := &Pump{backend: backend, metrics: m}

	var err error
	if p.discoveryEm, err = bus.Emitter(new(types.EvtPeerDiscoveryBatch), interfaces.Stateful()); err != nil {
		return nil, err
	}
	if p.natEm, err = bus.Emitter(new(types.EvtNatStatusUpdate), interfaces.Stateful()); err != nil {
		_ = p.discoveryEm.Close()
		return nil, err
	}
	return p, nil
}

// Start 开始转发；已在运行时直接返回
func (p *Pump) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	events, err := p.backend.Events(ctx)
	if err != nil {
		cancel()
		return err
	}
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(events, p.done)
	return nil
}

func (p *Pump) run(events <-chan types.BackendEvent, done chan struct{}) {
	defer close(done)
	for ev := range events {
		p.metrics.ObserveBackendEvent(ev.Name)
		switch {
		case ev.Name == types.EventPeerDiscoveryBatch:
			_ = p.discoveryEm.Emit(&types.EvtPeerDiscoveryBatch{
				BaseEvent: types.NewBaseEvent(types.EventPeerDiscoveryBatch),
				Entries:   ev.Discovery,
			})
		case ev.Name == types.EventNatStatusUpdate && ev.Nat != nil:
			_ = p.natEm.Emit(&types.EvtNatStatusUpdate{
				BaseEvent: types.NewBaseEvent(types.EventNatStatusUpdate),
				Status:    *ev.Nat,
			})
		}
	}
}

// Stop 停止转发并等待事件流关闭
func (p *Pump) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close 停止转发并释放发射器
func (p *Pump) Close() error {
	p.Stop()
	_ = p.discoveryEm.Close()
	_ = p.natEm.Close()
	return nil
}
