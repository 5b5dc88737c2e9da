package orchestrator

import (
	"context"

	"go.uber.org/multierr"

	"github.com/dep2p/go-dhtlink/internal/core/health"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

// ============================================================================
//                              健康结果
// ============================================================================

// ApplyHealth 应用一次轮询结果
//
// 先替换快照并驱动 NAT 通知，再按节点数调整状态：Connected 且节点数为 0
// 时降为 Connecting，Connecting 且节点数大于 0 时升为 Connected。
// 已断开或尚未完成连接时不改变状态。
func (o *Orchestrator) ApplyHealth(_ context.Context, r health.Result) {
	o.applySnapshot(r)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status == types.StatusDisconnected || !o.established {
		return
	}
	switch {
	case o.status == types.StatusConnected && r.PeerCount == 0:
		logger.Warn("节点数降为 0，等待重新连接")
		o.setStatusLocked(types.StatusConnecting)
	case o.status == types.StatusConnecting && r.PeerCount > 0:
		o.setStatusLocked(types.StatusConnected)
	}
}

// applySnapshot 更新快照与 NAT 状态，不改变连接状态
func (o *Orchestrator) applySnapshot(r health.Result) {
	o.store.Apply(r)
	o.metrics.SetPeerCount(r.PeerCount)

	if r.Snapshot == nil {
		return
	}
	if o.healthEm != nil {
		_ = o.healthEm.Emit(&types.EvtHealthUpdated{
			BaseEvent: types.NewBaseEvent(types.EventHealthUpdated),
			Snapshot:  r.Snapshot,
		})
	}
	o.observeNat(r.Snapshot.NatStatus())
}

// observeNat 比较 NAT 状态，变化时发出通知
func (o *Orchestrator) observeNat(ev types.NatStatusEvent) {
	n, changed := o.nat.Observe(ev)
	if !changed {
		return
	}
	o.metrics.ObserveNatNotification(n.Level)
	logger.Info("NAT 可达性变化", "state", n.State, "confidence", n.Confidence, "level", n.Level)

	if o.natEm != nil {
		_ = o.natEm.Emit(&types.EvtNatNotification{
			BaseEvent:    types.NewBaseEvent(types.EventNatNotification),
			Notification: n,
		})
	}
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 订阅后端推送的 NAT 状态
//
// 没有事件总线时什么也不做。重复调用无副作用。
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.bus == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subCancel != nil {
		return nil
	}

	sub, err := o.bus.Subscribe(new(types.EvtNatStatusUpdate), interfaces.BufSize(8))
	if err != nil {
		return err
	}
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	o.subCancel, o.subDone = cancel, done

	go func() {
		defer close(done)
		defer sub.Close()
		for {
			select {
			case <-sctx.Done():
				return
			case raw, ok := <-sub.Out():
				if !ok {
					return
				}
				if ev, ok := raw.(*types.EvtNatStatusUpdate); ok {
					o.observeNat(ev.Status)
				}
			}
		}
	}()
	return nil
}

// Close 断开网络并释放订阅与发射器
func (o *Orchestrator) Close(ctx context.Context) error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := o.Disconnect(ctx)

	o.mu.Lock()
	cancel, done := o.subCancel, o.subDone
	o.subCancel, o.subDone = nil, nil
	o.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	return multierr.Append(err, o.closeEmitters())
}
