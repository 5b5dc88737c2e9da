package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dep2p/go-dhtlink/internal/core/bootstrap"
	"github.com/dep2p/go-dhtlink/pkg/lib/log"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

// stopTimeout 取消竞态下停止后端的超时
const stopTimeout = 5 * time.Second

// Connect 连接 DHT 网络
//
// 已连接或连接中时直接返回 nil。否则置为 Connecting 并同步执行引导流程：
// 成功（包括单机模式）置为 Connected 并启动轮询；被取消或致命错误置为
// Disconnected。致命错误原样返回，不会自动重试。
func (o *Orchestrator) Connect(ctx context.Context) error {
	if o.closed.Load() {
		return ErrClosed
	}

	o.mu.Lock()
	if o.status != types.StatusDisconnected || o.connectDone != nil {
		o.mu.Unlock()
		logger.Debug("已在连接中或已连接，忽略重复的连接请求")
		return nil
	}
	o.cancelFlag.Store(false)
	o.attempts++
	o.standalone = false
	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	o.connectCancel, o.connectDone = cancel, done
	o.setStatusLocked(types.StatusConnecting)
	o.mu.Unlock()
	o.metrics.ObserveConnectAttempt()

	defer func() {
		o.mu.Lock()
		o.connectCancel, o.connectDone = nil, nil
		o.mu.Unlock()
		cancel()
		close(done)
	}()

	outcome, err := o.connector.Run(cctx, o.cancelFlag.Load)
	if err == nil && o.cancelFlag.Load() {
		// Run 已经结束但取消在结果落地前到达，后端不能遗留
		o.stopBackend(ctx)
		err = bootstrap.ErrCancelled
	}
	if err != nil {
		return o.connectFailed(err)
	}

	o.connectSucceeded(ctx, outcome)
	o.refreshNow(ctx)
	return nil
}

func (o *Orchestrator) connectFailed(err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.peerID = ""
	o.setStatusLocked(types.StatusDisconnected)
	if errors.Is(err, bootstrap.ErrCancelled) {
		o.metrics.ObserveConnectResult("cancelled")
		logger.Info("连接已取消")
		return ErrCancelled
	}
	o.metrics.ObserveConnectResult("failed")
	logger.Warn("连接失败", "attempt", o.attempts, "error", err)
	return err
}

func (o *Orchestrator) connectSucceeded(ctx context.Context, outcome bootstrap.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.attempts = 0
	o.peerID = outcome.PeerID
	o.standalone = outcome.Standalone()
	o.established = true
	o.setStatusLocked(types.StatusConnected)

	if o.standalone {
		o.metrics.ObserveConnectResult("standalone")
		logger.Info("未连上任何引导节点，以单机模式运行，仍可接受入站连接",
			"peerID", log.TruncateID(o.peerID, 8),
			"bootstrapAttempted", outcome.Attempted)
	} else {
		o.metrics.ObserveConnectResult("connected")
	}

	// 轮询器内部加锁；锁内启动保证与 Disconnect 不交错
	o.poller.Start(ctx)
}

// refreshNow 连接成功后立即获取一次快照
//
// 只更新快照与 NAT 状态，连接状态只由轮询修改。
func (o *Orchestrator) refreshNow(ctx context.Context) {
	r, err := o.health.Fetch(ctx)
	if err != nil {
		logger.Debug("获取初始健康快照失败", "error", err)
		return
	}
	o.applySnapshot(r)
}

// Cancel 取消正在进行的连接
//
// 只在有连接流程进行时生效：设置取消标志并等待流程在下一个检查点中止、
// 后端被停止。没有可取消的流程时返回 nil，可重复调用。
func (o *Orchestrator) Cancel(ctx context.Context) error {
	o.mu.Lock()
	if o.status != types.StatusConnecting || o.connectDone == nil {
		o.mu.Unlock()
		return nil
	}
	o.cancelFlag.Store(true)
	cancel, done := o.connectCancel, o.connectDone
	o.mu.Unlock()

	logger.Info("请求取消连接")
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect 断开网络
//
// 先取消进行中的连接，再停止轮询与后端，清空 PeerID、快照、NAT 状态、
// 节点列表和尝试次数，最后置为 Disconnected。已断开时返回 nil。
func (o *Orchestrator) Disconnect(ctx context.Context) error {
	o.mu.Lock()
	done := o.connectDone
	if o.status == types.StatusDisconnected && done == nil && !o.established {
		o.mu.Unlock()
		return nil
	}
	if done != nil && o.status == types.StatusConnecting {
		o.cancelFlag.Store(true)
		o.connectCancel()
	}
	o.mu.Unlock()

	// 等待进行中的连接流程完全结束（包括成功后的收尾）
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	o.poller.Stop()

	var stopErr error
	if o.backend != nil {
		if err := o.backend.Stop(ctx); err != nil {
			stopErr = fmt.Errorf("stop backend: %w", err)
			logger.Warn("停止后端失败", "error", err)
		}
	}

	o.store.Reset()
	o.nat.Reset()
	if o.peers != nil {
		o.peers.Reset()
	}

	o.mu.Lock()
	o.peerID = ""
	o.attempts = 0
	o.standalone = false
	o.established = false
	o.setStatusLocked(types.StatusDisconnected)
	o.mu.Unlock()

	logger.Info("已断开网络")
	return stopErr
}

func (o *Orchestrator) stopBackend(ctx context.Context) {
	if o.backend == nil {
		return
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	if err := o.backend.Stop(stopCtx); err != nil {
		logger.Warn("停止后端失败", "error", err)
	}
}
