// Package poller 实现健康快照轮询
//
// 每个周期获取一次健康快照并交给 Sink 处理；每 N 个周期在节点数大于 0 时
// 后台刷新一次已连接节点列表，刷新失败只记录日志。上一个周期尚未结束时
// 新到的周期被跳过，同一时刻最多只有一个周期在运行。
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"

	"github.com/dep2p/go-dhtlink/internal/core/health"
	"github.com/dep2p/go-dhtlink/internal/core/metrics"
	"github.com/dep2p/go-dhtlink/pkg/lib/log"
)

var logger = log.Logger("core/poller")

const (
	// DefaultInterval 默认轮询间隔
	DefaultInterval = 2 * time.Second
	// DefaultPeerRefreshEvery 默认每 3 个周期刷新一次节点列表
	DefaultPeerRefreshEvery = 3

	refreshKey = "connected-peers"
)

// Fetcher 获取健康快照
type Fetcher interface {
	Fetch(ctx context.Context) (health.Result, error)
}

// Sink 处理一次成功的获取结果
type Sink func(ctx context.Context, r health.Result)

// Refresher 刷新已连接节点列表
type Refresher func(ctx context.Context) error

// Option 轮询器选项
type Option func(*Poller)

// WithClock 设置时钟（测试中使用 clock.Mock）
func WithClock(c clock.Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithInterval 设置轮询间隔
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithPeerRefresh 设置节点列表刷新函数与周期
func WithPeerRefresh(every int, fn Refresher) Option {
	return func(p *Poller) {
		if every > 0 {
			p.refreshEvery = every
		}
		p.refresh = fn
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// Poller 健康快照轮询器
type Poller struct {
	fetcher      Fetcher
	sink         Sink
	refresh      Refresher
	clock        clock.Clock
	metrics      *metrics.Metrics
	interval     time.Duration
	refreshEvery int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	inflight atomic.Bool
	ticks    atomic.Uint64
	work     sync.WaitGroup
	group    singleflight.Group
}

// New 创建轮询器
func New(fetcher Fetcher, sink Sink, opts ...Option) *Poller {
	p := &Poller{
		fetcher:      fetcher,
		sink:         sink,
		clock:        clock.New(),
		interval:     DefaultInterval,
		refreshEvery: DefaultPeerRefreshEvery,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start 启动轮询；已在运行时返回 false
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.done = make(chan struct{})
	p.ticks.Store(0)

	// ticker 在启动 goroutine 之前创建，保证启动后的第一次时钟推进一定被观察到
	ticker := p.clock.Ticker(p.interval)
	go p.loop(ctx, ticker, p.done)

	logger.Info("健康轮询已启动", "interval", p.interval)
	return true
}

// Stop 停止轮询并等待正在运行的周期结束；未运行时返回 false
func (p *Poller) Stop() bool {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	p.work.Wait()

	logger.Info("健康轮询已停止")
	return true
}

// Running 是否在运行
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.inflight.CompareAndSwap(false, true) {
				logger.Debug("上一个轮询周期尚未结束，跳过本周期")
				p.metrics.ObservePoll(metrics.PollSkipped)
				continue
			}
			p.work.Add(1)
			go func() {
				defer p.work.Done()
				defer p.inflight.Store(false)
				p.poll(ctx)
			}()
		}
	}
}

// PollOnce 同步执行一个轮询周期；已有周期在运行时跳过并返回 false
func (p *Poller) PollOnce(ctx context.Context) bool {
	if !p.inflight.CompareAndSwap(false, true) {
		p.metrics.ObservePoll(metrics.PollSkipped)
		return false
	}
	defer p.inflight.Store(false)
	p.poll(ctx)
	return true
}

func (p *Poller) poll(ctx context.Context) {
	n := p.ticks.Add(1)

	r, err := p.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// 瞬时错误：保留旧快照，状态不变
		logger.Warn("获取健康快照失败", "error", err)
		p.metrics.ObservePoll(metrics.PollError)
		return
	}
	if ctx.Err() != nil {
		return
	}

	if r.CountOnly {
		p.metrics.ObservePoll(metrics.PollCount)
	} else {
		p.metrics.ObservePoll(metrics.PollOK)
	}
	p.metrics.SetPeerCount(r.PeerCount)

	if p.sink != nil {
		p.sink(ctx, r)
	}

	if p.refresh != nil && r.PeerCount > 0 && n%uint64(p.refreshEvery) == 0 {
		p.refreshPeers(ctx)
	}
}

// refreshPeers 后台刷新节点列表，并发的刷新请求合并为一次
func (p *Poller) refreshPeers(ctx context.Context) {
	p.work.Add(1)
	go func() {
		defer p.work.Done()
		_, err, shared := p.group.Do(refreshKey, func() (interface{}, error) {
			return nil, p.refresh(ctx)
		})
		if err != nil {
			logger.Debug("后台刷新节点列表失败", "error", err, "shared", shared)
		}
	}()
}
