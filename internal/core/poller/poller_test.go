package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dhtlink/internal/core/health"
)

// fakeFetcher 按顺序返回预设结果
type fakeFetcher struct {
	mu      sync.Mutex
	results []health.Result
	errs    []error
	calls   int
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context) (health.Result, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return health.Result{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if i < len(f.errs) && f.errs[i] != nil {
		return health.Result{}, f.errs[i]
	}
	if len(f.results) == 0 {
		return health.Result{}, nil
	}
	if i >= len(f.results) {
		return f.results[len(f.results)-1], nil
	}
	return f.results[i], nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingSink struct {
	mu  sync.Mutex
	got []health.Result
}

func (s *recordingSink) Apply(_ context.Context, r health.Result) {
	s.mu.Lock()
	s.got = append(s.got, r)
	s.mu.Unlock()
}

func (s *recordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

// TestPoller_StartStopIdempotent 重复启动与停止
func TestPoller_StartStopIdempotent(t *testing.T) {
	p := New(&fakeFetcher{}, nil, WithClock(clock.NewMock()))

	assert.True(t, p.Start(context.Background()))
	assert.False(t, p.Start(context.Background()), "second start must be a no-op")
	assert.True(t, p.Running())

	assert.True(t, p.Stop())
	assert.False(t, p.Stop())
	assert.False(t, p.Running())

	// 停止后可以再次启动
	assert.True(t, p.Start(context.Background()))
	p.Stop()
}

// TestPoller_TicksOnInterval 按间隔轮询
func TestPoller_TicksOnInterval(t *testing.T) {
	mock := clock.NewMock()
	fetcher := &fakeFetcher{results: []health.Result{{PeerCount: 1}}}
	sink := &recordingSink{}
	p := New(fetcher, sink.Apply, WithClock(mock), WithInterval(2*time.Second))

	p.Start(context.Background())
	defer p.Stop()

	mock.Add(2 * time.Second)
	require.Eventually(t, func() bool { return sink.Len() == 1 }, time.Second, 5*time.Millisecond)

	mock.Add(2 * time.Second)
	require.Eventually(t, func() bool { return sink.Len() == 2 }, time.Second, 5*time.Millisecond)
}

// TestPoller_FetchErrorSkipsSink 获取失败不调用 Sink
func TestPoller_FetchErrorSkipsSink(t *testing.T) {
	fetcher := &fakeFetcher{errs: []error{errors.New("timeout")}, results: []health.Result{{}, {PeerCount: 2}}}
	sink := &recordingSink{}
	p := New(fetcher, sink.Apply, WithClock(clock.NewMock()))

	assert.True(t, p.PollOnce(context.Background()))
	assert.Equal(t, 0, sink.Len())

	assert.True(t, p.PollOnce(context.Background()))
	assert.Equal(t, 1, sink.Len())
}

// TestPoller_ReentrancyGuard 上一个周期未结束时跳过新周期
func TestPoller_ReentrancyGuard(t *testing.T) {
	fetcher := &fakeFetcher{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	p := New(fetcher, nil, WithClock(clock.NewMock()))

	done := make(chan bool)
	go func() { done <- p.PollOnce(context.Background()) }()
	<-fetcher.entered

	assert.False(t, p.PollOnce(context.Background()), "overlapping tick must be skipped")

	close(fetcher.block)
	assert.True(t, <-done)
	assert.Equal(t, 1, fetcher.Calls())
}

// TestPoller_PeerRefreshEveryN 每 N 个周期且有节点时刷新节点列表
func TestPoller_PeerRefreshEveryN(t *testing.T) {
	var refreshes atomic.Int32
	refreshed := make(chan struct{}, 8)
	fetcher := &fakeFetcher{results: []health.Result{{PeerCount: 1}}}
	p := New(fetcher, nil,
		WithClock(clock.NewMock()),
		WithPeerRefresh(3, func(context.Context) error {
			refreshes.Add(1)
			refreshed <- struct{}{}
			return errors.New("refresh failures are swallowed")
		}),
	)

	for i := 0; i < 6; i++ {
		require.True(t, p.PollOnce(context.Background()))
	}
	<-refreshed
	<-refreshed
	p.work.Wait()
	assert.Equal(t, int32(2), refreshes.Load())
}

// TestPoller_NoRefreshWithoutPeers 没有节点时不刷新
func TestPoller_NoRefreshWithoutPeers(t *testing.T) {
	var refreshes atomic.Int32
	fetcher := &fakeFetcher{results: []health.Result{{PeerCount: 0}}}
	p := New(fetcher, nil,
		WithClock(clock.NewMock()),
		WithPeerRefresh(1, func(context.Context) error {
			refreshes.Add(1)
			return nil
		}),
	)

	for i := 0; i < 3; i++ {
		p.PollOnce(context.Background())
	}
	p.work.Wait()
	assert.Zero(t, refreshes.Load())
}

// TestPoller_StopWaitsForInflight Stop 等待正在运行的周期
func TestPoller_StopWaitsForInflight(t *testing.T) {
	mock := clock.NewMock()
	fetcher := &fakeFetcher{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	p := New(fetcher, nil, WithClock(mock))

	p.Start(context.Background())
	mock.Add(DefaultInterval)
	<-fetcher.entered

	// 阻塞中的 Fetch 在 ctx 取消后返回
	assert.True(t, p.Stop())
	assert.False(t, p.inflight.Load())
}
