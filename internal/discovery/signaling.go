package discovery

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

const (
	// seenCacheSize 最近见过的信令节点数上限
	seenCacheSize = 512

	// DefaultRetryDelay 连接信令服务失败后的重试间隔
	DefaultRetryDelay = 3 * time.Second
)

// SignalingSource 信令名单发现通道
//
// 名单只有节点 ID，没有地址。本实例自己的 ID 被过滤。
type SignalingSource struct {
	sig        interfaces.Signaling
	seen       *lru.Cache[string, time.Time]
	clock      clock.Clock
	retryDelay time.Duration
}

var _ interfaces.DiscoverySource = (*SignalingSource)(nil)

// SignalingOption 信令发现通道选项
type SignalingOption func(*SignalingSource)

// WithRetryDelay 设置首次连接失败后的重试间隔
func WithRetryDelay(d time.Duration) SignalingOption {
	return func(s *SignalingSource) {
		if d > 0 {
			s.retryDelay = d
		}
	}
}

// WithClock 设置时钟（测试使用 clock.Mock）
func WithClock(c clock.Clock) SignalingOption {
	return func(s *SignalingSource) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewSignalingSource 创建信令发现通道
func NewSignalingSource(sig interfaces.Signaling, opts ...SignalingOption) (*SignalingSource, error) {
	if sig == nil {
		return nil, ErrNoSignaling
	}
	seen, err := lru.New[string, time.Time](seenCacheSize)
	if err != nil {
		return nil, err
	}
	s := &SignalingSource{
		sig:        sig,
		seen:       seen,
		clock:      clock.New(),
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Kind 返回通道类型
func (s *SignalingSource) Kind() interfaces.DiscoveryKind {
	return interfaces.DiscoverySignaling
}

// LastSeen 返回节点最近一次出现在名单中的时间（包括已离开名单的节点）
func (s *SignalingSource) LastSeen(peerID string) (time.Time, bool) {
	return s.seen.Get(peerID)
}

// Run 连接信令服务并转发名单直到 ctx 结束
//
// 连接失败时按固定间隔重试，连接建立后的断线重连由信令客户端负责。
func (s *SignalingSource) Run(ctx context.Context, sink func([]types.PeerDiscoveryEntry)) error {
	if err := s.connect(ctx); err != nil {
		return err
	}
	self := s.sig.LocalID()
	logger.Info("已连接信令服务", "localID", self)

	rosters := s.sig.Peers()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ids, ok := <-rosters:
			if !ok {
				return nil
			}
			sink(s.toEntries(self, ids))
		}
	}
}

// connect 重试直到连接成功或 ctx 结束
func (s *SignalingSource) connect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		err := s.sig.Connect(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("连接信令服务失败，稍后重试", "attempt", attempt, "delay", s.retryDelay, "error", err)

		timer := s.clock.Timer(s.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *SignalingSource) toEntries(self string, ids []string) []types.PeerDiscoveryEntry {
	now := s.clock.Now()
	entries := make([]types.PeerDiscoveryEntry, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == self {
			continue
		}
		s.seen.Add(id, now)
		entries = append(entries, types.PeerDiscoveryEntry{PeerID: id, LastSeen: now})
	}
	return entries
}
