package discovery

import (
	"context"

	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

// nativeBufSize 发现批次订阅缓冲区
const nativeBufSize = 32

// NativeSource 后端原生推送的发现通道
//
// 批次由后端事件泵发布为 EvtPeerDiscoveryBatch。
type NativeSource struct {
	bus interfaces.EventBus
}

var _ interfaces.DiscoverySource = (*NativeSource)(nil)

// NewNativeSource 创建原生发现通道
func NewNativeSource(bus interfaces.EventBus) (*NativeSource, error) {
	if bus == nil {
		return nil, ErrNoEventBus
	}
	return &NativeSource{bus: bus}, nil
}

// Kind 返回通道类型
func (s *NativeSource) Kind() interfaces.DiscoveryKind {
	return interfaces.DiscoveryNative
}

// Run 订阅发现批次直到 ctx 结束
func (s *NativeSource) Run(ctx context.Context, sink func([]types.PeerDiscoveryEntry)) error {
	sub, err := s.bus.Subscribe(new(types.EvtPeerDiscoveryBatch), interfaces.BufSize(nativeBufSize))
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-sub.Out():
			if !ok {
				return nil
			}
			ev, ok := raw.(*types.EvtPeerDiscoveryBatch)
			if !ok {
				continue
			}
			sink(ev.Entries)
		}
	}
}
