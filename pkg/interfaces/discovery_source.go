package interfaces

import (
	"context"

	"github.com/dep2p/go-dhtlink/pkg/types"
)

// DiscoveryKind 发现通道类型
type DiscoveryKind string

const (
	// DiscoveryNative 后端原生推送
	DiscoveryNative DiscoveryKind = "native"
	// DiscoverySignaling 信令名单（无原生后端时的回退通道）
	DiscoverySignaling DiscoveryKind = "signaling"
)

// DiscoverySource 定义发现通道
//
// 每收到一个完整批次调用一次 sink；批次即当前完整的已知集合。
type DiscoverySource interface {
	// Kind 返回通道类型
	Kind() DiscoveryKind

	// Run 运行通道直到 ctx 结束
	Run(ctx context.Context, sink func([]types.PeerDiscoveryEntry)) error
}
