// Package types 定义 dhtlink 的公共数据结构
//
// 这是最底层的包，不依赖任何其他 dhtlink 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - status.go  - ConnectionStatus 连接状态
//   - health.go  - HealthSnapshot, Reachability, Confidence
//   - nat.go     - NatStatusEvent, NatNotification, NotifyLevel
//   - peer.go    - PeerDiscoveryEntry, ConnectedPeer, PeerStatus
//   - events.go  - 事件总线上的事件类型（EvtXXX）
//
// # 事件类型
//
//   - EvtStatusChanged       - 连接状态变化
//   - EvtHealthUpdated       - 健康快照被替换
//   - EvtNatNotification     - NAT 状态变化通知
//   - EvtPeerDiscoveryBatch  - 后端推送的发现批次
//   - EvtNatStatusUpdate     - 后端推送的 NAT 状态
//   - EvtDiscoverySetChanged - 可见发现集合被替换
//   - EvtPeerListChanged     - 已连接节点列表变化
//
// 事件以指针形式发布，订阅时传入 new(types.EvtXXX)。
//
// # 使用示例
//
//	import "github.com/dep2p/go-dhtlink/pkg/types"
//
//	if snap != nil && snap.NatStatus() == types.ReachabilityPrivate {
//	    // 位于 NAT 之后
//	}
package types
