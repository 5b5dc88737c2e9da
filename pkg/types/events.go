// Package types 定义 dhtlink 公共类型
//
// 本文件定义事件总线上流转的事件类型。
package types

import (
	"time"
)

// ============================================================================
//                              Event - 事件接口
// ============================================================================

// Event 基础事件接口
type Event interface {
	// Type 返回事件类型
	Type() string

	// Timestamp 返回事件时间戳
	Timestamp() time.Time
}

// BaseEvent 基础事件实现
type BaseEvent struct {
	EventType string
	Time      time.Time
}

// Type 返回事件类型
func (e BaseEvent) Type() string {
	return e.EventType
}

// Timestamp 返回事件时间戳
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// NewBaseEvent 创建基础事件
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
	}
}

// 事件类型名
const (
	EventStatusChanged       = "status.changed"
	EventHealthUpdated       = "health.updated"
	EventNatNotification     = "nat.notification"
	EventNatStatusUpdate     = "nat-status-update"
	EventPeerDiscoveryBatch  = "peer-discovery-batch"
	EventDiscoverySetChanged = "discovery.changed"
	EventPeerListChanged     = "peers.changed"
	EventPeerOperationFailed = "peers.failed"
)

// ============================================================================
//                              编排器事件
// ============================================================================

// EvtStatusChanged 连接状态变化
type EvtStatusChanged struct {
	BaseEvent
	Old     ConnectionStatus
	New     ConnectionStatus
	Attempt uint64
	// Standalone 已连接但没有任何引导节点可达
	Standalone bool
}

// EvtHealthUpdated 健康快照已替换
type EvtHealthUpdated struct {
	BaseEvent
	Snapshot *HealthSnapshot
}

// EvtNatNotification NAT 状态变化通知
type EvtNatNotification struct {
	BaseEvent
	Notification NatNotification
}

// ============================================================================
//                              后端推送事件
// ============================================================================

// EvtPeerDiscoveryBatch 后端推送的发现批次（整体替换语义）
type EvtPeerDiscoveryBatch struct {
	BaseEvent
	Entries []PeerDiscoveryEntry
}

// EvtNatStatusUpdate 后端推送的 NAT 状态
type EvtNatStatusUpdate struct {
	BaseEvent
	Status NatStatusEvent
}

// BackendEvent 后端事件流中的单条事件
//
// 同一时刻只有与 Name 对应的字段有效。
type BackendEvent struct {
	Name      string
	Discovery []PeerDiscoveryEntry
	Nat       *NatStatusEvent
}

// ============================================================================
//                              发现与节点事件
// ============================================================================

// EvtDiscoverySetChanged 可见发现集合被替换
type EvtDiscoverySetChanged struct {
	BaseEvent
	Entries []PeerDiscoveryEntry
}

// EvtPeerListChanged 已连接节点列表变化
type EvtPeerListChanged struct {
	BaseEvent
	Peers []ConnectedPeer
}

// EvtPeerOperationFailed 节点连接/断开失败
type EvtPeerOperationFailed struct {
	BaseEvent
	Op      string
	Address string
	Err     error
}
