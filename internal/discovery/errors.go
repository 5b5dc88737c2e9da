package discovery

import "errors"

var (
	// ErrPeerNotFound 节点不在可见集合中
	ErrPeerNotFound = errors.New("discovery: peer not found")

	// ErrNoConnectableAddress 节点没有带 /p2p/ 的可连接地址
	ErrNoConnectableAddress = errors.New("discovery: no connectable address")

	// ErrNoEventBus 原生通道需要事件总线
	ErrNoEventBus = errors.New("discovery: native source requires an event bus")

	// ErrNoSignaling 信令通道需要信令客户端
	ErrNoSignaling = errors.New("discovery: signaling source requires a signaling client")
)
