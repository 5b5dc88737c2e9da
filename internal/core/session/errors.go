package session

import "errors"

var (
	// ErrChannelNotOpen 数据通道未打开
	ErrChannelNotOpen = errors.New("session: data channel not open")

	// ErrNoSignaling 未配置信令客户端
	ErrNoSignaling = errors.New("session: signaling is nil")

	// ErrFactoryClosed 工厂已关闭
	ErrFactoryClosed = errors.New("session: factory closed")

	// ErrSessionExists 与该节点的会话已存在
	ErrSessionExists = errors.New("session: session already exists")
)
