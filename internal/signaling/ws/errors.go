package ws

import "errors"

var (
	// ErrInvalidURL 信令地址无效
	ErrInvalidURL = errors.New("signaling: invalid url")
	// ErrNotConnected 尚未连接
	ErrNotConnected = errors.New("signaling: not connected")
	// ErrClosed 客户端已关闭
	ErrClosed = errors.New("signaling: client closed")
)
