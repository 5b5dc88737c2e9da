package peers

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyConnected 已存在地址重叠的已连接节点
	ErrAlreadyConnected = errors.New("peers: already connected")

	// ErrConnectUnconfirmed 连接请求已发出，但节点列表没有增长
	ErrConnectUnconfirmed = errors.New("peers: connection not confirmed")

	// ErrPeerNotFound 节点不在列表中
	ErrPeerNotFound = errors.New("peers: peer not found")

	// ErrNoSession 与该节点没有会话
	ErrNoSession = errors.New("peers: no session with peer")

	// ErrNoTransport 既没有后端也没有会话工厂
	ErrNoTransport = errors.New("peers: no backend or session factory configured")
)

// OpError 节点操作错误
type OpError struct {
	Op      string // connect / disconnect
	Address string
	Err     error
}

// Error 实现 error 接口
func (e *OpError) Error() string {
	return fmt.Sprintf("peers: %s %s: %v", e.Op, e.Address, e.Err)
}

// Unwrap 支持 errors.Unwrap
func (e *OpError) Unwrap() error {
	return e.Err
}
