package interfaces

import "context"

// SessionState 点对点会话状态
type SessionState int

const (
	// SessionNew 新建
	SessionNew SessionState = iota
	// SessionConnecting 协商中
	SessionConnecting
	// SessionConnected 已连接
	SessionConnected
	// SessionFailed 失败
	SessionFailed
	// SessionClosed 已关闭
	SessionClosed
)

// String 返回会话状态的字符串表示
func (s SessionState) String() string {
	switch s {
	case SessionConnecting:
		return "connecting"
	case SessionConnected:
		return "connected"
	case SessionFailed:
		return "failed"
	case SessionClosed:
		return "closed"
	default:
		return "new"
	}
}

// Session 点对点会话（回退通道下的直连）
type Session interface {
	// ID 会话 ID
	ID() string

	// PeerID 对端 ID
	PeerID() string

	// Send 发送数据，仅在数据通道打开时有效
	Send(data []byte) error

	// Close 关闭会话
	Close() error
}

// SessionFactory 通过信令建立点对点会话
type SessionFactory interface {
	// Dial 向 peerID 发起会话，onState 在每次状态变化时调用
	Dial(ctx context.Context, peerID string, onState func(SessionState)) (Session, error)

	// Close 关闭所有会话
	Close() error
}
