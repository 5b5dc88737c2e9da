package interfaces

import "context"

// SignalType 信令消息类型
type SignalType string

const (
	// SignalRegister 注册本地 ID
	SignalRegister SignalType = "register"
	// SignalRoster 在线名单
	SignalRoster SignalType = "roster"
	// SignalOffer SDP offer
	SignalOffer SignalType = "offer"
	// SignalAnswer SDP answer
	SignalAnswer SignalType = "answer"
	// SignalCandidate ICE 候选
	SignalCandidate SignalType = "candidate"
)

// SignalMessage 信令消息
type SignalMessage struct {
	Type      SignalType `json:"type"`
	ID        string     `json:"id,omitempty"`
	From      string     `json:"from,omitempty"`
	To        string     `json:"to,omitempty"`
	SDP       string     `json:"sdp,omitempty"`
	Candidate string     `json:"candidate,omitempty"`
	Peers     []string   `json:"peers,omitempty"`
}

// Signaling 定义信令会合服务客户端
type Signaling interface {
	// Connect 连接信令服务并注册本地 ID
	Connect(ctx context.Context) error

	// LocalID 返回本实例在信令服务中的 ID
	LocalID() string

	// Peers 返回名单更新通道，每次推送完整名单
	Peers() <-chan []string

	// SetOnMessage 设置 offer/answer/candidate 消息处理函数
	SetOnMessage(handler func(SignalMessage))

	// Send 发送信令消息
	Send(ctx context.Context, msg SignalMessage) error

	// Close 关闭连接
	Close() error
}
