package mocks

import (
	"context"
	"sync"

	"github.com/dep2p/go-dhtlink/pkg/interfaces"
)

// MockSignaling 模拟信令服务客户端
type MockSignaling struct {
	LocalIDValue string

	ConnectFunc func(ctx context.Context) error
	SendFunc    func(ctx context.Context, msg interfaces.SignalMessage) error

	mu        sync.Mutex
	handler   func(interfaces.SignalMessage)
	peers     chan []string
	sent      []interfaces.SignalMessage
	connected bool
	closed    bool
}

var _ interfaces.Signaling = (*MockSignaling)(nil)

// NewMockSignaling 创建 MockSignaling
func NewMockSignaling(localID string) *MockSignaling {
	return &MockSignaling{
		LocalIDValue: localID,
		peers:        make(chan []string, 16),
	}
}

// Connect 连接
func (m *MockSignaling) Connect(ctx context.Context) error {
	if m.ConnectFunc != nil {
		if err := m.ConnectFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	return nil
}

// LocalID 返回本地 ID
func (m *MockSignaling) LocalID() string {
	return m.LocalIDValue
}

// Peers 返回名单通道
func (m *MockSignaling) Peers() <-chan []string {
	return m.peers
}

// SetOnMessage 设置消息处理函数
func (m *MockSignaling) SetOnMessage(handler func(interfaces.SignalMessage)) {
	m.mu.Lock()
	m.handler = handler
	m.mu.Unlock()
}

// Send 发送消息
func (m *MockSignaling) Send(ctx context.Context, msg interfaces.SignalMessage) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return nil
}

// Close 关闭
func (m *MockSignaling) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// PushRoster 推送一份名单
func (m *MockSignaling) PushRoster(ids ...string) {
	m.peers <- ids
}

// Deliver 投递一条入站消息
func (m *MockSignaling) Deliver(msg interfaces.SignalMessage) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h(msg)
	}
}

// Sent 返回已发送的消息
func (m *MockSignaling) Sent() []interfaces.SignalMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interfaces.SignalMessage(nil), m.sent...)
}

// Connected 是否已连接
func (m *MockSignaling) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Closed 是否已关闭
func (m *MockSignaling) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
