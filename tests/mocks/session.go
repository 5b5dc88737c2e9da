package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/dep2p/go-dhtlink/pkg/interfaces"
)

// ErrSessionNotOpen MockSession 未打开
var ErrSessionNotOpen = errors.New("mocks: session not open")

// MockSession 模拟点对点会话
type MockSession struct {
	IDValue     string
	PeerIDValue string

	mu      sync.Mutex
	open    bool
	closed  bool
	sent    [][]byte
	onState func(interfaces.SessionState)
}

var _ interfaces.Session = (*MockSession)(nil)

// ID 会话 ID
func (s *MockSession) ID() string { return s.IDValue }

// PeerID 对端 ID
func (s *MockSession) PeerID() string { return s.PeerIDValue }

// Send 发送数据
func (s *MockSession) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrSessionNotOpen
	}
	s.sent = append(s.sent, append([]byte(nil), data...))
	return nil
}

// Close 关闭会话
func (s *MockSession) Close() error {
	s.mu.Lock()
	cb := s.onState
	already := s.closed
	s.closed = true
	s.open = false
	s.mu.Unlock()
	if !already && cb != nil {
		cb(interfaces.SessionClosed)
	}
	return nil
}

// Transition 模拟一次状态变化
func (s *MockSession) Transition(state interfaces.SessionState) {
	s.mu.Lock()
	s.open = state == interfaces.SessionConnected
	cb := s.onState
	s.mu.Unlock()
	if cb != nil {
		cb(state)
	}
}

// SetOnState 设置状态回调（模拟入站会话）
func (s *MockSession) SetOnState(cb func(interfaces.SessionState)) {
	s.mu.Lock()
	s.onState = cb
	s.mu.Unlock()
}

// SentData 返回已发送的数据
func (s *MockSession) SentData() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

// Closed 是否已关闭
func (s *MockSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MockSessionFactory 模拟会话工厂
type MockSessionFactory struct {
	DialFunc func(ctx context.Context, peerID string) error

	mu       sync.Mutex
	sessions map[string]*MockSession
	closed   bool
}

var _ interfaces.SessionFactory = (*MockSessionFactory)(nil)

// NewMockSessionFactory 创建 MockSessionFactory
func NewMockSessionFactory() *MockSessionFactory {
	return &MockSessionFactory{sessions: make(map[string]*MockSession)}
}

// Dial 创建会话（初始状态为 connecting）
func (f *MockSessionFactory) Dial(ctx context.Context, peerID string, onState func(interfaces.SessionState)) (interfaces.Session, error) {
	if f.DialFunc != nil {
		if err := f.DialFunc(ctx, peerID); err != nil {
			return nil, err
		}
	}
	s := &MockSession{IDValue: "session-" + peerID, PeerIDValue: peerID, onState: onState}
	f.mu.Lock()
	f.sessions[peerID] = s
	f.mu.Unlock()
	return s, nil
}

// Session 返回指定对端的会话
func (f *MockSessionFactory) Session(peerID string) *MockSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[peerID]
}

// Close 关闭所有会话
func (f *MockSessionFactory) Close() error {
	f.mu.Lock()
	sessions := make([]*MockSession, 0, len(f.sessions))
	for _, s := range f.sessions {
		sessions = append(sessions, s)
	}
	f.closed = true
	f.mu.Unlock()
	for _, s := range sessions {
		_ = s.Close()
	}
	return nil
}
