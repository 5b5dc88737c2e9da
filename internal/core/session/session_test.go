package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dhtlink/config"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/tests/mocks"
)

type stateRecorder struct {
	mu     sync.Mutex
	states []interfaces.SessionState
}

func (r *stateRecorder) record(st interfaces.SessionState) {
	r.mu.Lock()
	r.states = append(r.states, st)
	r.mu.Unlock()
}

func (r *stateRecorder) has(st interfaces.SessionState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.states {
		if s == st {
			return true
		}
	}
	return false
}

// TestSession_SendBeforeOpen 数据通道未打开时不能发送
func TestSession_SendBeforeOpen(t *testing.T) {
	s := newSession("s1", "peer", nil, nil)
	assert.ErrorIs(t, s.Send([]byte("hi")), ErrChannelNotOpen)
	assert.NoError(t, s.Close())
	assert.ErrorIs(t, s.Send([]byte("hi")), ErrChannelNotOpen)
}

// TestSession_StateTransitions 重复状态不回调，终止状态之后不再变化
func TestSession_StateTransitions(t *testing.T) {
	rec := &stateRecorder{}
	s := newSession("s1", "peer", nil, rec.record)

	s.setState(interfaces.SessionConnecting)
	s.setState(interfaces.SessionConnecting)
	s.setState(interfaces.SessionFailed)
	s.setState(interfaces.SessionConnected)

	assert.Equal(t, []interfaces.SessionState{interfaces.SessionConnecting, interfaces.SessionFailed}, rec.states)
	assert.Equal(t, interfaces.SessionFailed, s.State())
}

// TestNewFactory_NilSignaling 需要信令客户端
func TestNewFactory_NilSignaling(t *testing.T) {
	_, err := NewFactory(nil, nil)
	assert.ErrorIs(t, err, ErrNoSignaling)
}

// TestProvideFactory_ByDiscoveryMode 只有信令通道才创建会话工厂
func TestProvideFactory_ByDiscoveryMode(t *testing.T) {
	sig := mocks.NewMockSignaling("me")
	cfg := config.NewConfig()
	cfg.Backend.Endpoint = "http://127.0.0.1:7300"

	cfg.Discovery.Mode = config.DiscoveryModeNative
	res, err := ProvideFactory(Params{Config: cfg, Signaling: sig})
	require.NoError(t, err)
	assert.Nil(t, res.Factory)
	assert.Nil(t, res.Sessions)

	cfg.Discovery.Mode = config.DiscoveryModeSignaling
	res, err = ProvideFactory(Params{Config: cfg, Signaling: sig})
	require.NoError(t, err)
	require.NotNil(t, res.Factory)
	assert.NoError(t, res.Factory.Close())
}

// TestFactory_IgnoresForeignMessages 发给其他节点的消息被忽略
func TestFactory_IgnoresForeignMessages(t *testing.T) {
	sig := mocks.NewMockSignaling("me")
	f, err := NewFactory(sig, nil)
	require.NoError(t, err)
	f.SetAcceptFunc(func(*Session) func(interfaces.SessionState) { return nil })

	sig.Deliver(interfaces.SignalMessage{Type: interfaces.SignalOffer, From: "x", To: "someone-else", SDP: "v=0"})
	_, ok := f.Session("x")
	assert.False(t, ok)
	assert.NoError(t, f.Close())
}

// pipe 把两端的信令消息按顺序互相投递
func pipe(t *testing.T, a, b *mocks.MockSignaling) {
	t.Helper()
	ab := make(chan interfaces.SignalMessage, 128)
	ba := make(chan interfaces.SignalMessage, 128)
	a.SendFunc = func(_ context.Context, msg interfaces.SignalMessage) error { ab <- msg; return nil }
	b.SendFunc = func(_ context.Context, msg interfaces.SignalMessage) error { ba <- msg; return nil }

	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	forward := func(in chan interfaces.SignalMessage, to *mocks.MockSignaling) {
		for {
			select {
			case msg := <-in:
				to.Deliver(msg)
			case <-done:
				return
			}
		}
	}
	go forward(ab, b)
	go forward(ba, a)
}

// TestFactory_Loopback 两个工厂通过内存信令建立会话并收发数据
func TestFactory_Loopback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping WebRTC loopback in short mode")
	}

	sigA := mocks.NewMockSignaling("alice")
	sigB := mocks.NewMockSignaling("bob")
	pipe(t, sigA, sigB)

	se := webrtc.SettingEngine{}
	se.SetIncludeLoopbackCandidate(true)

	fa, err := NewFactory(sigA, nil, WithSettingEngine(se))
	require.NoError(t, err)
	defer fa.Close()
	fb, err := NewFactory(sigB, nil, WithSettingEngine(se))
	require.NoError(t, err)
	defer fb.Close()

	received := make(chan []byte, 1)
	recB := &stateRecorder{}
	fb.SetAcceptFunc(func(s *Session) func(interfaces.SessionState) {
		s.OnMessage(func(data []byte) { received <- data })
		return recB.record
	})

	recA := &stateRecorder{}
	s, err := fa.Dial(context.Background(), "bob", recA.record)
	require.NoError(t, err)
	assert.Equal(t, "bob", s.PeerID())

	require.Eventually(t, func() bool { return recA.has(interfaces.SessionConnected) }, 20*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Send([]byte("hello")))

	select {
	case data := <-received:
		assert.Equal(t, "hello", string(data))
	case <-time.After(10 * time.Second):
		t.Fatal("no data received")
	}

	_, err = fa.Dial(context.Background(), "bob", nil)
	assert.ErrorIs(t, err, ErrSessionExists)

	require.NoError(t, s.Close())
	assert.True(t, recA.has(interfaces.SessionClosed))
	_, ok := fa.Session("bob")
	assert.False(t, ok)
}
