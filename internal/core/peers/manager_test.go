package peers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dhtlink/internal/core/eventbus"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/types"
	"github.com/dep2p/go-dhtlink/tests/mocks"
)

const peerAddr = "/ip4/1.2.3.4/tcp/4001/p2p/QmPeer"

func newNative(t *testing.T, backend *mocks.MockBackend, mock *clock.Mock) (*Manager, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.NewBus()
	m, err := NewManager(Options{Backend: backend, EventBus: bus, Clock: mock})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, bus
}

// connectWithClock 在另一个协程中连接，并推进 mock 时钟直到完成
func connectWithClock(t *testing.T, m *Manager, mock *clock.Mock, addr string) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- m.ConnectToPeer(context.Background(), addr) }()

	var result error
	require.Eventually(t, func() bool {
		mock.Add(DefaultConnectVerifyDelay)
		select {
		case result = <-done:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	return result
}

// TestConnect_RejectsSubstringOverlap "X" 与已有的 "X-suffix" 重叠而被拒绝
func TestConnect_RejectsSubstringOverlap(t *testing.T) {
	backend := mocks.NewMockBackend("local")
	backend.SetConnectedPeers([]types.ConnectedPeer{{ID: "p1", Address: "X-suffix"}})
	m, _ := newNative(t, backend, clock.NewMock())
	_, err := m.Refresh(context.Background())
	require.NoError(t, err)

	err = m.ConnectToPeer(context.Background(), "X")
	assert.ErrorIs(t, err, ErrAlreadyConnected)
	assert.Empty(t, backend.ConnectCalls())

	err = m.ConnectToPeer(context.Background(), "X-suffix")
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}

// TestConnect_NativeConfirmedByCount 节点列表增长即视为成功
func TestConnect_NativeConfirmedByCount(t *testing.T) {
	mock := clock.NewMock()
	backend := mocks.NewMockBackend("local")
	backend.ConnectToPeerFunc = func(_ context.Context, addr string) error {
		backend.SetConnectedPeers([]types.ConnectedPeer{{ID: "QmPeer", Address: addr, Status: types.PeerOnline}})
		return nil
	}
	m, _ := newNative(t, backend, mock)

	require.NoError(t, connectWithClock(t, m, mock, peerAddr))
	assert.Equal(t, []string{peerAddr}, backend.ConnectCalls())
	require.Len(t, m.Peers(), 1)
	assert.Equal(t, "QmPeer", m.Peers()[0].ID)
}

// TestConnect_NativeUnconfirmed 列表没有增长时返回 ErrConnectUnconfirmed
func TestConnect_NativeUnconfirmed(t *testing.T) {
	mock := clock.NewMock()
	backend := mocks.NewMockBackend("local")
	m, bus := newNative(t, backend, mock)

	sub, err := bus.Subscribe(new(types.EvtPeerOperationFailed))
	require.NoError(t, err)
	defer sub.Close()

	err = connectWithClock(t, m, mock, peerAddr)
	assert.ErrorIs(t, err, ErrConnectUnconfirmed)
	assert.Empty(t, m.Peers())

	select {
	case raw := <-sub.Out():
		ev := raw.(*types.EvtPeerOperationFailed)
		assert.Equal(t, "connect", ev.Op)
		assert.Equal(t, peerAddr, ev.Address)
	case <-time.After(time.Second):
		t.Fatal("no failure notification")
	}
}

// TestConnect_BackendError 后端拒绝时列表不变
func TestConnect_BackendError(t *testing.T) {
	backend := mocks.NewMockBackend("local")
	backendErr := errors.New("invalid multiaddr")
	backend.ConnectToPeerFunc = func(context.Context, string) error { return backendErr }
	m, _ := newNative(t, backend, clock.NewMock())

	err := m.ConnectToPeer(context.Background(), peerAddr)
	assert.ErrorIs(t, err, backendErr)

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "connect", opErr.Op)
	assert.Empty(t, m.Peers())
}

// TestConnect_EmptyAddress 空地址
func TestConnect_EmptyAddress(t *testing.T) {
	m, _ := newNative(t, mocks.NewMockBackend("local"), clock.NewMock())
	assert.Error(t, m.ConnectToPeer(context.Background(), "   "))
}

// TestDisconnect_Native 断开成功移除节点；失败保留节点
func TestDisconnect_Native(t *testing.T) {
	backend := mocks.NewMockBackend("local")
	backend.SetConnectedPeers([]types.ConnectedPeer{
		{ID: "QmA", Address: "/ip4/1.1.1.1/tcp/4001/p2p/QmA"},
		{ID: "QmB", Address: "/ip4/2.2.2.2/tcp/4001/p2p/QmB"},
	})
	m, _ := newNative(t, backend, clock.NewMock())
	_, err := m.Refresh(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.DisconnectFromPeer(context.Background(), "/ip4/1.1.1.1/tcp/4001/p2p/QmA"))
	assert.Equal(t, []string{"QmA"}, backend.DisconnectCalls())
	require.Len(t, m.Peers(), 1)

	backend.DisconnectFromPeerFunc = func(context.Context, string) error { return errors.New("peer busy") }
	err = m.DisconnectFromPeer(context.Background(), "QmB")
	assert.Error(t, err)
	require.Len(t, m.Peers(), 1, "failed disconnect keeps the entry")

	err = m.DisconnectFromPeer(context.Background(), "QmZ")
	assert.ErrorIs(t, err, ErrPeerNotFound)
}

// TestRefresh_ReplacesList 刷新整体替换列表并广播
func TestRefresh_ReplacesList(t *testing.T) {
	backend := mocks.NewMockBackend("local")
	m, bus := newNative(t, backend, clock.NewMock())

	backend.SetConnectedPeers([]types.ConnectedPeer{{ID: "QmA"}, {ID: "QmB"}})
	_, err := m.Refresh(context.Background())
	require.NoError(t, err)

	backend.SetConnectedPeers([]types.ConnectedPeer{{ID: "QmC"}})
	list, err := m.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "QmC", list[0].ID)

	// 有状态发射器：新订阅者拿到最新列表
	sub, err := bus.Subscribe(new(types.EvtPeerListChanged))
	require.NoError(t, err)
	defer sub.Close()
	ev := (<-sub.Out()).(*types.EvtPeerListChanged)
	require.Len(t, ev.Peers, 1)
	assert.Equal(t, "QmC", ev.Peers[0].ID)
}

// ============================================================================
//                              回退模式
// ============================================================================

// TestConnect_SessionLifecycle 待定节点随会话状态提升或降级
func TestConnect_SessionLifecycle(t *testing.T) {
	factory := mocks.NewMockSessionFactory()
	m, err := NewManager(Options{Sessions: factory, Clock: clock.NewMock()})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.ConnectToPeer(context.Background(), "bob"))
	require.Len(t, m.Peers(), 1)
	assert.Equal(t, types.PeerAway, m.Peers()[0].Status)
	assert.False(t, m.Native())

	assert.ErrorIs(t, m.Send("bob", []byte("early")), mocks.ErrSessionNotOpen)

	s := factory.Session("bob")
	require.NotNil(t, s)
	s.Transition(interfaces.SessionConnected)
	assert.Equal(t, types.PeerOnline, m.Peers()[0].Status)
	require.NoError(t, m.Send("bob", []byte("hello")))
	assert.Len(t, s.SentData(), 1)

	s.Transition(interfaces.SessionFailed)
	assert.Equal(t, types.PeerOffline, m.Peers()[0].Status)
	assert.ErrorIs(t, m.Send("bob", []byte("late")), ErrNoSession)
}

// TestConnect_SessionDialError 建立会话失败时移除待定节点
func TestConnect_SessionDialError(t *testing.T) {
	factory := mocks.NewMockSessionFactory()
	factory.DialFunc = func(context.Context, string) error { return errors.New("signaling closed") }
	m, err := NewManager(Options{Sessions: factory})
	require.NoError(t, err)

	assert.Error(t, m.ConnectToPeer(context.Background(), "bob"))
	assert.Empty(t, m.Peers())
}

// TestDisconnect_Session 断开会关闭会话
func TestDisconnect_Session(t *testing.T) {
	factory := mocks.NewMockSessionFactory()
	m, err := NewManager(Options{Sessions: factory})
	require.NoError(t, err)

	require.NoError(t, m.ConnectToPeer(context.Background(), "/ip4/1.2.3.4/udp/9/p2p/bob"))
	require.NoError(t, m.DisconnectFromPeer(context.Background(), "bob"))
	assert.True(t, factory.Session("bob").Closed())
	assert.Empty(t, m.Peers())
}

// TestConnect_NoTransport 没有任何传输
func TestConnect_NoTransport(t *testing.T) {
	m, err := NewManager(Options{})
	require.NoError(t, err)
	assert.ErrorIs(t, m.ConnectToPeer(context.Background(), "bob"), ErrNoTransport)
}

// TestAccept_InboundSession 入站会话登记为待定节点并随状态变化
func TestAccept_InboundSession(t *testing.T) {
	m, err := NewManager(Options{Sessions: mocks.NewMockSessionFactory(), Clock: clock.NewMock()})
	require.NoError(t, err)
	defer m.Close()

	first := &mocks.MockSession{IDValue: "s1", PeerIDValue: "carol"}
	first.SetOnState(m.Accept(first))
	require.Len(t, m.Peers(), 1)
	assert.Equal(t, "carol", m.Peers()[0].Address)
	assert.Equal(t, types.PeerAway, m.Peers()[0].Status)

	first.Transition(interfaces.SessionConnected)
	assert.Equal(t, types.PeerOnline, m.Peers()[0].Status)
	require.NoError(t, m.Send("carol", []byte("hi")))

	// 同一对端的新会话替换旧会话
	second := &mocks.MockSession{IDValue: "s2", PeerIDValue: "carol"}
	second.SetOnState(m.Accept(second))
	assert.True(t, first.Closed())
	require.Len(t, m.Peers(), 1)
	assert.Equal(t, types.PeerAway, m.Peers()[0].Status)

	second.Transition(interfaces.SessionConnected)
	require.NoError(t, m.Send("carol", []byte("again")))
	assert.Len(t, second.SentData(), 1)
	assert.Len(t, first.SentData(), 1)
}

// TestConnect_ConcurrentSameAddress 同一地址并发连接只有一个真正发起
func TestConnect_ConcurrentSameAddress(t *testing.T) {
	const callers = 8
	backend := mocks.NewMockBackend("local")
	release := make(chan struct{})
	backendErr := errors.New("dial aborted")
	backend.ConnectToPeerFunc = func(context.Context, string) error {
		<-release
		return backendErr
	}
	m, _ := newNative(t, backend, clock.NewMock())

	start := make(chan struct{})
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			<-start
			results <- m.ConnectToPeer(context.Background(), peerAddr)
		}()
	}
	close(start)

	var rejected int
	for rejected < callers-1 {
		select {
		case err := <-results:
			require.ErrorIs(t, err, ErrAlreadyConnected)
			rejected++
		case <-time.After(2 * time.Second):
			t.Fatalf("只有 %d 个调用被拒绝", rejected)
		}
	}
	assert.Len(t, backend.ConnectCalls(), 1)

	close(release)
	select {
	case err := <-results:
		assert.ErrorIs(t, err, backendErr)
	case <-time.After(2 * time.Second):
		t.Fatal("连接未返回")
	}

	// 失败后地址不再占用
	done := make(chan error, 1)
	go func() { done <- m.ConnectToPeer(context.Background(), peerAddr) }()
	assert.ErrorIs(t, <-done, backendErr)
	assert.Len(t, backend.ConnectCalls(), 2)
}

// TestConnect_OfflinePeerBlocksRedial offline 节点在断开前阻止重新连接
func TestConnect_OfflinePeerBlocksRedial(t *testing.T) {
	factory := mocks.NewMockSessionFactory()
	m, err := NewManager(Options{Sessions: factory, Clock: clock.NewMock()})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.ConnectToPeer(context.Background(), "bob"))
	factory.Session("bob").Transition(interfaces.SessionFailed)
	require.Len(t, m.Peers(), 1)
	assert.Equal(t, types.PeerOffline, m.Peers()[0].Status)

	assert.ErrorIs(t, m.ConnectToPeer(context.Background(), "bob"), ErrAlreadyConnected)

	require.NoError(t, m.DisconnectFromPeer(context.Background(), "bob"))
	require.NoError(t, m.ConnectToPeer(context.Background(), "bob"))
	assert.Equal(t, types.PeerAway, m.Peers()[0].Status)
}
