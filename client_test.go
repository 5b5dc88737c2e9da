package dhtlink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dhtlink/config"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/types"
	"github.com/dep2p/go-dhtlink/tests/mocks"
)

const bootA = "/ip4/1.2.3.4/tcp/4001/p2p/QmBootA"

func startClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithRegisterer(prom.NewRegistry())}, opts...)
	c, err := Start(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_RequiresBackendOrSignaling(t *testing.T) {
	_, err := New(WithMetrics(false))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrSignalingRequired)
}

func TestNew_NativeRequiresBackend(t *testing.T) {
	_, err := New(
		WithDiscoveryMode(config.DiscoveryModeNative),
		WithSignalingURL("ws://127.0.0.1:8080/ws"),
		WithMetrics(false),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrBackendRequired)
}

func TestNew_InvalidOption(t *testing.T) {
	_, err := New(WithPort(70000))
	assert.Error(t, err)
	_, err = New(WithBackend(nil))
	assert.Error(t, err)
}

func TestClient_NotStarted(t *testing.T) {
	c, err := New(WithBackend(mocks.NewMockBackend("QmLocal")), WithMetrics(false))
	require.NoError(t, err)
	assert.ErrorIs(t, c.Connect(context.Background()), ErrNotStarted)
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Start(context.Background()), ErrClientClosed)
}

func TestClient_ConnectAndDisconnect(t *testing.T) {
	backend := mocks.NewMockBackend("QmLocal")
	backend.SetPeerCount(2)
	c := startClient(t, WithBackend(backend), WithBootstrapNodes(bootA), WithPort(4100))

	sub, err := c.Subscribe(new(types.EvtStatusChanged), interfaces.BufSize(8))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, types.StatusConnected, c.Status())
	assert.Equal(t, "QmLocal", c.PeerID())
	assert.Equal(t, uint(2), c.PeerCount())
	require.Len(t, backend.StartCalls(), 1)
	assert.Equal(t, 4100, backend.StartCalls()[0].Port)
	assert.Equal(t, []string{bootA}, backend.BootstrapCalls())

	require.NoError(t, c.Disconnect(context.Background()))
	assert.Equal(t, types.StatusDisconnected, c.Status())
	assert.Empty(t, c.PeerID())

	var seen []types.ConnectionStatus
	for len(seen) < 3 {
		select {
		case raw := <-sub.Out():
			seen = append(seen, raw.(*types.EvtStatusChanged).New)
		case <-time.After(time.Second):
			t.Fatalf("status events: %v", seen)
		}
	}
	assert.Equal(t, []types.ConnectionStatus{
		types.StatusConnecting, types.StatusConnected, types.StatusDisconnected,
	}, seen)
}

func TestClient_StandaloneWithoutBootstrap(t *testing.T) {
	backend := mocks.NewMockBackend("QmLocal")
	c := startClient(t, WithBackend(backend), WithBootstrapNodes())

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, types.StatusConnected, c.Status())
	assert.True(t, c.Standalone())
	assert.Empty(t, backend.BootstrapCalls())
}

func TestClient_NativeDiscovery(t *testing.T) {
	backend := mocks.NewMockBackend("QmLocal")
	c := startClient(t, WithBackend(backend))
	assert.Equal(t, interfaces.DiscoveryNative, c.DiscoveryKind())

	addr := "/ip4/5.6.7.8/tcp/4001/p2p/QmPeerB"
	backend.Push(types.BackendEvent{
		Name: types.EventPeerDiscoveryBatch,
		Discovery: []types.PeerDiscoveryEntry{
			{PeerID: "QmPeerB", Addresses: []string{"/ip4/5.6.7.8/tcp/4001", addr}},
		},
	})

	require.Eventually(t, func() bool {
		return len(c.DiscoveredPeers()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	got, err := c.SelectPeer("QmPeerB")
	require.NoError(t, err)
	assert.Equal(t, addr, got)
	assert.Equal(t, addr, c.DirectConnectInput())

	// 空批次清空集合
	backend.Push(types.BackendEvent{Name: types.EventPeerDiscoveryBatch, Discovery: []types.PeerDiscoveryEntry{}})
	require.Eventually(t, func() bool {
		return len(c.DiscoveredPeers()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_SignalingFallback(t *testing.T) {
	sig := mocks.NewMockSignaling("self")
	c := startClient(t, WithSignaling(sig))
	assert.Equal(t, interfaces.DiscoverySignaling, c.DiscoveryKind())

	require.Eventually(t, sig.Connected, time.Second, 10*time.Millisecond)
	sig.PushRoster("self", "alice", "bob")
	require.Eventually(t, func() bool {
		return len(c.DiscoveredPeers()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	got, err := c.SelectPeer("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)

	// 没有后端时无法连接 DHT
	err = c.Connect(context.Background())
	require.ErrorIs(t, err, ErrNoBackend)
	var ce *ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindBackendUnavailable, ce.Kind)
	assert.Equal(t, types.StatusDisconnected, c.Status())
}

func TestClient_SignalingModeWithBackend(t *testing.T) {
	backend := mocks.NewMockBackend("QmLocal")
	sig := mocks.NewMockSignaling("self")
	c := startClient(t,
		WithBackend(backend),
		WithSignaling(sig),
		WithDiscoveryMode(config.DiscoveryModeSignaling),
		WithBootstrapNodes(),
	)

	// 发现与直连走同一条通道
	assert.Equal(t, interfaces.DiscoverySignaling, c.DiscoveryKind())
	assert.False(t, c.peers.Native())
	require.Eventually(t, sig.Connected, time.Second, 10*time.Millisecond)

	// DHT 连接仍然使用后端
	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, types.StatusConnected, c.Status())
}

func TestClient_NativeModeIgnoresSignaling(t *testing.T) {
	sig := mocks.NewMockSignaling("self")
	c := startClient(t, WithBackend(mocks.NewMockBackend("QmLocal")), WithSignaling(sig))

	assert.Equal(t, interfaces.DiscoveryNative, c.DiscoveryKind())
	assert.True(t, c.peers.Native())
	assert.False(t, sig.Connected())
}

func TestClient_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhtlink.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"backend": {"port": 4200, "bootstrap_nodes": ["`+bootA+`"]},
		"poll": {"interval": "5s"}
	}`), 0o600))

	c, err := New(WithConfigFile(path), WithBackend(mocks.NewMockBackend("QmLocal")), WithMetrics(false))
	require.NoError(t, err)
	defer c.Close()

	cfg := c.Config()
	assert.Equal(t, 4200, cfg.Backend.Port)
	assert.Equal(t, []string{bootA}, cfg.Backend.BootstrapNodes)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval.Duration())
	assert.Equal(t, config.DiscoveryModeNative, cfg.Discovery.Mode)
}

func TestVersionInfo(t *testing.T) {
	assert.Contains(t, VersionInfo(), Version)
}
