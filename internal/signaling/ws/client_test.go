package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dhtlink/pkg/interfaces"
)

// hub 最小的信令服务：登记客户端、广播名单、按 To 转发
type hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*websocket.Conn
	order   []string
	regs    []interfaces.SignalMessage
}

func newHub() *hub {
	return &hub{clients: make(map[string]*websocket.Conn)}
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var reg interfaces.SignalMessage
	if err := conn.ReadJSON(&reg); err != nil || reg.Type != interfaces.SignalRegister {
		return
	}
	h.mu.Lock()
	if _, known := h.clients[reg.From]; !known && !contains(h.order, reg.From) {
		h.order = append(h.order, reg.From)
	}
	h.clients[reg.From] = conn
	h.regs = append(h.regs, reg)
	h.mu.Unlock()
	h.broadcastRoster()

	for {
		var msg interfaces.SignalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			h.mu.Lock()
			if h.clients[reg.From] == conn {
				delete(h.clients, reg.From)
			}
			h.mu.Unlock()
			h.broadcastRoster()
			return
		}
		h.mu.Lock()
		dst := h.clients[msg.To]
		if dst != nil {
			_ = dst.WriteJSON(msg)
		}
		h.mu.Unlock()
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (h *hub) broadcastRoster() {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.clients))
	for _, id := range h.order {
		if _, ok := h.clients[id]; ok {
			ids = append(ids, id)
		}
	}
	for _, c := range h.clients {
		_ = c.WriteJSON(interfaces.SignalMessage{Type: interfaces.SignalRoster, Peers: ids})
	}
}

func (h *hub) kick(id string) {
	h.mu.Lock()
	c := h.clients[id]
	h.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
}

func (h *hub) registrations() []interfaces.SignalMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]interfaces.SignalMessage(nil), h.regs...)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitRoster(t *testing.T, c *Client, want ...string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ids := <-c.Peers():
			if assert.ObjectsAreEqual(want, ids) {
				return
			}
		case <-deadline:
			t.Fatalf("roster %v not received", want)
		}
	}
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("http://host", "a")
	assert.ErrorIs(t, err, ErrInvalidURL)
	_, err = NewClient("ws://", "a")
	assert.ErrorIs(t, err, ErrInvalidURL)

	c, err := NewClient("ws://host/signal", "")
	require.NoError(t, err)
	assert.NotEmpty(t, c.LocalID())
}

func TestClient_RegisterRosterAndRelay(t *testing.T) {
	h := newHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	alice, err := NewClient(wsURL(srv), "alice")
	require.NoError(t, err)
	defer alice.Close()
	bob, err := NewClient(wsURL(srv), "bob")
	require.NoError(t, err)
	defer bob.Close()

	got := make(chan interfaces.SignalMessage, 1)
	bob.SetOnMessage(func(m interfaces.SignalMessage) { got <- m })

	ctx := context.Background()
	require.NoError(t, alice.Connect(ctx))
	waitRoster(t, alice, "alice")
	require.NoError(t, bob.Connect(ctx))
	waitRoster(t, alice, "alice", "bob")
	waitRoster(t, bob, "alice", "bob")

	// 重复 Connect 不会再次登记
	require.NoError(t, alice.Connect(ctx))
	regs := h.registrations()
	require.Len(t, regs, 2)
	assert.NotEmpty(t, regs[0].ID)

	require.NoError(t, alice.Send(ctx, interfaces.SignalMessage{
		Type: interfaces.SignalOffer,
		To:   "bob",
		SDP:  "v=0",
	}))
	select {
	case m := <-got:
		assert.Equal(t, interfaces.SignalOffer, m.Type)
		assert.Equal(t, "alice", m.From)
		assert.Equal(t, "v=0", m.SDP)
		assert.NotEmpty(t, m.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("offer not relayed")
	}
}

func TestClient_Reconnect(t *testing.T) {
	h := newHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	c, err := NewClient(wsURL(srv), "carol", WithReconnectDelay(20*time.Millisecond))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Connect(context.Background()))
	waitRoster(t, c, "carol")

	h.kick("carol")
	require.Eventually(t, func() bool {
		return len(h.registrations()) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	waitRoster(t, c, "carol")
}

func TestClient_SendBeforeConnect(t *testing.T) {
	c, err := NewClient("ws://127.0.0.1:1/signal", "dave")
	require.NoError(t, err)
	assert.ErrorIs(t, c.Send(context.Background(), interfaces.SignalMessage{Type: interfaces.SignalOffer}), ErrNotConnected)
}

func TestClient_Close(t *testing.T) {
	h := newHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	c, err := NewClient(wsURL(srv), "erin")
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))

	_ = c.Close()
	require.NoError(t, c.Close())

	for range c.Peers() {
	}
	assert.ErrorIs(t, c.Connect(context.Background()), ErrClosed)
	assert.ErrorIs(t, c.Send(context.Background(), interfaces.SignalMessage{}), ErrClosed)
}
