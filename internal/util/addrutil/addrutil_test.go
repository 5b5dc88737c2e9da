package addrutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullAddr(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantID   string
		wantDial string
		wantErr  error
	}{
		{"tcp", "/ip4/1.2.3.4/tcp/4001/p2p/QmPeer", "QmPeer", "/ip4/1.2.3.4/tcp/4001", nil},
		{"relay", "/ip4/1.2.3.4/tcp/4001/p2p/QmRelay/p2p-circuit/p2p/QmTarget", "QmTarget", "/ip4/1.2.3.4/tcp/4001/p2p/QmRelay/p2p-circuit", nil},
		{"empty", "", "", "", ErrEmptyAddress},
		{"no suffix", "/ip4/1.2.3.4/tcp/4001", "", "", ErrMissingPeerID},
		{"trailing path", "/ip4/1.2.3.4/tcp/4001/p2p/QmPeer/ws", "", "", ErrPeerIDNotAtEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, dial, err := ParseFullAddr(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantDial, dial)
		})
	}
}

func TestExtractPeerID(t *testing.T) {
	assert.Equal(t, "QmPeer", ExtractPeerID("/ip4/1.2.3.4/tcp/4001/p2p/QmPeer"))
	assert.Equal(t, "bare-id", ExtractPeerID("bare-id"))
	assert.Equal(t, "", ExtractPeerID("/ip4/1.2.3.4/tcp/4001"))
}

func TestAddrType(t *testing.T) {
	tests := map[string]string{
		"/ip4/8.8.8.8/tcp/4001":                        "public",
		"/ip4/192.168.1.5/tcp/4001":                    "private",
		"/ip4/127.0.0.1/tcp/4001":                      "loopback",
		"/dns4/boot.example.org/tcp/4001":              "dns",
		"/ip4/8.8.8.8/tcp/4001/p2p/QmR/p2p-circuit":    "relay",
		"":                                             "unknown",
		"/ip4/not-an-ip/tcp/1":                         "unknown",
	}
	for in, want := range tests {
		assert.Equal(t, want, AddrType(in), in)
	}
}

func TestBestConnectable(t *testing.T) {
	addrs := []string{
		"/ip4/127.0.0.1/tcp/4001/p2p/QmA",
		"/ip4/9.9.9.9/tcp/4001",
		"/ip4/192.168.1.2/tcp/4001/p2p/QmA",
		"/ip4/9.9.9.9/tcp/4001/p2p/QmA",
	}
	assert.Equal(t, "/ip4/9.9.9.9/tcp/4001/p2p/QmA", BestConnectable(addrs))
	assert.Equal(t, "", BestConnectable([]string{"/ip4/9.9.9.9/tcp/4001"}))
	assert.Equal(t, "", BestConnectable(nil))
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps("X", "X"))
	assert.True(t, Overlaps("X", "X-suffix"))
	assert.True(t, Overlaps("X-suffix", "X"))
	assert.False(t, Overlaps("X", "Y"))
	assert.False(t, Overlaps("", "X"))
}
