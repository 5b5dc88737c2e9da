package types

import (
	"strings"
	"time"
)

// ============================================================================
//                              PeerDiscoveryEntry - 发现条目
// ============================================================================

// PeerDiscoveryEntry 发现通道上报的对等节点
//
// PeerID 唯一；信令通道上报的条目没有地址。
type PeerDiscoveryEntry struct {
	PeerID    string
	Addresses []string
	LastSeen  time.Time
}

// ============================================================================
//                              ConnectedPeer - 已连接节点
// ============================================================================

// PeerStatus 已连接节点的在线状态
type PeerStatus int

const (
	// PeerOffline 离线
	PeerOffline PeerStatus = iota
	// PeerAway 待定（连接尝试中）
	PeerAway
	// PeerOnline 在线
	PeerOnline
)

// String 返回在线状态的字符串表示
func (s PeerStatus) String() string {
	switch s {
	case PeerAway:
		return "away"
	case PeerOnline:
		return "online"
	default:
		return "offline"
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (s PeerStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (s *PeerStatus) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "online":
		*s = PeerOnline
	case "away":
		*s = PeerAway
	default:
		*s = PeerOffline
	}
	return nil
}

// ConnectedPeer 已连接（或正在连接）的对等节点
type ConnectedPeer struct {
	ID          string
	Address     string
	Nickname    string
	Status      PeerStatus
	Reputation  float64
	SharedFiles uint
	TotalSize   uint64
	JoinDate    time.Time
	LastSeen    time.Time
	Location    string
}
