package rpc

import (
	"encoding/json"
	"time"

	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

// 命令名
const (
	methodStart              = "start"
	methodStop               = "stop"
	methodConnectToBootstrap = "connect_to_bootstrap"
	methodHealthSnapshot     = "get_health_snapshot"
	methodPeerCount          = "get_peer_count"
	methodPeerID             = "get_peer_id"
	methodIsRunning          = "is_running"
	methodConnectToPeer      = "connect_to_peer"
	methodDisconnectFromPeer = "disconnect_from_peer"
	methodConnectedPeers     = "get_connected_peers"
)

// ============================================================================
//                              命令请求/响应
// ============================================================================

type startRequest struct {
	Port                 int      `json:"port"`
	BootstrapNodes       []string `json:"bootstrapNodes"`
	EnableAutoNAT        bool     `json:"enableAutonat"`
	AutoNATProbeInterval int64    `json:"autonatProbeIntervalSecs"`
	AutoNATServers       []string `json:"autonatServers,omitempty"`
	EnableAutoRelay      bool     `json:"enableAutorelay"`
	PreferredRelays      []string `json:"preferredRelays,omitempty"`
	EnableRelayServer    bool     `json:"enableRelayServer"`
	ChunkSizeKB          int      `json:"chunkSizeKb"`
	CacheSizeMB          int      `json:"cacheSizeMb"`
}

func newStartRequest(cfg interfaces.StartConfig) startRequest {
	nodes := cfg.BootstrapNodes
	if nodes == nil {
		nodes = []string{}
	}
	return startRequest{
		Port:                 cfg.Port,
		BootstrapNodes:       nodes,
		EnableAutoNAT:        cfg.EnableAutoNAT,
		AutoNATProbeInterval: int64(cfg.AutoNATProbeInterval / time.Second),
		AutoNATServers:       cfg.AutoNATServers,
		EnableAutoRelay:      cfg.EnableAutoRelay,
		PreferredRelays:      cfg.PreferredRelays,
		EnableRelayServer:    cfg.EnableRelayServer,
		ChunkSizeKB:          cfg.ChunkSizeKB,
		CacheSizeMB:          cfg.CacheSizeMB,
	}
}

type addrRequest struct {
	Addr string `json:"addr"`
}

type peerIDRequest struct {
	PeerID string `json:"peerId"`
}

type peerIDResponse struct {
	PeerID string `json:"peerId"`
}

type countResponse struct {
	Count uint `json:"count"`
}

type runningResponse struct {
	Running bool `json:"running"`
}

type snapshotResponse struct {
	Snapshot *snapshotDTO `json:"snapshot"`
}

type peersResponse struct {
	Peers []peerDTO `json:"peers"`
}

// envelope 所有响应共有的错误字段
type envelope struct {
	Error string `json:"error,omitempty"`
}

// ============================================================================
//                              健康快照
// ============================================================================

type recordDTO struct {
	Timestamp time.Time          `json:"timestamp"`
	State     types.Reachability `json:"state"`
	Summary   string             `json:"summary,omitempty"`
}

type snapshotDTO struct {
	PeerCount uint `json:"peerCount"`

	Reachability           types.Reachability `json:"reachability"`
	ReachabilityConfidence types.Confidence   `json:"reachabilityConfidence"`
	LastProbeAt            *time.Time         `json:"lastProbeAt,omitempty"`
	LastReachabilityChange *time.Time         `json:"lastReachabilityChange,omitempty"`
	ObservedAddrs          []string           `json:"observedAddrs,omitempty"`
	LastReachabilityError  string             `json:"lastReachabilityError,omitempty"`
	ReachabilityHistory    []recordDTO        `json:"reachabilityHistory,omitempty"`

	AutonatEnabled   bool `json:"autonatEnabled"`
	AutorelayEnabled bool `json:"autorelayEnabled"`

	ActiveRelayPeerID      string     `json:"activeRelayPeerId,omitempty"`
	RelayReservationStatus string     `json:"relayReservationStatus,omitempty"`
	ReservationRenewals    uint       `json:"reservationRenewals"`
	ReservationEvictions   uint       `json:"reservationEvictions"`
	LastReservationSuccess *time.Time `json:"lastReservationSuccess,omitempty"`

	DcutrHolePunchAttempts  uint       `json:"dcutrHolePunchAttempts"`
	DcutrHolePunchSuccesses uint       `json:"dcutrHolePunchSuccesses"`
	DcutrHolePunchFailures  uint       `json:"dcutrHolePunchFailures"`
	LastDcutrSuccess        *time.Time `json:"lastDcutrSuccess,omitempty"`
	LastDcutrFailure        *time.Time `json:"lastDcutrFailure,omitempty"`

	LastBootstrap     *time.Time `json:"lastBootstrap,omitempty"`
	LastPeerEvent     *time.Time `json:"lastPeerEvent,omitempty"`
	LastError         string     `json:"lastError,omitempty"`
	LastErrorAt       *time.Time `json:"lastErrorAt,omitempty"`
	BootstrapFailures uint       `json:"bootstrapFailures"`
}

func (d *snapshotDTO) toSnapshot() *types.HealthSnapshot {
	if d == nil {
		return nil
	}
	s := &types.HealthSnapshot{
		PeerCount:               d.PeerCount,
		Reachability:            d.Reachability,
		ReachabilityConfidence:  d.ReachabilityConfidence,
		LastProbeAt:             d.LastProbeAt,
		LastReachabilityChange:  d.LastReachabilityChange,
		ObservedAddrs:           d.ObservedAddrs,
		LastReachabilityError:   d.LastReachabilityError,
		AutonatEnabled:          d.AutonatEnabled,
		AutorelayEnabled:        d.AutorelayEnabled,
		ActiveRelayPeerID:       d.ActiveRelayPeerID,
		RelayReservationStatus:  d.RelayReservationStatus,
		ReservationRenewals:     d.ReservationRenewals,
		ReservationEvictions:    d.ReservationEvictions,
		LastReservationSuccess:  d.LastReservationSuccess,
		DcutrHolePunchAttempts:  d.DcutrHolePunchAttempts,
		DcutrHolePunchSuccesses: d.DcutrHolePunchSuccesses,
		DcutrHolePunchFailures:  d.DcutrHolePunchFailures,
		LastDcutrSuccess:        d.LastDcutrSuccess,
		LastDcutrFailure:        d.LastDcutrFailure,
		LastBootstrap:           d.LastBootstrap,
		LastPeerEvent:           d.LastPeerEvent,
		LastError:               d.LastError,
		LastErrorAt:             d.LastErrorAt,
		BootstrapFailures:       d.BootstrapFailures,
	}
	for _, r := range d.ReachabilityHistory {
		s.ReachabilityHistory = append(s.ReachabilityHistory, types.ReachabilityRecord{
			Timestamp: r.Timestamp,
			State:     r.State,
			Summary:   r.Summary,
		})
	}
	return s
}

// ============================================================================
//                              节点
// ============================================================================

type peerDTO struct {
	ID          string           `json:"id"`
	Address     string           `json:"address"`
	Nickname    string           `json:"nickname,omitempty"`
	Status      types.PeerStatus `json:"status"`
	Reputation  float64          `json:"reputation"`
	SharedFiles uint             `json:"sharedFiles"`
	TotalSize   uint64           `json:"totalSize"`
	JoinDate    time.Time        `json:"joinDate"`
	LastSeen    time.Time        `json:"lastSeen"`
	Location    string           `json:"location,omitempty"`
}

func (d peerDTO) toPeer() types.ConnectedPeer {
	return types.ConnectedPeer{
		ID:          d.ID,
		Address:     d.Address,
		Nickname:    d.Nickname,
		Status:      d.Status,
		Reputation:  d.Reputation,
		SharedFiles: d.SharedFiles,
		TotalSize:   d.TotalSize,
		JoinDate:    d.JoinDate,
		LastSeen:    d.LastSeen,
		Location:    d.Location,
	}
}

// ============================================================================
//                              推送事件
// ============================================================================

type eventFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type discoveryDTO struct {
	PeerID    string    `json:"peerId"`
	Addresses []string  `json:"addresses"`
	LastSeen  time.Time `json:"lastSeen"`
}

// decodeEvent 解析一帧推送事件
func decodeEvent(f eventFrame) (types.BackendEvent, error) {
	ev := types.BackendEvent{Name: f.Event}
	switch f.Event {
	case types.EventPeerDiscoveryBatch:
		var batch []discoveryDTO
		if err := json.Unmarshal(f.Payload, &batch); err != nil {
			return ev, err
		}
		ev.Discovery = make([]types.PeerDiscoveryEntry, 0, len(batch))
		for _, d := range batch {
			ev.Discovery = append(ev.Discovery, types.PeerDiscoveryEntry{
				PeerID:    d.PeerID,
				Addresses: d.Addresses,
				LastSeen:  d.LastSeen,
			})
		}
	case types.EventNatStatusUpdate:
		var nat types.NatStatusEvent
		if err := json.Unmarshal(f.Payload, &nat); err != nil {
			return ev, err
		}
		ev.Nat = &nat
	default:
		return ev, ErrUnknownEvent
	}
	return ev, nil
}
