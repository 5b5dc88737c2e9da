package types

import (
	"strings"
	"time"
)

// MaxReachabilityHistory 可达性历史的最大保留条数（保留最新的记录）
const MaxReachabilityHistory = 32

// ============================================================================
//                              Reachability - 可达性
// ============================================================================

// Reachability 网络可达性状态
type Reachability int

const (
	// ReachabilityUnknown 未知
	ReachabilityUnknown Reachability = iota
	// ReachabilityPublic 公网可达
	ReachabilityPublic
	// ReachabilityPrivate 仅私网可达
	ReachabilityPrivate
)

// String 返回可达性状态的字符串表示
func (r Reachability) String() string {
	switch r {
	case ReachabilityPublic:
		return "public"
	case ReachabilityPrivate:
		return "private"
	default:
		return "unknown"
	}
}

// ParseReachability 解析可达性字符串（不区分大小写），无法识别时返回 Unknown
func ParseReachability(s string) Reachability {
	switch strings.ToLower(s) {
	case "public":
		return ReachabilityPublic
	case "private":
		return ReachabilityPrivate
	default:
		return ReachabilityUnknown
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (r Reachability) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (r *Reachability) UnmarshalText(b []byte) error {
	*r = ParseReachability(string(b))
	return nil
}

// ============================================================================
//                              Confidence - 置信度
// ============================================================================

// Confidence 可达性判定的置信度
type Confidence int

const (
	// ConfidenceLow 低
	ConfidenceLow Confidence = iota
	// ConfidenceMedium 中
	ConfidenceMedium
	// ConfidenceHigh 高
	ConfidenceHigh
)

// String 返回置信度的字符串表示
func (c Confidence) String() string {
	switch c {
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	default:
		return "low"
	}
}

// ParseConfidence 解析置信度字符串，无法识别时返回 Low
func ParseConfidence(s string) Confidence {
	switch strings.ToLower(s) {
	case "medium":
		return ConfidenceMedium
	case "high":
		return ConfidenceHigh
	default:
		return ConfidenceLow
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (c *Confidence) UnmarshalText(b []byte) error {
	*c = ParseConfidence(string(b))
	return nil
}

// ============================================================================
//                              HealthSnapshot - 健康快照
// ============================================================================

// ReachabilityRecord 可达性历史记录
type ReachabilityRecord struct {
	Timestamp time.Time
	State     Reachability
	Summary   string
}

// HealthSnapshot 后端节点在某一时刻的健康快照
//
// 由后端完整生成，每次轮询整体替换，发布后不再修改。
// 可选字符串以 "" 表示不存在，可选时间以 nil 表示不存在。
type HealthSnapshot struct {
	PeerCount uint

	// NAT 可达性
	Reachability           Reachability
	ReachabilityConfidence Confidence
	LastProbeAt            *time.Time
	LastReachabilityChange *time.Time
	ObservedAddrs          []string
	LastReachabilityError  string
	ReachabilityHistory    []ReachabilityRecord

	AutonatEnabled   bool
	AutorelayEnabled bool

	// 中继预约
	ActiveRelayPeerID      string
	RelayReservationStatus string
	ReservationRenewals    uint
	ReservationEvictions   uint
	LastReservationSuccess *time.Time

	// DCUtR 打洞
	DcutrHolePunchAttempts  uint
	DcutrHolePunchSuccesses uint
	DcutrHolePunchFailures  uint
	LastDcutrSuccess        *time.Time
	LastDcutrFailure        *time.Time

	// 引导与错误
	LastBootstrap     *time.Time
	LastPeerEvent     *time.Time
	LastError         string
	LastErrorAt       *time.Time
	BootstrapFailures uint
}

// NatStatus 提取快照中的 NAT 状态，用于驱动 NAT 通知
func (h *HealthSnapshot) NatStatus() NatStatusEvent {
	ev := NatStatusEvent{
		State:      h.Reachability,
		Confidence: h.ReachabilityConfidence,
		LastError:  h.LastReachabilityError,
	}
	if n := len(h.ReachabilityHistory); n > 0 {
		ev.Summary = h.ReachabilityHistory[n-1].Summary
	}
	return ev
}

// HasRelayReservation 是否持有活跃的中继预约
func (h *HealthSnapshot) HasRelayReservation() bool {
	return h.ActiveRelayPeerID != ""
}

// TrimHistory 将可达性历史裁剪到 MaxReachabilityHistory 条，保留最新记录
func (h *HealthSnapshot) TrimHistory() {
	if n := len(h.ReachabilityHistory); n > MaxReachabilityHistory {
		h.ReachabilityHistory = append([]ReachabilityRecord(nil), h.ReachabilityHistory[n-MaxReachabilityHistory:]...)
	}
}

// Clone 返回深拷贝
func (h *HealthSnapshot) Clone() *HealthSnapshot {
	if h == nil {
		return nil
	}
	c := *h
	c.ObservedAddrs = append([]string(nil), h.ObservedAddrs...)
	c.ReachabilityHistory = append([]ReachabilityRecord(nil), h.ReachabilityHistory...)
	c.LastProbeAt = cloneTime(h.LastProbeAt)
	c.LastReachabilityChange = cloneTime(h.LastReachabilityChange)
	c.LastReservationSuccess = cloneTime(h.LastReservationSuccess)
	c.LastDcutrSuccess = cloneTime(h.LastDcutrSuccess)
	c.LastDcutrFailure = cloneTime(h.LastDcutrFailure)
	c.LastBootstrap = cloneTime(h.LastBootstrap)
	c.LastPeerEvent = cloneTime(h.LastPeerEvent)
	c.LastErrorAt = cloneTime(h.LastErrorAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
