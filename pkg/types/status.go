package types

// ============================================================================
//                              ConnectionStatus - 连接状态
// ============================================================================

// ConnectionStatus DHT 网络连接状态
//
// 同一时刻只有一个取值，由 Orchestrator 独占写入。
type ConnectionStatus int

const (
	// StatusDisconnected 未连接（初始状态）
	StatusDisconnected ConnectionStatus = iota
	// StatusConnecting 连接中
	StatusConnecting
	// StatusConnected 已连接
	StatusConnected
)

// String 返回连接状态的字符串表示
func (s ConnectionStatus) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (s ConnectionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsActive 是否处于连接中或已连接
func (s ConnectionStatus) IsActive() bool {
	return s == StatusConnecting || s == StatusConnected
}
