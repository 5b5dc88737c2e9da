package types

// ============================================================================
//                              NAT 状态事件
// ============================================================================

// NatStatusEvent 后端推送或从快照提取的 NAT 状态
//
// 瞬时值，只与上一次观测比较，不持久化。
type NatStatusEvent struct {
	State      Reachability `json:"state"`
	Confidence Confidence   `json:"confidence"`
	LastError  string       `json:"lastError,omitempty"`
	Summary    string       `json:"summary,omitempty"`
}

// NotifyLevel 通知级别
type NotifyLevel int

const (
	// NotifyInfo 信息
	NotifyInfo NotifyLevel = iota
	// NotifySuccess 成功
	NotifySuccess
	// NotifyWarning 警告
	NotifyWarning
	// NotifyError 错误
	NotifyError
)

// String 返回通知级别的字符串表示
func (l NotifyLevel) String() string {
	switch l {
	case NotifySuccess:
		return "success"
	case NotifyWarning:
		return "warning"
	case NotifyError:
		return "error"
	default:
		return "info"
	}
}

// NatNotification NAT 状态变化通知
type NatNotification struct {
	Level      NotifyLevel
	State      Reachability
	Confidence Confidence
	Message    string
}
