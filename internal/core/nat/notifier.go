package nat

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-dhtlink/pkg/lib/log"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

var logger = log.Logger("core/nat")

// Notifier NAT 状态通知器
type Notifier struct {
	mu         sync.Mutex
	set        bool
	state      types.Reachability
	confidence types.Confidence
}

// NewNotifier 创建通知器（初始为未设置）
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Observe 观测一次 NAT 状态
//
// 返回的 bool 表示是否需要通知。
func (n *Notifier) Observe(ev types.NatStatusEvent) (types.NatNotification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.set {
		n.set = true
		n.state, n.confidence = ev.State, ev.Confidence
		logger.Debug("记录初始 NAT 状态", "state", ev.State, "confidence", ev.Confidence)
		return types.NatNotification{}, false
	}
	if ev.State == n.state && ev.Confidence == n.confidence {
		return types.NatNotification{}, false
	}

	logger.Info("NAT 状态变化",
		"from", n.state, "to", ev.State,
		"confidence", ev.Confidence)
	n.state, n.confidence = ev.State, ev.Confidence

	return types.NatNotification{
		Level:      levelFor(ev.State),
		State:      ev.State,
		Confidence: ev.Confidence,
		Message:    messageFor(ev),
	}, true
}

// Last 返回最近一次记录的状态，未设置时 ok 为 false
func (n *Notifier) Last() (state types.Reachability, confidence types.Confidence, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state, n.confidence, n.set
}

// Reset 回到未设置状态
func (n *Notifier) Reset() {
	n.mu.Lock()
	n.set = false
	n.state = types.ReachabilityUnknown
	n.confidence = types.ConfidenceLow
	n.mu.Unlock()
}

func levelFor(state types.Reachability) types.NotifyLevel {
	switch state {
	case types.ReachabilityPublic:
		return types.NotifySuccess
	case types.ReachabilityPrivate:
		return types.NotifyWarning
	default:
		return types.NotifyInfo
	}
}

func messageFor(ev types.NatStatusEvent) string {
	if ev.Summary != "" {
		return ev.Summary
	}
	return fmt.Sprintf("NAT reachability changed: %s (%s confidence)", ev.State, ev.Confidence)
}
