package nat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-dhtlink/pkg/types"
)

func ev(state types.Reachability, conf types.Confidence) types.NatStatusEvent {
	return types.NatStatusEvent{State: state, Confidence: conf}
}

// TestNotifier_FirstObservationSilent 第一次观测不通知
func TestNotifier_FirstObservationSilent(t *testing.T) {
	n := NewNotifier()
	_, notify := n.Observe(ev(types.ReachabilityPrivate, types.ConfidenceHigh))
	assert.False(t, notify)

	state, conf, ok := n.Last()
	assert.True(t, ok)
	assert.Equal(t, types.ReachabilityPrivate, state)
	assert.Equal(t, types.ConfidenceHigh, conf)
}

// TestNotifier_RepeatsSilent 重复相同状态不通知
func TestNotifier_RepeatsSilent(t *testing.T) {
	n := NewNotifier()
	n.Observe(ev(types.ReachabilityUnknown, types.ConfidenceLow))

	count := 0
	for i := 0; i < 10; i++ {
		if _, notify := n.Observe(ev(types.ReachabilityUnknown, types.ConfidenceLow)); notify {
			count++
		}
	}
	assert.Zero(t, count)
}

// TestNotifier_OnePerTransition 每个不同的状态对恰好通知一次
func TestNotifier_OnePerTransition(t *testing.T) {
	n := NewNotifier()
	seq := []types.NatStatusEvent{
		ev(types.ReachabilityUnknown, types.ConfidenceLow),
		ev(types.ReachabilityPrivate, types.ConfidenceLow),
		ev(types.ReachabilityPrivate, types.ConfidenceLow),
		ev(types.ReachabilityPrivate, types.ConfidenceHigh),
		ev(types.ReachabilityPublic, types.ConfidenceHigh),
		ev(types.ReachabilityPublic, types.ConfidenceHigh),
	}

	var got []types.NatNotification
	for _, e := range seq {
		if notification, ok := n.Observe(e); ok {
			got = append(got, notification)
		}
	}

	assert.Len(t, got, 3)
	assert.Equal(t, types.NotifyWarning, got[0].Level)
	assert.Equal(t, types.NotifyWarning, got[1].Level)
	assert.Equal(t, types.NotifySuccess, got[2].Level)
	assert.Equal(t, types.ConfidenceHigh, got[2].Confidence)
}

// TestNotifier_Message 使用 summary，缺省时使用通用文本
func TestNotifier_Message(t *testing.T) {
	n := NewNotifier()
	n.Observe(ev(types.ReachabilityPrivate, types.ConfidenceLow))

	notification, ok := n.Observe(types.NatStatusEvent{
		State:      types.ReachabilityPublic,
		Confidence: types.ConfidenceMedium,
		Summary:    "Reachable via 1.2.3.4",
	})
	assert.True(t, ok)
	assert.Equal(t, "Reachable via 1.2.3.4", notification.Message)

	notification, ok = n.Observe(ev(types.ReachabilityUnknown, types.ConfidenceLow))
	assert.True(t, ok)
	assert.Equal(t, types.NotifyInfo, notification.Level)
	assert.Equal(t, "NAT reachability changed: unknown (low confidence)", notification.Message)
}

// TestNotifier_Reset 重置后第一次观测再次静默
func TestNotifier_Reset(t *testing.T) {
	n := NewNotifier()
	n.Observe(ev(types.ReachabilityPrivate, types.ConfidenceLow))
	n.Reset()

	_, ok := n.Observe(ev(types.ReachabilityPublic, types.ConfidenceHigh))
	assert.False(t, ok)

	_, _, set := n.Last()
	assert.True(t, set)
}
