package metrics

import (
	"errors"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-dhtlink/pkg/types"
)

// 轮询结果标签
const (
	PollOK      = "ok"
	PollError   = "error"
	PollSkipped = "skipped"
	PollCount   = "peer_count_only"
)

// Metrics dhtlink 指标集合
type Metrics struct {
	status           prom.Gauge
	transitions      *prom.CounterVec
	connectAttempts  prom.Counter
	connectResults   *prom.CounterVec
	peerCount        prom.Gauge
	pollTicks        *prom.CounterVec
	natNotifications *prom.CounterVec
	discoveredPeers  prom.Gauge
	peerOps          *prom.CounterVec
	backendEvents    *prom.CounterVec
}

// New 创建指标并注册到 reg
//
// reg 为 nil 时使用 prometheus.DefaultRegisterer。
func New(namespace string, reg prom.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	m := &Metrics{
		status: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_status",
			Help:      "Current connection status (0=disconnected, 1=connecting, 2=connected)",
		}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Connection status transitions",
		}, []string{"from", "to"}),
		connectAttempts: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Bootstrap connect attempts",
		}),
		connectResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "connect_results_total",
			Help:      "Bootstrap connect outcomes",
		}, []string{"result"}),
		peerCount: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "peer_count",
			Help:      "Peer count observed by the latest poll",
		}),
		pollTicks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "poll_ticks_total",
			Help:      "Health poll ticks by result",
		}, []string{"result"}),
		natNotifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "nat_notifications_total",
			Help:      "NAT reachability change notifications",
		}, []string{"level"}),
		discoveredPeers: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "discovered_peers",
			Help:      "Size of the visible discovery set",
		}),
		peerOps: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "peer_operations_total",
			Help:      "Peer connect/disconnect operations",
		}, []string{"op", "result"}),
		backendEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "backend_events_total",
			Help:      "Events received from the backend stream",
		}, []string{"event"}),
	}

	var errs []error
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

func (m *Metrics) collectors() []prom.Collector {
	return []prom.Collector{
		m.status, m.transitions, m.connectAttempts, m.connectResults, m.peerCount,
		m.pollTicks, m.natNotifications, m.discoveredPeers, m.peerOps, m.backendEvents,
	}
}

// ObserveStatus 记录状态迁移
func (m *Metrics) ObserveStatus(from, to types.ConnectionStatus) {
	if m == nil {
		return
	}
	m.status.Set(float64(to))
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

// ObserveConnectAttempt 记录一次连接尝试
func (m *Metrics) ObserveConnectAttempt() {
	if m == nil {
		return
	}
	m.connectAttempts.Inc()
}

// ObserveConnectResult 记录连接结果（connected/standalone/cancelled/failed）
func (m *Metrics) ObserveConnectResult(result string) {
	if m == nil {
		return
	}
	m.connectResults.WithLabelValues(result).Inc()
}

// ObservePoll 记录一次轮询
func (m *Metrics) ObservePoll(result string) {
	if m == nil {
		return
	}
	m.pollTicks.WithLabelValues(result).Inc()
}

// SetPeerCount 设置最近一次观测到的节点数
func (m *Metrics) SetPeerCount(n uint) {
	if m == nil {
		return
	}
	m.peerCount.Set(float64(n))
}

// ObserveNatNotification 记录 NAT 通知
func (m *Metrics) ObserveNatNotification(level types.NotifyLevel) {
	if m == nil {
		return
	}
	m.natNotifications.WithLabelValues(level.String()).Inc()
}

// SetDiscoveredPeers 设置发现集合大小
func (m *Metrics) SetDiscoveredPeers(n int) {
	if m == nil {
		return
	}
	m.discoveredPeers.Set(float64(n))
}

// ObservePeerOp 记录节点操作结果
func (m *Metrics) ObservePeerOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.peerOps.WithLabelValues(op, result).Inc()
}

// ObserveBackendEvent 记录后端推送事件
func (m *Metrics) ObserveBackendEvent(name string) {
	if m == nil {
		return
	}
	m.backendEvents.WithLabelValues(name).Inc()
}
