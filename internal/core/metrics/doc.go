// Package metrics 提供 Prometheus 监控指标
//
// 指标覆盖连接状态机、健康轮询、NAT 通知、节点发现和节点操作。
// 所有方法对 nil *Metrics 安全，禁用指标时调用方无需判空。
//
//	reg := prometheus.NewRegistry()
//	m, err := metrics.New("dhtlink", reg)
//	m.ObserveStatus(types.StatusDisconnected, types.StatusConnecting)
package metrics
