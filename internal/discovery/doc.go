// Package discovery 实现节点发现协调
//
// Reconciler 在构造时选定唯一的发现通道：
//   - NativeSource: 订阅后端推送的发现批次
//   - SignalingSource: 无原生后端时，从信令服务获取在线名单
//
// 可见集合始终等于最近一个批次，后端不再上报的节点立即消失。
// Select 把选中节点的最佳可连接地址复制到直连输入中，不影响可见集合。
package discovery
