// Package nat 实现 NAT 可达性通知去重
//
// Notifier 记录上一次观测到的 (state, confidence)。第一次观测只记录不通知，
// 之后只在二者之一变化时产生一条通知。输入可以是后端推送的 NAT 事件，
// 也可以是轮询快照中的可达性字段。
package nat
