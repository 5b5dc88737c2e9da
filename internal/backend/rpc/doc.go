// Package rpc 实现后端节点进程的远程客户端
//
// 命令通过 HTTP POST <endpoint>/<method> 以 JSON 交换；后端返回
// {"error": "..."} 时转换为 *RemoteError，消息原样保留，供引导流程分类。
//
// 后端推送事件通过 websocket <endpoint>/events 送达：
//
//	{"event": "peer-discovery-batch", "payload": [...]}
//	{"event": "nat-status-update", "payload": {...}}
//
// 连接断开后以固定间隔重连，直到 ctx 结束。Pump 把事件流转发到事件总线。
package rpc
