// Package ws 实现基于 websocket 的信令会合客户端
//
// 连接后先发送 register 消息登记本地 ID，服务端随后推送完整的在线名单
// （roster），并在客户端之间转发 offer/answer/candidate。连接意外断开时
// 以固定间隔重连并重新登记。
package ws
