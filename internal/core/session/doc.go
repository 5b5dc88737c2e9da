// Package session 实现回退通道下的点对点会话
//
// 没有原生后端时，节点之间通过信令服务交换 offer/answer/candidate，
// 建立 WebRTC 数据通道。每个会话只有一个数据通道，只有通道打开时才能发送数据。
package session
