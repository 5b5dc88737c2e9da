// Package bootstrap 实现启动并连接引导节点的流程
//
// Connector.Run 依次执行：检查后端是否已运行、必要时启动后端、逐个连接
// 引导节点。每次后端调用之后都有一个检查点，检查点观察到取消时停止后端
// 并返回 ErrCancelled，已启动的后端不会被遗留。
//
// 错误按 Kind 分类：配置错误与后端不可用是致命的；引导节点不可达不是，
// 全部不可达时以单机模式（Standalone）完成。
package bootstrap
