// Package interfaces 定义 dhtlink 的公共接口
//
// 接口按协作方划分，一个接口文件对应一类外部依赖：
//
//   - backend.go          - Backend 后端 DHT 节点控制接口与事件流
//   - eventbus.go         - EventBus 进程内事件总线
//   - discovery_source.go - DiscoverySource 发现通道（原生 / 信令）
//   - signaling.go        - Signaling 信令客户端
//   - session.go          - Session、SessionFactory 点对点会话
//
// # 设计原则
//
// 本包仅包含接口与少量参数结构，数据结构定义在 pkg/types 包中。
// 实现位于 internal/ 下，测试替身位于 tests/mocks。
package interfaces
