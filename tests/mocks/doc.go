// Package mocks 提供统一的测试 Mock 实现
//
// # 核心 Mock
//
//   - MockBackend: 模拟 interfaces.Backend，内置一个可编程的内存后端
//   - MockSignaling: 模拟 interfaces.Signaling，可注入名单与消息
//   - MockSessionFactory / MockSession: 模拟 interfaces.SessionFactory 与 Session
//
// # 设计原则
//
// 1. 函数式注入: 每个 Mock 都支持通过 XxxFunc 字段注入自定义行为
// 2. 调用记录: 关键 Mock 记录调用历史，便于验证测试行为
// 3. 并发安全: Mock 可能被轮询协程和测试协程同时访问，内部状态都有锁保护
//
// # 使用示例
//
//	backend := mocks.NewMockBackend("12D3KooWLocal")
//	backend.SetPeerCount(3)
//
//	backend.StartFunc = func(ctx context.Context, cfg interfaces.StartConfig) (string, error) {
//	    return "", errors.New("address already in use")
//	}
package mocks
