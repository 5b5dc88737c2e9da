package interfaces

// EventBus 进程内事件总线
//
// 事件按 Go 类型路由：订阅和获取发射器时传入事件类型的指针，
// 例如 new(types.EvtStatusChanged)。编排器发布连接状态与 NAT 通知，
// 后端事件泵发布发现批次，发现协调器发布可见集合。
type EventBus interface {
	// Subscribe 订阅一种事件
	Subscribe(eventType interface{}, opts ...SubscriptionOpt) (Subscription, error)

	// Emitter 返回一种事件的发射器，同一类型可以有多个发射器
	Emitter(eventType interface{}, opts ...EmitterOpt) (Emitter, error)
}

// Subscription 一次订阅
//
// 订阅者消费过慢时事件会被丢弃，不会阻塞发布方。
type Subscription interface {
	Out() <-chan interface{}
	Close() error
}

// Emitter 事件发射器
type Emitter interface {
	// Emit 发布事件，发射器关闭后返回错误
	Emit(event interface{}) error
	Close() error
}

// SubscriptionOpt 订阅选项
type SubscriptionOpt func(*SubscriptionSettings)

// EmitterOpt 发射器选项
type EmitterOpt func(*EmitterSettings)

// SubscriptionSettings 订阅参数，由总线实现读取
type SubscriptionSettings struct {
	Buffer int
}

// EmitterSettings 发射器参数，由总线实现读取
type EmitterSettings struct {
	Stateful bool
}

// BufSize 订阅通道的缓冲大小
func BufSize(size int) SubscriptionOpt {
	return func(s *SubscriptionSettings) {
		s.Buffer = size
	}
}

// Stateful 发射器保留最后一个事件，后来的订阅者立即收到它
//
// 连接状态、NAT 状态和发现集合都是"当前值"语义，用有状态发射器发布。
func Stateful() EmitterOpt {
	return func(s *EmitterSettings) {
		s.Stateful = true
	}
}
