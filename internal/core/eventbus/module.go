package eventbus

import (
	pkgif "github.com/dep2p/go-dhtlink/pkg/interfaces"
	"go.uber.org/fx"
)

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	EventBus pkgif.EventBus
}

// Module 返回 Fx 模块
//
// 调用方可以通过 fx.Supply/fx.Decorate 注入自己的总线。
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideEventBus),
	)
}

// ProvideEventBus 提供 EventBus 实例
func ProvideEventBus() Result {
	return Result{EventBus: NewBus()}
}
