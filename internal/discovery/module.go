package discovery

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-dhtlink/config"
	"github.com/dep2p/go-dhtlink/internal/core/metrics"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Config    *config.Config       `optional:"true"`
	EventBus  interfaces.EventBus
	Signaling interfaces.Signaling `optional:"true"`
	Metrics   *metrics.Metrics     `optional:"true"`
	Clock     clock.Clock          `optional:"true"`
}

// ProvideReconciler 提供发现协调器
func ProvideReconciler(input ModuleInput) (*Reconciler, error) {
	source, err := NewSource(input.Config, input.EventBus, input.Signaling, input.Clock)
	if err != nil {
		return nil, err
	}
	return NewReconciler(source, input.EventBus, input.Metrics)
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("discovery",
		fx.Provide(ProvideReconciler),
		fx.Invoke(registerLifecycle),
	)
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, r *Reconciler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			r.Start(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			return r.Close()
		},
	})
}
