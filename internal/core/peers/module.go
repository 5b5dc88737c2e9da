package peers

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-dhtlink/config"
	"github.com/dep2p/go-dhtlink/internal/core/metrics"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
)

// Params 模块依赖
type Params struct {
	fx.In

	Config   *config.Config            `optional:"true"`
	Backend  interfaces.Backend        `optional:"true"`
	Sessions interfaces.SessionFactory `optional:"true"`
	EventBus interfaces.EventBus       `optional:"true"`
	Metrics  *metrics.Metrics          `optional:"true"`
	Clock    clock.Clock               `optional:"true"`
}

// ProvideManager 提供节点管理器
//
// 按发现通道二选一：原生通道只使用后端，信令通道只使用会话工厂。
func ProvideManager(p Params) (*Manager, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	opts := Options{
		EventBus:           p.EventBus,
		Metrics:            p.Metrics,
		Clock:              p.Clock,
		ConnectVerifyDelay: cfg.Discovery.ConnectVerifyDelay.Duration(),
	}
	if cfg.ResolveDiscoveryMode() == config.DiscoveryModeNative {
		opts.Backend = p.Backend
	} else {
		opts.Sessions = p.Sessions
	}
	return NewManager(opts)
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("peers",
		fx.Provide(ProvideManager),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return m.Close()
		},
	})
}
