package session

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-dhtlink/config"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
)

// Params 模块依赖
type Params struct {
	fx.In

	Config    *config.Config       `optional:"true"`
	Signaling interfaces.Signaling `optional:"true"`
}

// Result 模块输出
//
// 原生发现通道或没有信令客户端时两个字段都为零值。
type Result struct {
	fx.Out

	Factory  *Factory
	Sessions interfaces.SessionFactory
}

// ProvideFactory 提供会话工厂
func ProvideFactory(p Params) (Result, error) {
	if p.Signaling == nil {
		return Result{}, nil
	}
	var ice []string
	if p.Config != nil {
		if p.Config.ResolveDiscoveryMode() != config.DiscoveryModeSignaling {
			return Result{}, nil
		}
		ice = p.Config.Signaling.ICEServers
	}
	f, err := NewFactory(p.Signaling, ice)
	if err != nil {
		return Result{}, err
	}
	return Result{Factory: f, Sessions: f}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("session",
		fx.Provide(ProvideFactory),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, f *Factory) {
	if f == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return f.Close()
		},
	})
}
