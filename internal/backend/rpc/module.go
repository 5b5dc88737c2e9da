package rpc

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-dhtlink/config"
	"github.com/dep2p/go-dhtlink/internal/core/metrics"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
)

// ClientParams 客户端模块依赖
type ClientParams struct {
	fx.In

	Config *config.Config
}

// ClientResult 客户端模块输出
type ClientResult struct {
	fx.Out

	Client  *Client
	Backend interfaces.Backend
}

// ProvideClient 按配置创建后端客户端
func ProvideClient(p ClientParams) (ClientResult, error) {
	cfg := p.Config.Backend
	c, err := NewClient(cfg.Endpoint,
		WithTimeout(cfg.RequestTimeout.Duration()),
		WithReconnectDelay(cfg.EventReconnectDelay.Duration()),
	)
	if err != nil {
		return ClientResult{}, err
	}
	return ClientResult{Client: c, Backend: c}, nil
}

// Module 返回提供远程后端的 Fx 模块
func Module() fx.Option {
	return fx.Module("backend/rpc",
		fx.Provide(ProvideClient),
	)
}

// PumpParams 事件泵依赖
type PumpParams struct {
	fx.In

	Backend  interfaces.Backend `optional:"true"`
	EventBus interfaces.EventBus
	Metrics  *metrics.Metrics `optional:"true"`
}

// ProvidePump 提供事件泵；没有后端时返回 nil
func ProvidePump(p PumpParams) (*Pump, error) {
	if p.Backend == nil {
		return nil, nil
	}
	return NewPump(p.Backend, p.EventBus, p.Metrics)
}

// PumpModule 返回转发后端事件的 Fx 模块
func PumpModule() fx.Option {
	return fx.Module("backend/events",
		fx.Provide(ProvidePump),
		fx.Invoke(registerPump),
	)
}

func registerPump(lc fx.Lifecycle, p *Pump) {
	if p == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return p.Start(ctx)
		},
		OnStop: func(context.Context) error {
			return p.Close()
		},
	})
}
