package ws

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-dhtlink/config"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
)

// Params 模块依赖
type Params struct {
	fx.In

	Config *config.Config
}

// Result 模块输出
type Result struct {
	fx.Out

	Client    *Client
	Signaling interfaces.Signaling
}

// ProvideClient 按配置创建信令客户端
func ProvideClient(p Params) (Result, error) {
	cfg := p.Config.Signaling
	c, err := NewClient(cfg.URL, cfg.ClientID,
		WithHandshakeTimeout(cfg.HandshakeTimeout.Duration()),
		WithReconnectDelay(cfg.ReconnectDelay.Duration()),
	)
	if err != nil {
		return Result{}, err
	}
	return Result{Client: c, Signaling: c}, nil
}

// Module 返回 Fx 模块
//
// 连接由发现通道按需建立，这里只负责在停止时关闭。
func Module() fx.Option {
	return fx.Module("signaling/ws",
		fx.Provide(ProvideClient),
		fx.Invoke(func(lc fx.Lifecycle, c *Client) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return c.Close()
				},
			})
		}),
	)
}
