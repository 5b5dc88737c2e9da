package orchestrator

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-dhtlink/config"
	"github.com/dep2p/go-dhtlink/internal/core/metrics"
	"github.com/dep2p/go-dhtlink/internal/core/peers"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
)

// Params 模块依赖
type Params struct {
	fx.In

	Config   *config.Config      `optional:"true"`
	Backend  interfaces.Backend  `optional:"true"`
	EventBus interfaces.EventBus `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
	Peers    *peers.Manager      `optional:"true"`
	Clock    clock.Clock         `optional:"true"`
}

// StartConfigFrom 由配置生成后端启动参数
func StartConfigFrom(cfg *config.Config) interfaces.StartConfig {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return interfaces.StartConfig{
		Port:                 cfg.Backend.Port,
		BootstrapNodes:       append([]string(nil), cfg.Backend.BootstrapNodes...),
		EnableAutoNAT:        cfg.NAT.EnableAutoNAT,
		AutoNATProbeInterval: cfg.NAT.ProbeInterval.Duration(),
		AutoNATServers:       append([]string(nil), cfg.NAT.Servers...),
		EnableAutoRelay:      cfg.Relay.EnableAutoRelay,
		PreferredRelays:      append([]string(nil), cfg.Relay.PreferredRelays...),
		EnableRelayServer:    cfg.Relay.EnableServer,
		ChunkSizeKB:          cfg.Backend.ChunkSizeKB,
		CacheSizeMB:          cfg.Backend.CacheSizeMB,
	}
}

// ProvideOrchestrator 提供编排器
func ProvideOrchestrator(p Params) (*Orchestrator, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return New(Options{
		Backend:          p.Backend,
		StartConfig:      StartConfigFrom(cfg),
		EventBus:         p.EventBus,
		Metrics:          p.Metrics,
		Peers:            p.Peers,
		Clock:            p.Clock,
		PollInterval:     cfg.Poll.Interval.Duration(),
		PeerRefreshEvery: cfg.Poll.PeerRefreshEvery,
	})
}

// Module 返回 Fx 模块
//
// 启动时只订阅 NAT 推送，不会自动连接；停止时断开网络。
func Module() fx.Option {
	return fx.Module("orchestrator",
		fx.Provide(ProvideOrchestrator),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, o *Orchestrator) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return o.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return o.Close(ctx)
		},
	})
}
