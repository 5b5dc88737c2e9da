package dhtlink

import (
	"fmt"

	"github.com/benbjohnson/clock"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-dhtlink/config"
	"github.com/dep2p/go-dhtlink/internal/backend/rpc"
	"github.com/dep2p/go-dhtlink/internal/core/eventbus"
	"github.com/dep2p/go-dhtlink/internal/core/metrics"
	"github.com/dep2p/go-dhtlink/internal/core/orchestrator"
	"github.com/dep2p/go-dhtlink/internal/core/peers"
	"github.com/dep2p/go-dhtlink/internal/core/session"
	"github.com/dep2p/go-dhtlink/internal/discovery"
	"github.com/dep2p/go-dhtlink/internal/signaling/ws"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/lib/log"
)

var fxLogger = log.Logger("dhtlink/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 基础：配置、事件总线、指标、时钟
//  2. 传输：后端客户端与事件泵、信令客户端
//  3. 节点：会话工厂、节点管理器、发现协调器
//  4. 编排：Orchestrator
func buildFxApp(o *options, cfg *config.Config, c *Client) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := o.validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(cfg),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 基础组件
	// ════════════════════════════════════════════════════════════════════════
	if o.eventBus != nil {
		bus := o.eventBus
		modules = append(modules, fx.Provide(func() interfaces.EventBus { return bus }))
	} else {
		modules = append(modules, eventbus.Module())
	}

	if o.registerer != nil {
		reg := o.registerer
		modules = append(modules, fx.Provide(func() prom.Registerer { return reg }))
	}
	modules = append(modules, metrics.Module())

	if o.clock != nil {
		clk := o.clock
		modules = append(modules, fx.Provide(func() clock.Clock { return clk }))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 后端（注入优先，其次按配置连接远程后端）
	// ════════════════════════════════════════════════════════════════════════
	switch {
	case o.backend != nil:
		b := o.backend
		modules = append(modules, fx.Provide(func() interfaces.Backend { return b }))
	case cfg.Backend.Endpoint != "":
		modules = append(modules, rpc.Module())
	default:
		fxLogger.Info("未配置后端")
	}
	modules = append(modules, rpc.PumpModule())

	// ════════════════════════════════════════════════════════════════════════
	// 4. 信令（仅信令通道加载）
	// ════════════════════════════════════════════════════════════════════════
	mode := cfg.ResolveDiscoveryMode()
	switch {
	case mode != config.DiscoveryModeSignaling:
		if o.signaling != nil || cfg.Signaling.URL != "" {
			fxLogger.Info("原生发现通道下忽略信令配置")
		}
	case o.signaling != nil:
		s := o.signaling
		modules = append(modules, fx.Provide(func() interfaces.Signaling { return s }))
	case cfg.Signaling.URL != "":
		modules = append(modules, ws.Module())
	}

	// ════════════════════════════════════════════════════════════════════════
	// 5. 节点与发现
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		session.Module(),
		peers.Module(),
		discovery.Module(),
		fx.Invoke(wireInboundSessions),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 6. 编排器
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, orchestrator.Module())

	// ════════════════════════════════════════════════════════════════════════
	// 7. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 8. Client 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectClientComponents(c)))

	// ════════════════════════════════════════════════════════════════════════
	// 9. Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// ════════════════════════════════════════════════════════════════════════════
// 组件注入辅助函数
// ════════════════════════════════════════════════════════════════════════════

type inboundParams struct {
	fx.In

	Factory *session.Factory `optional:"true"`
	Peers   *peers.Manager
}

// wireInboundSessions 把对端发起的会话登记到节点管理器
func wireInboundSessions(p inboundParams) {
	if p.Factory == nil {
		return
	}
	p.Factory.SetAcceptFunc(func(s *session.Session) func(interfaces.SessionState) {
		return p.Peers.Accept(s)
	})
}

// clientInjectParams Client 组件注入参数
type clientInjectParams struct {
	fx.In

	// 核心组件（必需）
	Orchestrator *orchestrator.Orchestrator
	Peers        *peers.Manager
	Discovery    *discovery.Reconciler
	EventBus     interfaces.EventBus

	// 可选组件
	Backend interfaces.Backend `optional:"true"`
}

// injectClientComponents 创建 Client 组件注入函数
func injectClientComponents(c *Client) interface{} {
	return func(p clientInjectParams) {
		c.orch = p.Orchestrator
		c.peers = p.Peers
		c.discovery = p.Discovery
		c.bus = p.EventBus
		c.backend = p.Backend
	}
}
