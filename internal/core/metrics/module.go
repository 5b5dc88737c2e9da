package metrics

import (
	prom "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-dhtlink/config"
)

// Params Metrics 依赖参数
type Params struct {
	fx.In

	Config     *config.Config  `optional:"true"`
	Registerer prom.Registerer `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(NewFromParams),
	)
}

// NewFromParams 从参数创建 Metrics；指标被禁用时返回 nil
func NewFromParams(p Params) (*Metrics, error) {
	cfg := config.DefaultMetricsConfig()
	if p.Config != nil {
		cfg = p.Config.Metrics
	}
	if !cfg.Enable {
		return nil, nil
	}
	return New(cfg.Namespace, p.Registerer)
}
