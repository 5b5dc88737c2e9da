package discovery

import (
	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-dhtlink/config"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
)

// NewSource 按配置选定发现通道
//
// auto 模式下配置了后端地址时使用原生通道，否则使用信令通道。
// clk 为 nil 时使用真实时钟。
func NewSource(cfg *config.Config, bus interfaces.EventBus, sig interfaces.Signaling, clk clock.Clock) (interfaces.DiscoverySource, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if cfg.ResolveDiscoveryMode() == config.DiscoveryModeSignaling {
		return NewSignalingSource(sig,
			WithRetryDelay(cfg.Signaling.ReconnectDelay.Duration()),
			WithClock(clk),
		)
	}
	return NewNativeSource(bus)
}
