package dhtlink

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-dhtlink/config"
	"github.com/dep2p/go-dhtlink/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 基础配置（WithConfig / WithConfigFile）
	base *config.Config

	// 后端
	backendEndpoint string
	backend         interfaces.Backend

	// 引导与端口
	bootstrapNodes    []string
	bootstrapNodesSet bool // 是否显式设置（区分空和未设置）
	port              *int

	// 轮询与发现
	pollInterval  time.Duration
	discoveryMode config.DiscoveryMode

	// 信令回退
	signalingURL string
	signaling    interfaces.Signaling

	// 注入
	clock      clock.Clock
	eventBus   interfaces.EventBus
	registerer prom.Registerer
	metrics    *bool

	// 用户扩展 Fx 选项
	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{}
}

// toConfig 合并基础配置与显式选项
func (o *options) toConfig() *config.Config {
	cfg := o.base
	if cfg == nil {
		cfg = config.NewConfig()
	}

	if o.backendEndpoint != "" {
		cfg.Backend.Endpoint = o.backendEndpoint
	}
	if o.bootstrapNodesSet {
		cfg.Backend.BootstrapNodes = append([]string(nil), o.bootstrapNodes...)
	}
	if o.port != nil {
		cfg.Backend.Port = *o.port
	}
	if o.pollInterval > 0 {
		cfg.Poll.Interval = config.Duration(o.pollInterval)
	}
	if o.discoveryMode != "" {
		cfg.Discovery.Mode = o.discoveryMode
	}
	if o.signalingURL != "" {
		cfg.Signaling.URL = o.signalingURL
	}
	if o.metrics != nil {
		cfg.Metrics.Enable = *o.metrics
	}

	// 注入的后端等同于配置了原生通道
	if o.backend != nil && (cfg.Discovery.Mode == config.DiscoveryModeAuto || cfg.Discovery.Mode == "") {
		cfg.Discovery.Mode = config.DiscoveryModeNative
	}
	// 发现通道在这里确定一次，之后各模块只读取结果
	cfg.Discovery.Mode = cfg.ResolveDiscoveryMode()
	return cfg
}

// validate 验证合并后的配置
//
// 注入了信令客户端时不要求配置信令地址，注入了后端时不要求配置后端地址。
func (o *options) validate(cfg *config.Config) error {
	err := cfg.Validate()
	switch {
	case err == nil:
		return nil
	case o.signaling != nil && errors.Is(err, config.ErrSignalingRequired):
		return nil
	case o.backend != nil && errors.Is(err, config.ErrBackendRequired):
		return nil
	}
	return err
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置来源
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用完整的配置作为基础，其他选项在其上覆盖
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		o.base = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载基础配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		cfg, err := config.FromJSON(data)
		if err != nil {
			return err
		}
		o.base = cfg
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              后端与引导
// ════════════════════════════════════════════════════════════════════════════

// WithBackendEndpoint 设置后端控制接口地址
func WithBackendEndpoint(endpoint string) Option {
	return func(o *options) error {
		o.backendEndpoint = endpoint
		return nil
	}
}

// WithBackend 注入后端实现（测试或嵌入式后端）
func WithBackend(b interfaces.Backend) Option {
	return func(o *options) error {
		if b == nil {
			return errors.New("backend is nil")
		}
		o.backend = b
		return nil
	}
}

// WithBootstrapNodes 设置引导节点
//
// 传入空列表表示不连接任何引导节点（单机模式）。
func WithBootstrapNodes(addrs ...string) Option {
	return func(o *options) error {
		o.bootstrapNodes = addrs
		o.bootstrapNodesSet = true
		return nil
	}
}

// WithPort 设置后端 DHT 监听端口
func WithPort(port int) Option {
	return func(o *options) error {
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid port %d", port)
		}
		o.port = &port
		return nil
	}
}

// WithPollInterval 设置健康轮询间隔
func WithPollInterval(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		o.pollInterval = d
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              发现与信令
// ════════════════════════════════════════════════════════════════════════════

// WithDiscoveryMode 设置发现通道（auto/native/signaling）
func WithDiscoveryMode(mode config.DiscoveryMode) Option {
	return func(o *options) error {
		o.discoveryMode = mode
		return nil
	}
}

// WithSignalingURL 设置信令服务地址
func WithSignalingURL(url string) Option {
	return func(o *options) error {
		o.signalingURL = url
		return nil
	}
}

// WithSignaling 注入信令客户端
func WithSignaling(s interfaces.Signaling) Option {
	return func(o *options) error {
		if s == nil {
			return errors.New("signaling is nil")
		}
		o.signaling = s
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              注入与扩展
// ════════════════════════════════════════════════════════════════════════════

// WithClock 注入时钟（测试中使用 clock.NewMock()）
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		o.clock = c
		return nil
	}
}

// WithEventBus 使用外部事件总线
func WithEventBus(bus interfaces.EventBus) Option {
	return func(o *options) error {
		o.eventBus = bus
		return nil
	}
}

// WithMetrics 启用或禁用指标
func WithMetrics(enable bool) Option {
	return func(o *options) error {
		o.metrics = &enable
		return nil
	}
}

// WithRegisterer 指标注册目标，默认为 prometheus.DefaultRegisterer
func WithRegisterer(r prom.Registerer) Option {
	return func(o *options) error {
		o.registerer = r
		return nil
	}
}

// WithFxOption 追加用户自定义的 Fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
