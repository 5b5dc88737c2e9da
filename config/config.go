// Package config 提供 dhtlink 的统一配置
//
// 主 Config 嵌入所有子配置，每个子配置在独立文件中定义，
// 提供 DefaultXxxConfig() 与 Validate()。支持 JSON 加载和保存。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Backend.Endpoint = "http://127.0.0.1:7300"
//	cfg.Backend.BootstrapNodes = []string{"/ip4/1.2.3.4/tcp/4001/p2p/Qm..."}
//
//	cfg, err := config.FromJSON(data)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Config dhtlink 的完整配置
type Config struct {
	// Backend 后端节点进程与启动参数
	Backend BackendConfig `json:"backend"`

	// NAT AutoNAT 配置（透传给后端）
	NAT NATConfig `json:"nat"`

	// Relay AutoRelay 配置（透传给后端）
	Relay RelayConfig `json:"relay"`

	// Poll 健康轮询
	Poll PollConfig `json:"poll"`

	// Discovery 节点发现与直连
	Discovery DiscoveryConfig `json:"discovery"`

	// Signaling 信令回退通道
	Signaling SignalingConfig `json:"signaling"`

	// Metrics 指标
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Backend:   DefaultBackendConfig(),
		NAT:       DefaultNATConfig(),
		Relay:     DefaultRelayConfig(),
		Poll:      DefaultPollConfig(),
		Discovery: DefaultDiscoveryConfig(),
		Signaling: DefaultSignalingConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if err := c.NAT.Validate(); err != nil {
		return fmt.Errorf("nat: %w", err)
	}
	if err := c.Poll.Validate(); err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	if err := c.Discovery.Validate(); err != nil {
		return fmt.Errorf("discovery: %w", err)
	}
	switch c.ResolveDiscoveryMode() {
	case DiscoveryModeSignaling:
		if err := c.Signaling.Validate(); err != nil {
			return fmt.Errorf("signaling: %w", err)
		}
	case DiscoveryModeNative:
		if c.Backend.Endpoint == "" {
			return fmt.Errorf("discovery: %w", ErrBackendRequired)
		}
	}
	return nil
}

// ResolveDiscoveryMode 解析实际使用的发现通道
//
// auto 模式下，配置了后端地址时使用原生通道，否则回退到信令通道。
func (c *Config) ResolveDiscoveryMode() DiscoveryMode {
	switch c.Discovery.Mode {
	case DiscoveryModeNative, DiscoveryModeSignaling:
		return c.Discovery.Mode
	}
	if c.Backend.Endpoint != "" {
		return DiscoveryModeNative
	}
	return DiscoveryModeSignaling
}

// FromJSON 从 JSON 加载配置，未出现的字段保留默认值
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
