package config

import (
	"errors"
	"time"
)

// NATConfig AutoNAT 配置
//
// 这些选项透传给后端节点，本进程只观测结果。
type NATConfig struct {
	// EnableAutoNAT 是否启用 AutoNAT 可达性探测
	EnableAutoNAT bool `json:"enable_autonat"`

	// ProbeInterval 探测间隔
	ProbeInterval Duration `json:"probe_interval"`

	// Servers 额外的 AutoNAT 服务节点
	Servers []string `json:"servers,omitempty"`
}

// DefaultNATConfig 返回默认 NAT 配置
func DefaultNATConfig() NATConfig {
	return NATConfig{
		EnableAutoNAT: true,
		ProbeInterval: Duration(30 * time.Second),
	}
}

// Validate 验证 NAT 配置
func (c NATConfig) Validate() error {
	if c.EnableAutoNAT && c.ProbeInterval <= 0 {
		return errors.New("probe interval must be positive")
	}
	return nil
}

// RelayConfig AutoRelay 配置
type RelayConfig struct {
	// EnableAutoRelay 私网可达时自动预约中继
	EnableAutoRelay bool `json:"enable_autorelay"`

	// PreferredRelays 优先使用的中继节点
	PreferredRelays []string `json:"preferred_relays,omitempty"`

	// EnableServer 是否作为中继服务端
	EnableServer bool `json:"enable_server"`
}

// DefaultRelayConfig 返回默认中继配置
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{EnableAutoRelay: true}
}
