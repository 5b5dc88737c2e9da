package config

import (
	"errors"
	"net/url"
	"time"
)

// BackendConfig 后端节点配置
type BackendConfig struct {
	// Endpoint 后端控制接口地址，例如 "http://127.0.0.1:7300"
	// 为空表示没有原生后端
	Endpoint string `json:"endpoint"`

	// RequestTimeout 单次命令超时
	RequestTimeout Duration `json:"request_timeout"`

	// EventReconnectDelay 事件流断开后的重连间隔
	EventReconnectDelay Duration `json:"event_reconnect_delay"`

	// Port DHT 监听端口（0 = 随机端口）
	Port int `json:"port"`

	// BootstrapNodes 引导节点地址
	BootstrapNodes []string `json:"bootstrap_nodes,omitempty"`

	// ChunkSizeKB 分块大小
	ChunkSizeKB int `json:"chunk_size_kb"`

	// CacheSizeMB 缓存大小
	CacheSizeMB int `json:"cache_size_mb"`
}

// DefaultBackendConfig 返回默认后端配置
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		RequestTimeout:      Duration(10 * time.Second),
		EventReconnectDelay: Duration(3 * time.Second),
		Port:                4001,
		ChunkSizeKB:         256,
		CacheSizeMB:         1024,
	}
}

// Validate 验证后端配置
func (c BackendConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.New("port must be within 0-65535")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.ChunkSizeKB <= 0 {
		return errors.New("chunk size must be positive")
	}
	if c.CacheSizeMB < 0 {
		return errors.New("cache size must not be negative")
	}
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return errors.New("endpoint must be an http(s) URL")
		}
	}
	return nil
}
