package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// DiscoveryMode 发现通道选择
type DiscoveryMode string

const (
	// DiscoveryModeAuto 根据是否配置后端自动选择
	DiscoveryModeAuto DiscoveryMode = "auto"
	// DiscoveryModeNative 后端原生推送
	DiscoveryModeNative DiscoveryMode = "native"
	// DiscoveryModeSignaling 信令名单
	DiscoveryModeSignaling DiscoveryMode = "signaling"
)

// DiscoveryConfig 节点发现与直连配置
type DiscoveryConfig struct {
	// Mode 发现通道
	Mode DiscoveryMode `json:"mode"`

	// ConnectVerifyDelay 原生通道发起直连后，等待多久再刷新节点列表判断结果
	ConnectVerifyDelay Duration `json:"connect_verify_delay"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		Mode:               DiscoveryModeAuto,
		ConnectVerifyDelay: Duration(2 * time.Second),
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	switch c.Mode {
	case DiscoveryModeAuto, DiscoveryModeNative, DiscoveryModeSignaling, "":
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.ConnectVerifyDelay < 0 {
		return errors.New("connect verify delay must not be negative")
	}
	return nil
}

// SignalingConfig 信令回退通道配置
type SignalingConfig struct {
	// URL 信令服务 websocket 地址，例如 "wss://signal.example.org/ws"
	URL string `json:"url"`

	// ClientID 本实例 ID，为空时自动生成
	ClientID string `json:"client_id,omitempty"`

	// ICEServers STUN/TURN 服务器
	ICEServers []string `json:"ice_servers,omitempty"`

	// HandshakeTimeout websocket 握手超时
	HandshakeTimeout Duration `json:"handshake_timeout"`

	// ReconnectDelay 连接失败或断开后的重连间隔
	ReconnectDelay Duration `json:"reconnect_delay"`
}

// DefaultSignalingConfig 返回默认信令配置
func DefaultSignalingConfig() SignalingConfig {
	return SignalingConfig{
		ICEServers:       []string{"stun:stun.l.google.com:19302"},
		HandshakeTimeout: Duration(10 * time.Second),
		ReconnectDelay:   Duration(3 * time.Second),
	}
}

// 预定义错误
var (
	// ErrSignalingRequired 没有后端时必须配置信令地址
	ErrSignalingRequired = errors.New("url is required when no backend is configured")

	// ErrBackendRequired 原生发现通道需要后端
	ErrBackendRequired = errors.New("native mode requires a backend")
)

// Validate 验证信令配置
func (c SignalingConfig) Validate() error {
	if c.URL == "" {
		return ErrSignalingRequired
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" || (u.Scheme != "ws" && u.Scheme != "wss") {
		return errors.New("url must be a ws(s) URL")
	}
	if c.ReconnectDelay < 0 {
		return errors.New("reconnect delay must not be negative")
	}
	return nil
}
