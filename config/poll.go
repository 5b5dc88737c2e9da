package config

import (
	"errors"
	"time"
)

// PollConfig 健康轮询配置
type PollConfig struct {
	// Interval 轮询间隔
	Interval Duration `json:"interval"`

	// PeerRefreshEvery 每 N 次轮询后台刷新一次已连接节点列表
	PeerRefreshEvery int `json:"peer_refresh_every"`
}

// DefaultPollConfig 返回默认轮询配置
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:         Duration(2 * time.Second),
		PeerRefreshEvery: 3,
	}
}

// Validate 验证轮询配置
func (c PollConfig) Validate() error {
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.PeerRefreshEvery <= 0 {
		return errors.New("peer refresh period must be positive")
	}
	return nil
}
