package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dep2p/go-dhtlink"
	"github.com/dep2p/go-dhtlink/config"
)

// ============================================================================
//                              环境变量覆盖
// ============================================================================

// 支持的环境变量
const (
	envBackend       = "DHTLINK_BACKEND"
	envSignaling     = "DHTLINK_SIGNALING"
	envPort          = "DHTLINK_PORT"
	envBootstrap     = "DHTLINK_BOOTSTRAP"
	envPollInterval  = "DHTLINK_POLL_INTERVAL"
	envDiscoveryMode = "DHTLINK_DISCOVERY"
)

// envOverrides 从环境变量读取的覆盖项
type envOverrides struct {
	backend       string
	signaling     string
	port          int
	bootstrap     []string
	bootstrapSet  bool
	pollInterval  time.Duration
	discoveryMode config.DiscoveryMode
}

func loadEnv() (*envOverrides, error) {
	e := &envOverrides{
		backend:       os.Getenv(envBackend),
		signaling:     os.Getenv(envSignaling),
		discoveryMode: config.DiscoveryMode(os.Getenv(envDiscoveryMode)),
	}
	if v := os.Getenv(envPort); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envPort, err)
		}
		e.port = p
	}
	if v, ok := os.LookupEnv(envBootstrap); ok {
		e.bootstrap = splitList(v)
		e.bootstrapSet = true
	}
	if v := os.Getenv(envPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envPollInterval, err)
		}
		e.pollInterval = d
	}
	return e, nil
}

func (e *envOverrides) options() []dhtlink.Option {
	var opts []dhtlink.Option
	if e.backend != "" {
		opts = append(opts, dhtlink.WithBackendEndpoint(e.backend))
	}
	if e.signaling != "" {
		opts = append(opts, dhtlink.WithSignalingURL(e.signaling))
	}
	if e.port > 0 {
		opts = append(opts, dhtlink.WithPort(e.port))
	}
	if e.bootstrapSet {
		opts = append(opts, dhtlink.WithBootstrapNodes(e.bootstrap...))
	}
	if e.pollInterval > 0 {
		opts = append(opts, dhtlink.WithPollInterval(e.pollInterval))
	}
	if e.discoveryMode != "" {
		opts = append(opts, dhtlink.WithDiscoveryMode(e.discoveryMode))
	}
	return opts
}
