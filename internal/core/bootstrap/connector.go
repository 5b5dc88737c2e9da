package bootstrap

import (
	"context"
	"time"

	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/lib/log"
)

var logger = log.Logger("core/bootstrap")

// defaultStopTimeout 中止时停止后端的超时
const defaultStopTimeout = 5 * time.Second

// Outcome 一次成功连接的结果
type Outcome struct {
	PeerID string

	// AlreadyRunning 后端在调用前已在运行
	AlreadyRunning bool
	// Started 本次调用启动了后端
	Started bool
	// InitialPeers 后端已运行时观测到的节点数
	InitialPeers uint

	// Attempted 尝试连接的引导节点数
	Attempted int
	// Reached 连接成功的引导节点数
	Reached int
}

// Standalone 没有连上任何节点（单机模式）
func (o Outcome) Standalone() bool {
	return o.Reached == 0 && o.InitialPeers == 0
}

// ShortCircuit 后端已运行且有节点，无需引导
func (o Outcome) ShortCircuit() bool {
	return o.AlreadyRunning && o.InitialPeers > 0
}

// Connector 引导连接器
type Connector struct {
	backend     interfaces.Backend
	cfg         interfaces.StartConfig
	stopTimeout time.Duration
}

// NewConnector 创建引导连接器
func NewConnector(backend interfaces.Backend, cfg interfaces.StartConfig) *Connector {
	return &Connector{
		backend:     backend,
		cfg:         cfg,
		stopTimeout: defaultStopTimeout,
	}
}

// Run 执行启动并连接引导节点的流程
//
// cancelled 在每个检查点被调用；返回 true 或 ctx 结束时流程中止，
// 后端被停止并返回 ErrCancelled。后端已运行但没有节点时，流程仍会尝试引导节点。
func (c *Connector) Run(ctx context.Context, cancelled func() bool) (Outcome, error) {
	var out Outcome
	if c.backend == nil {
		return out, &ConnectError{Op: "start", Kind: KindBackendUnavailable, Err: ErrNoBackend}
	}
	if cancelled == nil {
		cancelled = func() bool { return false }
	}
	check := func() bool {
		return cancelled() || ctx.Err() != nil
	}

	if check() {
		return out, c.abort(ctx)
	}

	running, err := c.backend.IsRunning(ctx)
	if check() {
		return out, c.abort(ctx)
	}
	if err != nil {
		return out, &ConnectError{Op: "is_running", Kind: KindBackendUnavailable, Err: err}
	}

	if running {
		out.AlreadyRunning = true
		count, err := c.backend.GetPeerCount(ctx)
		if check() {
			return out, c.abort(ctx)
		}
		if err != nil {
			logger.Debug("获取节点数失败", "error", err)
		}
		out.InitialPeers = count

		id, err := c.backend.GetPeerID(ctx)
		if check() {
			return out, c.abort(ctx)
		}
		if err != nil {
			logger.Debug("获取本地 PeerID 失败", "error", err)
		}
		out.PeerID = id

		if out.ShortCircuit() {
			logger.Info("后端已运行且已有节点连接", "peers", count, "peerID", log.TruncateID(id, 8))
			return out, nil
		}
		logger.Info("后端已运行但没有节点，继续尝试引导节点")
	} else {
		id, err := c.backend.Start(ctx, c.cfg)
		if check() {
			// Start 可能已经成功，停止后端避免遗留监听端口
			return out, c.abort(ctx)
		}
		if err != nil {
			kind := Classify(err)
			if kind == KindUnknown || kind == KindTransient || kind == KindBootstrapUnreachable {
				kind = KindBackendUnavailable
			}
			logger.Warn("启动后端失败", "kind", kind, "error", err)
			return out, &ConnectError{Op: "start", Kind: kind, Err: err}
		}
		out.Started = true
		out.PeerID = id
		logger.Info("后端已启动", "peerID", log.TruncateID(id, 8), "port", c.cfg.Port)
	}

	for _, addr := range c.cfg.BootstrapNodes {
		if check() {
			return out, c.abort(ctx)
		}
		out.Attempted++
		err := c.backend.ConnectToBootstrap(ctx, addr)
		if check() {
			return out, c.abort(ctx)
		}
		if err == nil {
			out.Reached++
			logger.Debug("已连接引导节点", "addr", addr)
			continue
		}

		kind := ClassifyBootstrap(err)
		if kind.Fatal() {
			logger.Warn("连接引导节点失败（致命）", "addr", addr, "kind", kind, "error", err)
			if out.Started {
				c.stop(ctx)
			}
			return out, &ConnectError{Op: "connect_to_bootstrap", Kind: kind, Err: err}
		}
		logger.Warn("引导节点不可达", "addr", addr, "kind", kind, "error", err)
	}

	if check() {
		return out, c.abort(ctx)
	}
	return out, nil
}

// abort 停止后端并返回 ErrCancelled
func (c *Connector) abort(ctx context.Context) error {
	logger.Info("连接流程已取消，停止后端")
	c.stop(ctx)
	return ErrCancelled
}

// stop 停止后端；调用方的 ctx 可能已取消，使用独立的超时
func (c *Connector) stop(ctx context.Context) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.stopTimeout)
	defer cancel()
	if err := c.backend.Stop(stopCtx); err != nil {
		logger.Warn("停止后端失败", "error", err)
	}
}
