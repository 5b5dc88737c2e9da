package dhtlink

import (
	"errors"

	"github.com/dep2p/go-dhtlink/internal/core/bootstrap"
	"github.com/dep2p/go-dhtlink/internal/core/orchestrator"
	"github.com/dep2p/go-dhtlink/internal/core/peers"
	"github.com/dep2p/go-dhtlink/internal/core/session"
	"github.com/dep2p/go-dhtlink/internal/discovery"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 客户端生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 客户端未启动
	ErrNotStarted = errors.New("client not started")

	// ErrClientClosed 客户端已关闭
	ErrClientClosed = errors.New("client closed")

	// ────────────────────────────────────────────────────────────────────────
	// 连接错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrCancelled 连接被取消
	ErrCancelled = orchestrator.ErrCancelled

	// ErrNoBackend 没有可用的后端
	ErrNoBackend = bootstrap.ErrNoBackend

	// ────────────────────────────────────────────────────────────────────────
	// 节点错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrAlreadyConnected 地址与已连接节点重叠
	ErrAlreadyConnected = peers.ErrAlreadyConnected

	// ErrConnectUnconfirmed 发起连接后节点数没有增加
	ErrConnectUnconfirmed = peers.ErrConnectUnconfirmed

	// ErrPeerNotFound 节点未找到
	ErrPeerNotFound = peers.ErrPeerNotFound

	// ErrChannelNotOpen 会话数据通道未打开
	ErrChannelNotOpen = session.ErrChannelNotOpen

	// ErrNoConnectableAddress 发现条目没有可直连的地址
	ErrNoConnectableAddress = discovery.ErrNoConnectableAddress
)

// ErrorKind 连接错误分类
type ErrorKind = bootstrap.Kind

// 连接错误分类
const (
	KindUnknown              = bootstrap.KindUnknown
	KindConfiguration        = bootstrap.KindConfiguration
	KindBootstrapUnreachable = bootstrap.KindBootstrapUnreachable
	KindBackendUnavailable   = bootstrap.KindBackendUnavailable
	KindTransient            = bootstrap.KindTransient
)

// ConnectError 连接失败的详细信息
type ConnectError = bootstrap.ConnectError

// PeerOpError 节点连接/断开失败
type PeerOpError = peers.OpError

// Classify 对错误分类
func Classify(err error) ErrorKind {
	return bootstrap.Classify(err)
}
