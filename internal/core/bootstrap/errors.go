package bootstrap

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

// 预定义错误
var (
	// ErrCancelled 连接流程在检查点被取消
	ErrCancelled = errors.New("bootstrap: connect cancelled")

	// ErrNoBackend 未配置后端
	ErrNoBackend = errors.New("bootstrap: backend is nil")

	// ErrNotInitialized 后端服务未初始化
	ErrNotInitialized = errors.New("bootstrap: service not initialized")

	// ErrNetworkingUnavailable 后端网络不可用
	ErrNetworkingUnavailable = errors.New("bootstrap: networking unavailable")

	// ErrInvalidPort 端口非法
	ErrInvalidPort = errors.New("bootstrap: invalid port")
)

// ============================================================================
//                              Kind - 错误分类
// ============================================================================

// Kind 连接错误分类
type Kind int

const (
	// KindUnknown 无法识别
	KindUnknown Kind = iota
	// KindConfiguration 配置错误（端口非法、端口占用）
	KindConfiguration
	// KindBootstrapUnreachable 引导节点不可达
	KindBootstrapUnreachable
	// KindBackendUnavailable 后端不可用或传输未实现
	KindBackendUnavailable
	// KindTransient 瞬时错误
	KindTransient
)

// String 返回分类名
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindBootstrapUnreachable:
		return "bootstrap-unreachable"
	case KindBackendUnavailable:
		return "backend-unavailable"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Fatal 该分类的错误是否终止本次连接
func (k Kind) Fatal() bool {
	return k == KindConfiguration || k == KindBackendUnavailable
}

var (
	configurationHints = []string{"address already in use", "invalid port", "port out of range", "permission denied"}
	unavailableHints   = []string{"not initialized", "not implemented", "networking unavailable"}
	unreachableHints   = []string{"bootstrap", "dial", "unreachable", "no route", "no addresses", "no good addresses"}
	transientHints     = []string{"timeout", "deadline exceeded", "temporarily", "try again"}
)

// Classify 对后端返回的错误分类
//
// 先匹配本包的哨兵错误，再识别控制接口本身的传输错误，最后按错误消息匹配。
// 后端转发的远端消息（例如拨号引导节点失败）只按消息分类。
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidPort):
		return KindConfiguration
	case errors.Is(err, ErrNotInitialized), errors.Is(err, ErrNetworkingUnavailable), errors.Is(err, ErrNoBackend):
		return KindBackendUnavailable
	case isTransportError(err):
		return KindBackendUnavailable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, configurationHints):
		return KindConfiguration
	case containsAny(msg, unavailableHints):
		return KindBackendUnavailable
	case containsAny(msg, unreachableHints):
		return KindBootstrapUnreachable
	case containsAny(msg, transientHints):
		return KindTransient
	}
	return KindUnknown
}

// ClassifyBootstrap 对连接引导节点的错误分类
//
// 只有配置错误和后端不可用是致命的，其余一律视为引导节点不可达。
func ClassifyBootstrap(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if kind := Classify(err); kind.Fatal() {
		return kind
	}
	return KindBootstrapUnreachable
}

// isTransportError 错误是否来自到后端控制接口的连接
func isTransportError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

// ============================================================================
//                              ConnectError
// ============================================================================

// ConnectError 致命的连接错误
//
// Error() 原样返回后端的错误消息。
type ConnectError struct {
	Op   string // 出错的后端调用
	Kind Kind
	Err  error
}

// Error 实现 error 接口
func (e *ConnectError) Error() string {
	return e.Err.Error()
}

// Unwrap 支持 errors.Unwrap
func (e *ConnectError) Unwrap() error {
	return e.Err
}
