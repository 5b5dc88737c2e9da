package rpc

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEndpoint 后端地址无效
	ErrInvalidEndpoint = errors.New("rpc: invalid endpoint")
	// ErrUnknownEvent 未知的推送事件
	ErrUnknownEvent = errors.New("rpc: unknown backend event")
)

// RemoteError 后端返回的命令错误
//
// Error() 原样返回后端消息。
type RemoteError struct {
	Method  string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// StatusError HTTP 层失败（非 2xx 且没有错误消息体）
type StatusError struct {
	Method string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rpc %s: unexpected status %d", e.Method, e.Status)
}
