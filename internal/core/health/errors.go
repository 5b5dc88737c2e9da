package health

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBackend 未配置后端
	ErrNoBackend = errors.New("health: backend is nil")
)

// FetchError 快照与节点数都获取失败
type FetchError struct {
	SnapshotErr error
	CountErr    error
}

// Error 实现 error 接口
func (e *FetchError) Error() string {
	if e.SnapshotErr != nil {
		return fmt.Sprintf("health: fetch snapshot: %v; peer count: %v", e.SnapshotErr, e.CountErr)
	}
	return fmt.Sprintf("health: snapshot unavailable; peer count: %v", e.CountErr)
}

// Unwrap 返回节点数错误（回退路径的最终错误）
func (e *FetchError) Unwrap() error {
	return e.CountErr
}
