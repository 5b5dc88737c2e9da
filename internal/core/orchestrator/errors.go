package orchestrator

import (
	"errors"

	"github.com/dep2p/go-dhtlink/internal/core/bootstrap"
)

var (
	// ErrCancelled 连接被取消
	ErrCancelled = bootstrap.ErrCancelled

	// ErrClosed 编排器已关闭
	ErrClosed = errors.New("orchestrator: closed")
)
