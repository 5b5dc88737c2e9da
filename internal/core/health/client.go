package health

import (
	"context"

	"github.com/dep2p/go-dhtlink/pkg/interfaces"
	"github.com/dep2p/go-dhtlink/pkg/lib/log"
	"github.com/dep2p/go-dhtlink/pkg/types"
)

var logger = log.Logger("core/health")

// Result 一次获取的结果
type Result struct {
	// Snapshot 完整快照；CountOnly 时为 nil
	Snapshot *types.HealthSnapshot
	// PeerCount 节点数
	PeerCount uint
	// CountOnly 快照不可用，只拿到了节点数
	CountOnly bool
}

// Client 健康快照客户端
type Client struct {
	backend interfaces.Backend
}

// NewClient 创建健康快照客户端
func NewClient(backend interfaces.Backend) *Client {
	return &Client{backend: backend}
}

// Fetch 获取健康快照
//
// 快照不可用（nil 或出错）时退化为 GetPeerCount；两者都失败才返回错误。
func (c *Client) Fetch(ctx context.Context) (Result, error) {
	if c.backend == nil {
		return Result{}, ErrNoBackend
	}

	snap, snapErr := c.backend.GetHealthSnapshot(ctx)
	if snapErr == nil && snap != nil {
		snap.TrimHistory()
		return Result{Snapshot: snap, PeerCount: snap.PeerCount}, nil
	}
	if snapErr != nil {
		logger.Debug("获取健康快照失败，回退到节点数", "error", snapErr)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	count, err := c.backend.GetPeerCount(ctx)
	if err != nil {
		return Result{}, &FetchError{SnapshotErr: snapErr, CountErr: err}
	}
	return Result{PeerCount: count, CountOnly: true}, nil
}
