package health

import (
	"sync/atomic"

	"github.com/dep2p/go-dhtlink/pkg/types"
)

// Store 保存最近一次健康快照
//
// 读者拿到的指针不会被修改，需要改动时先 Clone。
type Store struct {
	current    atomic.Pointer[types.HealthSnapshot]
	peerCount  atomic.Uint64
	hasCurrent atomic.Bool
}

// NewStore 创建空的快照存储
func NewStore() *Store {
	return &Store{}
}

// Apply 应用一次获取结果
//
// 完整快照整体替换旧快照；只有节点数时保留旧快照，只更新节点数。
func (s *Store) Apply(r Result) {
	if r.Snapshot != nil {
		s.current.Store(r.Snapshot)
	}
	s.peerCount.Store(uint64(r.PeerCount))
	s.hasCurrent.Store(true)
}

// Snapshot 返回当前快照，没有时返回 nil
func (s *Store) Snapshot() *types.HealthSnapshot {
	return s.current.Load()
}

// PeerCount 返回最近一次观测到的节点数
func (s *Store) PeerCount() (uint, bool) {
	return uint(s.peerCount.Load()), s.hasCurrent.Load()
}

// Reset 清空存储
func (s *Store) Reset() {
	s.current.Store(nil)
	s.peerCount.Store(0)
	s.hasCurrent.Store(false)
}
