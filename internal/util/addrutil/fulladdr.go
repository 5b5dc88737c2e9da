// Package addrutil 提供地址解析工具
//
// 本包处理带对等路由后缀（/p2p/<PeerID>）的完整地址：解析、提取 PeerID，
// 以及从一组地址中挑选最适合直连的那一个。
package addrutil

import (
	"errors"
	"strings"
)

// PeerRoutingComponent 对等路由后缀的协议前缀
const PeerRoutingComponent = "/p2p/"

var (
	// ErrMissingPeerID 缺少 /p2p/<PeerID> 后缀
	ErrMissingPeerID = errors.New("missing /p2p/<PeerID> suffix")

	// ErrPeerIDNotAtEnd /p2p/<PeerID> 不在地址末尾
	ErrPeerIDNotAtEnd = errors.New("/p2p/<PeerID> must be at the end of address")

	// ErrEmptyAddress 空地址
	ErrEmptyAddress = errors.New("empty address")
)

// ParseFullAddr 解析完整地址（含 /p2p/<PeerID>）
//
// 中继电路地址取最后一个 /p2p/ 之后的目标 ID：
//
//	id, addr, _ := ParseFullAddr("/ip4/1.2.3.4/tcp/4001/p2p/QmRelay/p2p-circuit/p2p/QmTarget")
//	// id = QmTarget, addr = "/ip4/1.2.3.4/tcp/4001/p2p/QmRelay/p2p-circuit"
func ParseFullAddr(fullAddr string) (peerID string, dialAddr string, err error) {
	if fullAddr == "" {
		return "", "", ErrEmptyAddress
	}

	last := strings.LastIndex(fullAddr, PeerRoutingComponent)
	if last == -1 {
		return "", "", ErrMissingPeerID
	}

	peerID = fullAddr[last+len(PeerRoutingComponent):]
	if peerID == "" {
		return "", "", ErrMissingPeerID
	}
	if strings.Contains(peerID, "/") {
		return "", "", ErrPeerIDNotAtEnd
	}

	return peerID, fullAddr[:last], nil
}

// HasPeerID 检查地址是否包含 /p2p/<PeerID>
func HasPeerID(addr string) bool {
	return strings.Contains(addr, PeerRoutingComponent)
}

// ExtractPeerID 从地址中提取 PeerID
//
// 不是 multiaddr 的输入（例如信令名单里的裸 ID）原样返回。
func ExtractPeerID(addr string) string {
	if !strings.HasPrefix(addr, "/") {
		return addr
	}
	id, _, err := ParseFullAddr(addr)
	if err != nil {
		return ""
	}
	return id
}
