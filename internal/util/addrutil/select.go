package addrutil

import "strings"

// addrRank 直连优先级，数值越小越优先
var addrRank = map[string]int{
	"public":   0,
	"dns":      1,
	"private":  2,
	"unknown":  3,
	"relay":    4,
	"loopback": 5,
}

// BestConnectable 从地址列表中挑选最适合直连的地址
//
// 只考虑带 /p2p/<PeerID> 的地址；同等优先级保持原有顺序。
// 没有可用地址时返回 ""。
func BestConnectable(addrs []string) string {
	best := ""
	bestRank := len(addrRank) + 1
	for _, addr := range addrs {
		if !HasPeerID(addr) {
			continue
		}
		if r := addrRank[AddrType(addr)]; r < bestRank {
			best, bestRank = addr, r
		}
	}
	return best
}

// Overlaps 判断两个地址是否视为同一连接目标
//
// 相等或任一方包含另一方即视为重叠。这是为了吸收传输后缀差异
// 的保守启发式，不相关但共享子串的地址也会误判为重叠。
func Overlaps(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
