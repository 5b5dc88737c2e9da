package addrutil

import (
	"net"
	"strings"
)

// ============================================================================
//                              IP 类型判断工具
// ============================================================================

// extractIP 从 multiaddr（/ip4/.., /ip6/..）或 host:port 中提取 IP
//
// DNS 地址无法判断 IP 类型，返回 nil。
func extractIP(addr string) net.IP {
	if addr == "" {
		return nil
	}

	if strings.HasPrefix(addr, "/") {
		parts := strings.Split(addr, "/")
		for i, part := range parts {
			switch part {
			case "ip4", "ip6":
				if i+1 < len(parts) {
					return net.ParseIP(parts[i+1])
				}
			case "dns", "dns4", "dns6", "dnsaddr":
				return nil
			}
		}
		return nil
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.ParseIP(addr)
	}
	return net.ParseIP(host)
}

// IsRelayCircuitAddr 判断是否是中继电路地址
func IsRelayCircuitAddr(addr string) bool {
	return strings.Contains(addr, "/p2p-circuit")
}

// AddrType 返回地址类型描述
//
// 返回值：relay / dns / loopback / private / public / unknown
func AddrType(addr string) string {
	if addr == "" {
		return "unknown"
	}
	if IsRelayCircuitAddr(addr) {
		return "relay"
	}
	if strings.Contains(addr, "/dns") {
		return "dns"
	}

	ip := extractIP(addr)
	switch {
	case ip == nil:
		return "unknown"
	case ip.IsLoopback():
		return "loopback"
	case ip.IsPrivate() || ip.IsLinkLocalUnicast():
		return "private"
	case ip.IsGlobalUnicast():
		return "public"
	default:
		return "unknown"
	}
}
