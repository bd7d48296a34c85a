package iputils

import "net/netip"

// AddrToUint32 converts an IPv4 (or IPv4-mapped) netip.Addr to uint32.
// The second return value is false for anything else.
func AddrToUint32(addr netip.Addr) (uint32, bool) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return 0, false
	}
	b := addr.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), true
}

// Uint32ToAddr converts a uint32 to a netip.Addr
func Uint32ToAddr(ip uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)})
}

// HostMask returns the host portion mask for a prefix length: 2^(32-p) - 1.
// Prefix lengths above 32 are treated as 32.
func HostMask(prefixLen uint8) uint32 {
	if prefixLen >= 32 {
		return 0
	}
	return uint32(1)<<(32-prefixLen) - 1
}

// NetworkMask is the complement of HostMask
func NetworkMask(prefixLen uint8) uint32 {
	return ^HostMask(prefixLen)
}

// IsIPv6Token reports whether a raw token carries the IPv6 marker.
// Upstream sources filter on this before anything is parsed.
func IsIPv6Token(token string) bool {
	for i := 0; i < len(token); i++ {
		if token[i] == ':' {
			return true
		}
	}
	return false
}
