package cidr

import (
	"net/netip"

	"github.com/ChristianF88/cidrfold/iputils"
)

// AddressRange is an IPv4 CIDR block stored numerically.
//
// IP is the network address and PrefixLen the prefix length (0-32). Values
// produced by Parse, Summarize and Consolidate are canonical: IP has no bits
// set outside the network portion of PrefixLen.
type AddressRange struct {
	IP        uint32
	PrefixLen uint8
}

// NewAddressRange builds a canonical range, clearing host bits of ip.
func NewAddressRange(ip uint32, prefixLen uint8) AddressRange {
	if prefixLen > 32 {
		prefixLen = 32
	}
	return AddressRange{IP: ip & iputils.NetworkMask(prefixLen), PrefixLen: prefixLen}
}

// End returns the last address of the range (network address | host mask).
func (r AddressRange) End() uint32 {
	return r.IP | iputils.HostMask(r.PrefixLen)
}

// Size returns the number of addresses in the range. A /0 holds 2^32.
func (r AddressRange) Size() uint64 {
	return uint64(r.End()-r.IP) + 1
}

// IsCanonical reports whether the start address is a valid network address
// for the prefix length.
func (r AddressRange) IsCanonical() bool {
	return r.PrefixLen <= 32 && r.IP&iputils.HostMask(r.PrefixLen) == 0
}

// Contains reports whether o lies entirely within r. Equal ranges contain each other.
func (r AddressRange) Contains(o AddressRange) bool {
	return r.IP <= o.IP && r.End() >= o.End()
}

// Overlaps reports whether r and o share at least one address.
func (r AddressRange) Overlaps(o AddressRange) bool {
	return r.IP <= o.End() && o.IP <= r.End()
}

// Prefix converts the range to a netip.Prefix
func (r AddressRange) Prefix() netip.Prefix {
	return netip.PrefixFrom(iputils.Uint32ToAddr(r.IP), int(r.PrefixLen))
}

// FromPrefix converts an IPv4 netip.Prefix into a canonical AddressRange.
func FromPrefix(p netip.Prefix) (AddressRange, bool) {
	ip, ok := iputils.AddrToUint32(p.Addr())
	if !ok || p.Bits() < 0 {
		return AddressRange{}, false
	}
	return NewAddressRange(ip, uint8(p.Bits())), true
}

// String converts AddressRange to its "a.b.c.d/n" representation.
// Uses manual byte building to avoid fmt.Sprintf allocation overhead.
func (r AddressRange) String() string {
	// Max: "255.255.255.255/32" = 18 bytes
	var buf [18]byte
	pos := 0

	pos = appendOctet(buf[:], pos, byte(r.IP>>24))
	buf[pos] = '.'
	pos++
	pos = appendOctet(buf[:], pos, byte(r.IP>>16))
	buf[pos] = '.'
	pos++
	pos = appendOctet(buf[:], pos, byte(r.IP>>8))
	buf[pos] = '.'
	pos++
	pos = appendOctet(buf[:], pos, byte(r.IP))
	buf[pos] = '/'
	pos++
	pos = appendOctet(buf[:], pos, r.PrefixLen)

	return string(buf[:pos])
}

func appendOctet(buf []byte, pos int, v byte) int {
	if v >= 100 {
		buf[pos] = '0' + v/100
		pos++
		buf[pos] = '0' + (v%100)/10
		pos++
		buf[pos] = '0' + v%10
		pos++
	} else if v >= 10 {
		buf[pos] = '0' + v/10
		pos++
		buf[pos] = '0' + v%10
		pos++
	} else {
		buf[pos] = '0' + v
		pos++
	}
	return pos
}

// Strings renders every range with String, preserving order
func Strings(ranges []AddressRange) []string {
	out := make([]string, len(ranges))
	for i, r := range ranges {
		out[i] = r.String()
	}
	return out
}
