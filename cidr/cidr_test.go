package cidr

import (
	"net/netip"
	"testing"
)

func TestAddressRange_String(t *testing.T) {
	tests := []struct {
		r        AddressRange
		expected string
	}{
		{AddressRange{IP: 0xC0A80100, PrefixLen: 24}, "192.168.1.0/24"},
		{AddressRange{IP: 0x0A000000, PrefixLen: 8}, "10.0.0.0/8"},
		{AddressRange{IP: 0, PrefixLen: 0}, "0.0.0.0/0"},
		{AddressRange{IP: 0xFFFFFFFF, PrefixLen: 32}, "255.255.255.255/32"},
		{AddressRange{IP: 0x01020304, PrefixLen: 32}, "1.2.3.4/32"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.r.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAddressRange_EndAndSize(t *testing.T) {
	tests := []struct {
		name string
		r    AddressRange
		end  uint32
		size uint64
	}{
		{"host", AddressRange{IP: 0x0A000001, PrefixLen: 32}, 0x0A000001, 1},
		{"slash24", AddressRange{IP: 0x0A000000, PrefixLen: 24}, 0x0A0000FF, 256},
		{"slash31", AddressRange{IP: 0x0A000000, PrefixLen: 31}, 0x0A000001, 2},
		{"everything", AddressRange{IP: 0, PrefixLen: 0}, 0xFFFFFFFF, 1 << 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.End(); got != tt.end {
				t.Errorf("End() = %#x, want %#x", got, tt.end)
			}
			if got := tt.r.Size(); got != tt.size {
				t.Errorf("Size() = %d, want %d", got, tt.size)
			}
		})
	}
}

func TestAddressRange_Contains(t *testing.T) {
	slash24 := mustParse(t, "10.0.0.0/24")
	upperHalf := mustParse(t, "10.0.0.128/25")
	nextNet := mustParse(t, "10.0.1.0/24")

	if !slash24.Contains(upperHalf) {
		t.Error("10.0.0.0/24 should contain 10.0.0.128/25")
	}
	if upperHalf.Contains(slash24) {
		t.Error("10.0.0.128/25 should not contain 10.0.0.0/24")
	}
	if !slash24.Contains(slash24) {
		t.Error("a range should contain itself")
	}
	if slash24.Contains(nextNet) || nextNet.Contains(slash24) {
		t.Error("adjacent ranges should not contain each other")
	}
	if slash24.Overlaps(nextNet) {
		t.Error("adjacent ranges should not overlap")
	}
	if !slash24.Overlaps(upperHalf) {
		t.Error("nested ranges overlap")
	}
}

// Any two canonical blocks are disjoint, equal, or nested.
func TestCanonicalBlocksNeverPartiallyOverlap(t *testing.T) {
	blocks := []AddressRange{}
	for prefix := uint8(20); prefix <= 26; prefix++ {
		for ip := uint32(0x0A000000); ip < 0x0A002000; ip += 1 << (32 - prefix) {
			blocks = append(blocks, AddressRange{IP: ip, PrefixLen: prefix})
		}
	}

	for _, a := range blocks {
		for _, b := range blocks {
			if a.Overlaps(b) && !a.Contains(b) && !b.Contains(a) {
				t.Fatalf("%s and %s partially overlap", a, b)
			}
		}
	}
}

func TestPrefixConversion(t *testing.T) {
	r := mustParse(t, "172.16.5.0/24")
	p := r.Prefix()
	if p != netip.MustParsePrefix("172.16.5.0/24") {
		t.Fatalf("Prefix() = %s", p)
	}

	back, ok := FromPrefix(netip.MustParsePrefix("172.16.5.77/24"))
	if !ok || back != r {
		t.Errorf("FromPrefix = %s, %v; want %s", back, ok, r)
	}

	if _, ok := FromPrefix(netip.MustParsePrefix("2001:db8::/32")); ok {
		t.Error("FromPrefix should reject IPv6 prefixes")
	}
}

func TestNewAddressRange_ClearsHostBits(t *testing.T) {
	r := NewAddressRange(0x0A000005, 24)
	if r.IP != 0x0A000000 || !r.IsCanonical() {
		t.Errorf("NewAddressRange did not canonicalize: %s", r)
	}
	if (AddressRange{IP: 0x0A000005, PrefixLen: 24}).IsCanonical() {
		t.Error("10.0.0.5 with /24 is not canonical")
	}
}

func mustParse(t testing.TB, token string) AddressRange {
	t.Helper()
	r, err := Parse(token)
	if err != nil {
		t.Fatalf("Parse(%q): %v", token, err)
	}
	return r
}

func mustParseAll(t testing.TB, tokens ...string) []AddressRange {
	t.Helper()
	out := make([]AddressRange, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, mustParse(t, token))
	}
	return out
}
