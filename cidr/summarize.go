package cidr

import "math/bits"

// LargestBlockBits returns the number of host bits of the largest CIDR block
// that starts at start and does not extend past end. start must be <= end.
func LargestBlockBits(start, end uint32) uint8 {
	// Alignment: a block of 2^n addresses must start on a multiple of 2^n
	hostBits := uint8(32)
	if start != 0 {
		hostBits = uint8(bits.TrailingZeros32(start))
	}

	// Shrink until the block fits inside [start, end]
	span := uint64(end) - uint64(start) + 1
	for hostBits > 0 && uint64(1)<<hostBits > span {
		hostBits--
	}
	return hostBits
}

// Summarize returns the minimal ordered set of CIDR blocks that exactly covers
// [start, end], taking at each step the largest aligned block at the covering
// pointer that does not exceed end. It returns nil when start > end.
func Summarize(start, end uint32) []AddressRange {
	if start > end {
		return nil
	}

	result := make([]AddressRange, 0, 4)
	current := uint64(start)
	last := uint64(end)

	for current <= last {
		hostBits := LargestBlockBits(uint32(current), end)
		result = append(result, AddressRange{
			IP:        uint32(current),
			PrefixLen: 32 - hostBits,
		})
		// uint64 keeps the pointer from wrapping past 255.255.255.255
		current += uint64(1) << hostBits
	}

	return result
}
