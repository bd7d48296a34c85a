package cidr

import "github.com/ChristianF88/cidrfold/iputils"

// Stats counts how each step of a consolidation pass was resolved.
type Stats struct {
	Input      int // ranges handed to the pass
	Output     int // ranges emitted
	Contained  int // discarded because the current range already covers them (includes duplicates)
	Replaced   int // current range replaced by a containing supernet
	Summarized int // partial overlaps collapsed into a single block
	Fallbacks  int // partial overlaps that needed more than one block and were kept apart
}

// SortRanges sorts ranges ascending by start address in place. Ranges with the
// same start keep their relative order.
func SortRanges(ranges []AddressRange) {
	iputils.RadixSortByKey(ranges, func(r AddressRange) uint32 { return r.IP })
}

// Consolidate collapses duplicates and containment in a single forward pass over
// the ranges sorted by start. See ConsolidateWithStats.
func Consolidate(ranges []AddressRange) []AddressRange {
	out, _ := ConsolidateWithStats(ranges)
	return out
}

// ConsolidateWithStats sorts a copy of ranges and merges it in one pass:
//
//   - a range covered by the current one is dropped
//   - a range covering the current one replaces it
//   - a partial overlap is replaced by its summary when that summary is a
//     single block, otherwise both ranges are kept
//   - anything else (disjoint or merely adjacent) starts a new current range
//
// Adjacent blocks are never joined into a supernet. Partial overlap cannot
// happen between canonical blocks; that branch only serves non-canonical input.
// The input slice is not modified. An empty input yields an empty slice.
func ConsolidateWithStats(ranges []AddressRange) ([]AddressRange, Stats) {
	stats := Stats{Input: len(ranges)}
	if len(ranges) == 0 {
		return []AddressRange{}, stats
	}

	sorted := make([]AddressRange, len(ranges))
	copy(sorted, ranges)
	SortRanges(sorted)

	result := make([]AddressRange, 0, len(sorted))
	current := sorted[0]

	for _, next := range sorted[1:] {
		switch {
		case current.Contains(next):
			stats.Contained++
		case next.Contains(current):
			current = next
			stats.Replaced++
		case current.End() >= next.IP:
			blocks := Summarize(min(current.IP, next.IP), max(current.End(), next.End()))
			if len(blocks) == 1 {
				current = blocks[0]
				stats.Summarized++
				continue
			}
			stats.Fallbacks++
			result = append(result, current)
			current = next
		default:
			result = append(result, current)
			current = next
		}
	}
	result = append(result, current)

	stats.Output = len(result)
	return result, stats
}
