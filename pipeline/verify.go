package pipeline

import (
	"fmt"
	"net/netip"

	"go4.org/netipx"

	"github.com/ChristianF88/cidrfold/cidr"
	"github.com/ChristianF88/cidrfold/iputils"
)

// Coverage compares the address space of the raw input with the address space
// of the consolidated output.
type Coverage struct {
	Equal   bool
	Missing []cidr.AddressRange // in the input, not in the output
	Extra   []cidr.AddressRange // in the output, not in the input
}

// Verify checks that ranges cover exactly the addresses named by the valid
// IPv4 tokens. Malformed and IPv6 tokens are ignored.
func Verify(tokens []string, ranges []cidr.AddressRange) (Coverage, error) {
	var in netipx.IPSetBuilder
	for _, token := range tokens {
		if iputils.IsIPv6Token(token) {
			continue
		}
		r, err := cidr.Parse(token)
		if err != nil {
			continue
		}
		in.AddPrefix(r.Prefix())
	}
	inSet, err := in.IPSet()
	if err != nil {
		return Coverage{}, fmt.Errorf("building input set: %w", err)
	}

	var out netipx.IPSetBuilder
	for _, r := range ranges {
		out.AddPrefix(r.Prefix())
	}
	outSet, err := out.IPSet()
	if err != nil {
		return Coverage{}, fmt.Errorf("building output set: %w", err)
	}

	missing, err := difference(inSet, outSet)
	if err != nil {
		return Coverage{}, err
	}
	extra, err := difference(outSet, inSet)
	if err != nil {
		return Coverage{}, err
	}

	return Coverage{
		Equal:   inSet.Equal(outSet),
		Missing: toRanges(missing.Prefixes()),
		Extra:   toRanges(extra.Prefixes()),
	}, nil
}

// toRanges converts the prefixes of an IPv4-only set back to ranges.
func toRanges(prefixes []netip.Prefix) []cidr.AddressRange {
	ranges := make([]cidr.AddressRange, 0, len(prefixes))
	for _, p := range prefixes {
		if r, ok := cidr.FromPrefix(p); ok {
			ranges = append(ranges, r)
		}
	}
	return ranges
}

func difference(a, b *netipx.IPSet) (*netipx.IPSet, error) {
	var diff netipx.IPSetBuilder
	diff.AddSet(a)
	diff.RemoveSet(b)
	s, err := diff.IPSet()
	if err != nil {
		return nil, fmt.Errorf("computing set difference: %w", err)
	}
	return s, nil
}
