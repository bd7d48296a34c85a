// Package pipeline turns a batch of raw tokens into a consolidated list of
// IPv4 blocks: deduplicate, normalize, consolidate.
package pipeline

import (
	"sort"

	"github.com/ChristianF88/cidrfold/cidr"
	"github.com/ChristianF88/cidrfold/dedup"
	"github.com/ChristianF88/cidrfold/iputils"
)

// Result is the outcome of one Run.
type Result struct {
	Ranges      []cidr.AddressRange
	Collected   int // tokens handed to Run
	Unique      int // distinct tokens after deduplication
	IPv6Skipped int // distinct tokens dropped because they contain ':'
	Malformed   []*cidr.MalformedRangeError
	Stats       cidr.Stats
}

// Valid returns how many distinct tokens normalized successfully.
func (r *Result) Valid() int {
	return r.Unique - r.IPv6Skipped - len(r.Malformed)
}

// Lines renders the consolidated ranges, one "a.b.c.d/n" string per block.
func (r *Result) Lines() []string {
	return cidr.Strings(r.Ranges)
}

// Addresses returns the number of addresses covered by the result.
func (r *Result) Addresses() uint64 {
	var total uint64
	for _, rg := range r.Ranges {
		total += rg.Size()
	}
	return total
}

// Run deduplicates tokens, drops IPv6 tokens, normalizes the rest and
// consolidates them. Malformed tokens are reported in the result and never
// abort the run.
func Run(tokens []string) *Result {
	unique := dedup.Strings(tokens)
	return runUnique(unique, len(tokens))
}

// RunSet runs the pipeline over tokens already collected into a set.
func RunSet(set *dedup.Set) *Result {
	return runUnique(set.Tokens(), set.Seen())
}

func runUnique(unique []string, collected int) *Result {
	res := &Result{Collected: collected, Unique: len(unique)}

	v4 := make([]string, 0, len(unique))
	for _, token := range unique {
		if iputils.IsIPv6Token(token) {
			res.IPv6Skipped++
			continue
		}
		v4 = append(v4, token)
	}

	ranges, malformed := cidr.ParseAll(v4)
	sort.Slice(malformed, func(i, j int) bool { return malformed[i].Token < malformed[j].Token })
	res.Malformed = malformed
	res.Ranges, res.Stats = cidr.ConsolidateWithStats(ranges)
	return res
}
