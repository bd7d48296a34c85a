// Package dedup removes exact string duplicates from raw tokens before they
// are normalized.
package dedup

import (
	"sync/atomic"

	"github.com/alphadose/haxmap"
)

// Set is a concurrent set of raw tokens. Fetchers running in parallel add to
// the same Set without extra locking.
type Set struct {
	tokens *haxmap.Map[string, struct{}]
	seen   atomic.Int64
}

// NewSet creates an empty set sized for roughly sizeHint tokens.
func NewSet(sizeHint int) *Set {
	if sizeHint < 8 {
		sizeHint = 8
	}
	return &Set{tokens: haxmap.New[string, struct{}](uintptr(sizeHint))}
}

// Add inserts token and reports whether it was not present before.
func (s *Set) Add(token string) bool {
	s.seen.Add(1)
	_, loaded := s.tokens.GetOrSet(token, struct{}{})
	return !loaded
}

// AddAll adds every token and returns how many were new.
func (s *Set) AddAll(tokens []string) int {
	added := 0
	for _, t := range tokens {
		if s.Add(t) {
			added++
		}
	}
	return added
}

// Len returns the number of distinct tokens.
func (s *Set) Len() int {
	return int(s.tokens.Len())
}

// Seen returns how many tokens were offered to the set, duplicates included.
func (s *Set) Seen() int {
	return int(s.seen.Load())
}

// Tokens returns the distinct tokens in no particular order.
func (s *Set) Tokens() []string {
	out := make([]string, 0, s.Len())
	s.tokens.ForEach(func(token string, _ struct{}) bool {
		out = append(out, token)
		return true
	})
	return out
}

// Strings returns tokens with exact duplicates removed. Order is not preserved.
func Strings(tokens []string) []string {
	set := NewSet(len(tokens))
	set.AddAll(tokens)
	return set.Tokens()
}
