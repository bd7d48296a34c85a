package cidr

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"
)

func TestConsolidate(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "containment collapse",
			input:    []string{"10.0.0.0/24", "10.0.0.128/25"},
			expected: []string{"10.0.0.0/24"},
		},
		{
			name:     "exact duplicate collapse",
			input:    []string{"1.2.3.4", "1.2.3.4/32"},
			expected: []string{"1.2.3.4/32"},
		},
		{
			name:     "adjacent blocks are not merged",
			input:    []string{"10.0.0.0/24", "10.0.1.0/24"},
			expected: []string{"10.0.0.0/24", "10.0.1.0/24"},
		},
		{
			name:     "supernet listed after subnet replaces it",
			input:    []string{"10.0.0.128/25", "10.0.0.0/24"},
			expected: []string{"10.0.0.0/24"},
		},
		{
			name:     "same start, larger block wins regardless of order",
			input:    []string{"10.0.0.0/24", "10.0.0.0/16", "10.0.0.0/20"},
			expected: []string{"10.0.0.0/16"},
		},
		{
			name:     "output sorted by start",
			input:    []string{"192.168.0.0/16", "10.0.0.0/8", "172.16.0.0/12"},
			expected: []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		},
		{
			name:     "nested chain",
			input:    []string{"10.1.2.3", "10.1.2.0/24", "10.1.0.0/16", "10.0.0.0/8", "11.0.0.1"},
			expected: []string{"10.0.0.0/8", "11.0.0.1/32"},
		},
		{
			name:     "many hosts inside one block",
			input:    []string{"10.0.0.1", "10.0.0.2", "10.0.0.0/30", "10.0.0.3"},
			expected: []string{"10.0.0.0/30"},
		},
		{
			name:     "everything swallows all",
			input:    []string{"1.1.1.1", "0.0.0.0/0", "255.255.255.255"},
			expected: []string{"0.0.0.0/0"},
		},
		{
			name:     "single range",
			input:    []string{"8.8.8.8"},
			expected: []string{"8.8.8.8/32"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Strings(Consolidate(mustParseAll(t, tt.input...)))
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Consolidate(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestConsolidate_Empty(t *testing.T) {
	got := Consolidate(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestConsolidate_DoesNotModifyInput(t *testing.T) {
	input := mustParseAll(t, "10.0.1.0/24", "10.0.0.0/24", "10.0.0.0/16")
	snapshot := append([]AddressRange(nil), input...)

	Consolidate(input)

	if !reflect.DeepEqual(input, snapshot) {
		t.Errorf("input modified: %v", Strings(input))
	}
}

func TestConsolidateWithStats(t *testing.T) {
	input := mustParseAll(t,
		"10.0.0.0/24", "10.0.0.0/24", // duplicate
		"10.0.0.128/25", // contained
		"10.0.0.0/23",   // replaces current
		"10.0.5.0/24",   // disjoint
	)

	out, stats := ConsolidateWithStats(input)

	want := []string{"10.0.0.0/23", "10.0.5.0/24"}
	if got := Strings(out); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if stats.Input != 5 || stats.Output != 2 {
		t.Errorf("input/output = %d/%d, want 5/2", stats.Input, stats.Output)
	}
	if stats.Contained != 2 {
		t.Errorf("Contained = %d, want 2", stats.Contained)
	}
	if stats.Replaced != 1 {
		t.Errorf("Replaced = %d, want 1", stats.Replaced)
	}
	if stats.Summarized != 0 || stats.Fallbacks != 0 {
		t.Errorf("canonical input reached the overlap branch: %+v", stats)
	}
}

// Non-canonical ranges built by hand bypass Parse and reach the overlap branch.
func TestConsolidate_NonCanonicalOverlap(t *testing.T) {
	t.Run("summarized into one block", func(t *testing.T) {
		input := []AddressRange{
			{IP: 0x0A000000, PrefixLen: 24}, // 10.0.0.0 - 10.0.0.255
			{IP: 0x0A000080, PrefixLen: 23}, // 10.0.0.128 - 10.0.1.255
		}
		out, stats := ConsolidateWithStats(input)
		if got := Strings(out); !reflect.DeepEqual(got, []string{"10.0.0.0/23"}) {
			t.Errorf("got %v, want [10.0.0.0/23]", got)
		}
		if stats.Summarized != 1 {
			t.Errorf("Summarized = %d, want 1", stats.Summarized)
		}
	})

	t.Run("fallback keeps both", func(t *testing.T) {
		input := []AddressRange{
			{IP: 0x0A000100, PrefixLen: 24}, // 10.0.1.0 - 10.0.1.255
			{IP: 0x0A000180, PrefixLen: 22}, // 10.0.1.128 - 10.0.3.255
		}
		out, stats := ConsolidateWithStats(input)
		if len(out) != 2 || out[0] != input[0] || out[1] != input[1] {
			t.Errorf("expected both ranges unchanged, got %+v", out)
		}
		if stats.Fallbacks != 1 {
			t.Errorf("Fallbacks = %d, want 1", stats.Fallbacks)
		}
	})
}

func TestConsolidate_Properties(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			input := randomRanges(rng, 500)

			out := Consolidate(input)

			for i, r := range out {
				if !r.IsCanonical() {
					t.Fatalf("non-canonical output %+v", r)
				}
				if i > 0 && out[i-1].IP >= r.IP {
					t.Fatalf("output not strictly ascending at %d: %s, %s", i, out[i-1], r)
				}
			}

			// Containment freedom
			for i := range out {
				for j := range out {
					if i != j && out[i].Contains(out[j]) {
						t.Fatalf("%s contains %s", out[i], out[j])
					}
				}
			}

			// Every input is covered by some output block
			for _, in := range input {
				covered := false
				for _, o := range out {
					if o.Contains(in) {
						covered = true
						break
					}
				}
				if !covered {
					t.Fatalf("input %s lost", in)
				}
			}

			// Determinism under permutation
			shuffled := append([]AddressRange(nil), input...)
			rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			if again := Consolidate(shuffled); !reflect.DeepEqual(again, out) {
				t.Fatal("output depends on input order")
			}

			// Idempotence
			if again := Consolidate(out); !reflect.DeepEqual(again, out) {
				t.Fatal("consolidating the output changed it")
			}
		})
	}
}

func TestConsolidate_DisjointNonAdjacentUnchanged(t *testing.T) {
	var input []AddressRange
	// Every other /24 in 10.0.0.0/16: pairwise disjoint and never adjacent
	for i := uint32(0); i < 256; i += 2 {
		input = append(input, AddressRange{IP: 0x0A000000 | i<<8, PrefixLen: 24})
	}
	rng := rand.New(rand.NewSource(7))
	shuffled := append([]AddressRange(nil), input...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	if got := Consolidate(shuffled); !reflect.DeepEqual(got, input) {
		t.Errorf("expected input set back in order, got %d ranges", len(got))
	}
}

// randomRanges draws canonical blocks from a small address window so that
// duplicates, nesting and adjacency are all common.
func randomRanges(rng *rand.Rand, n int) []AddressRange {
	out := make([]AddressRange, n)
	for i := range out {
		prefix := uint8(16 + rng.Intn(17))
		ip := 0x0A000000 | uint32(rng.Intn(1<<16))
		out[i] = NewAddressRange(ip, prefix)
	}
	return out
}
