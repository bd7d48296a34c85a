package iputils

// RadixSortByKey sorts data in place, ascending by key(elem), with 8-bit LSD
// radix passes. This is O(n) vs sort.Slice's O(n log n).
//
// The sort is stable: elements with equal keys keep their relative order.
// LSD radix sort is stable by construction (every counting pass preserves the
// order of equal bytes) and so is the insertion sort used for small inputs.
func RadixSortByKey[T any](data []T, key func(T) uint32) {
	n := len(data)
	if n <= 1 {
		return
	}

	// For very small arrays, insertion sort is faster
	if n <= 64 {
		insertionSortByKey(data, key)
		return
	}

	keys := make([]uint32, n)
	for i, v := range data {
		keys[i] = key(v)
	}

	// Scratch buffers are allocated once and swapped between passes
	scratch := make([]T, n)
	scratchKeys := make([]uint32, n)

	radixPass(data, keys, scratch, scratchKeys, 0)
	radixPass(scratch, scratchKeys, data, keys, 8)
	radixPass(data, keys, scratch, scratchKeys, 16)
	radixPass(scratch, scratchKeys, data, keys, 24)
}

// radixPass performs one pass of counting sort based on a specific byte position.
// src is the input, dst is the output. shift is the bit position (0, 8, 16, or 24).
func radixPass[T any](src []T, srcKeys []uint32, dst []T, dstKeys []uint32, shift uint) {
	var counts [256]int

	for _, k := range srcKeys {
		counts[(k>>shift)&0xFF]++
	}

	// Convert counts to prefix sums (starting positions)
	total := 0
	for i := range counts {
		count := counts[i]
		counts[i] = total
		total += count
	}

	for i, k := range srcKeys {
		b := (k >> shift) & 0xFF
		dst[counts[b]] = src[i]
		dstKeys[counts[b]] = k
		counts[b]++
	}
}

// insertionSortByKey for small slices where radix overhead isn't worthwhile
func insertionSortByKey[T any](data []T, key func(T) uint32) {
	for i := 1; i < len(data); i++ {
		v := data[i]
		k := key(v)
		j := i - 1
		for j >= 0 && key(data[j]) > k {
			data[j+1] = data[j]
			j--
		}
		data[j+1] = v
	}
}
