// Package hashutil provides the hash mixing primitives shared by attribute values
// and the lattice enumerators.
//
// Combine folds one elementary hash into an accumulator using the boost-style
// golden-ratio mixer. It is order-sensitive: folding the same hashes in a
// different sequence yields a different result, which is what lets a lattice
// distinguish (a, b) from (b, a).
package hashutil

import "hash/fnv"

const (
	// GoldenRatio is the 32-bit golden-ratio constant used by Combine, widened to 64 bits.
	GoldenRatio = 0x9e3779b9

	// combineShiftLeft and combineShiftRight spread the accumulator bits before XOR.
	combineShiftLeft  = 6
	combineShiftRight = 2
)

// Splitmix64 finalizer constants (Vigna, 2014).
const (
	mixShift1 = 30
	mixMul1   = 0xbf58476d1ce4e5b9
	mixShift2 = 27
	mixMul2   = 0x94d049bb133111eb
	mixShift3 = 31
)

// Combine mixes h into acc: acc ^ (h + GoldenRatio + (acc << 6) + (acc >> 2)).
// Arithmetic wraps modulo 2^64.
func Combine(acc, h uint64) uint64 {
	return acc ^ (h + GoldenRatio + (acc << combineShiftLeft) + (acc >> combineShiftRight))
}

// Sequential folds Combine left-to-right over hashes, starting from zero.
// An empty input yields zero.
func Sequential(hashes ...uint64) uint64 {
	var acc uint64

	for _, h := range hashes {
		acc = Combine(acc, h)
	}

	return acc
}

// Mix64 applies the splitmix64 finalizer for full-avalanche mixing.
// Zero is a fixed point.
func Mix64(v uint64) uint64 {
	v ^= v >> mixShift1
	v *= mixMul1
	v ^= v >> mixShift2
	v *= mixMul2
	v ^= v >> mixShift3

	return v
}

// MixHash combines a base hash with a seed using XOR and the splitmix64 finalizer.
func MixHash(base, seed uint64) uint64 {
	return Mix64(base ^ seed)
}

// FNV64a computes a 64-bit FNV-1a hash of the given data.
func FNV64a(data []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(data)

	return h.Sum64()
}
