// Package consensus holds the fixed proof-of-work parameters shared by
// every node: the mining target and the genesis header fields. Per the
// header's Difficulty field and the PoW acceptance target differing in
// the reference implementation this is distilled from, this package
// unifies them into the single value below (see DESIGN.md):
// nodes accept only blocks whose header Difficulty equals Target and
// whose hash is numerically <= Target.
package consensus

import "github.com/klingon-tech/chainlet/pkg/types"

// Target is the fixed mining target: a block header hash must be <=
// this value, interpreted as a big-endian 256-bit integer, to satisfy
// proof-of-work. Byte 0 and byte 1 are 0x00; the remaining 30 bytes
// are 0xFF.
var Target = func() types.Hash {
	var t types.Hash
	for i := 2; i < types.HashSize; i++ {
		t[i] = 0xFF
	}
	return t
}()

// GenesisDifficulty is the difficulty value recorded in the genesis
// header: byte 0 = 0x10, the rest zero. It is not the PoW acceptance
// target (see Target above); it is carried only because genesis must
// be byte-identical across nodes.
var GenesisDifficulty = func() types.Hash {
	var d types.Hash
	d[0] = 0x10
	return d
}()

// Satisfies reports whether hash meets the proof-of-work requirement
// against Target: hash, read as a big-endian integer, must be <=
// Target.
func Satisfies(hash types.Hash) bool {
	for i := 0; i < types.HashSize; i++ {
		if hash[i] < Target[i] {
			return true
		}
		if hash[i] > Target[i] {
			return false
		}
	}
	return true
}
