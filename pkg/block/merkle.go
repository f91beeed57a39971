package block

import (
	"github.com/klingon-tech/chainlet/pkg/crypto"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// ComputeMerkleRoot calculates the Merkle root of a transaction-hash
// sequence.
//
// Algorithm:
//   - 0 hashes: returns the zero hash.
//   - 1 hash: returns that hash.
//   - Otherwise: pairwise hash, duplicating the last element if the
//     level has odd count, then recurse on the resulting level until
//     one hash remains.
func ComputeMerkleRoot(txHashes []types.Hash) types.Hash {
	if len(txHashes) == 0 {
		return types.Hash{}
	}
	if len(txHashes) == 1 {
		return txHashes[0]
	}

	level := make([]types.Hash, len(txHashes))
	copy(level, txHashes)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.HashConcat(level[i], level[i+1])
		}
		level = next
	}

	return level[0]
}
