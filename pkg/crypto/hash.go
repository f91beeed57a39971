// Package crypto provides the hashing and signature primitives used by
// the chain: SHA-256 for hashing and ed25519 for signing, both from
// the standard library.
package crypto

import (
	"crypto/sha256"

	"github.com/klingon-tech/chainlet/pkg/types"
)

// Hash computes the SHA-256 hash of data.
func Hash(data []byte) types.Hash {
	return sha256.Sum256(data)
}

// HashConcat hashes the concatenation of two hashes, used when building a
// Merkle tree's internal nodes.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [2 * types.HashSize]byte
	copy(buf[:types.HashSize], a[:])
	copy(buf[types.HashSize:], b[:])
	return Hash(buf[:])
}

// AddressFromPubKey derives an address from a public key: the first 20
// bytes of SHA-256(pubKey).
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}
