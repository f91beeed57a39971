// Package block defines the block header, block, and Merkle-root
// construction over a transaction list.
package block

import (
	"encoding/binary"

	"github.com/klingon-tech/chainlet/pkg/crypto"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// Header is the fixed-width block header. Nonce is the value the
// miner iterates; Difficulty is the recorded target field carried for
// wire compatibility (see consensus.Target for the value actually
// enforced on accept).
type Header struct {
	ParentHash types.Hash      `json:"parent_hash"`
	Nonce      uint32          `json:"nonce"`
	Difficulty types.Hash      `json:"difficulty"`
	Timestamp  types.Timestamp `json:"timestamp"`
	MerkleRoot types.Hash      `json:"merkle_root"`
}

// SigningBytes returns the canonical byte encoding of the header, the
// input to the block-hash function.
//
// Layout: parent_hash(32) | nonce(4) | difficulty(32) | timestamp(16) |
// merkle_root(32), all integers little-endian.
func (h *Header) SigningBytes() []byte {
	buf := make([]byte, 0, 32+4+32+16+32)
	buf = append(buf, h.ParentHash[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, h.Nonce)
	buf = append(buf, h.Difficulty[:]...)
	buf = append(buf, h.Timestamp[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	return buf
}

// Hash computes the block hash: SHA-256 over the header's canonical
// serialization.
func (h *Header) Hash() types.Hash {
	return crypto.Hash(h.SigningBytes())
}
