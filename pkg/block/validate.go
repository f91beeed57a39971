package block

import (
	"errors"
	"fmt"

	"github.com/klingon-tech/chainlet/pkg/consensus"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// Validation errors.
var (
	ErrNilHeader       = errors.New("block has nil header")
	ErrBadMerkleRoot   = errors.New("merkle root mismatch")
	ErrBadDifficulty   = errors.New("header difficulty does not match the network target")
	ErrPowNotSatisfied = errors.New("block hash does not satisfy proof-of-work target")
)

// Validate checks the block's structural well-formedness: a non-nil
// header and a Merkle root consistent with its content. It does not
// check proof-of-work (see CheckProofOfWork) or any UTXO rule (see
// internal/utxo), both of which need context this block alone lacks.
func (b *Block) Validate() error {
	if b.Header == nil {
		return ErrNilHeader
	}

	hashes := make([]types.Hash, len(b.Content))
	for i := range b.Content {
		hashes[i] = b.Content[i].Hash()
	}
	expected := ComputeMerkleRoot(hashes)
	if b.Header.MerkleRoot != expected {
		return fmt.Errorf("%w: header=%s computed=%s", ErrBadMerkleRoot, b.Header.MerkleRoot, expected)
	}

	for i := range b.Content {
		if err := b.Content[i].Validate(); err != nil {
			return fmt.Errorf("content %d: %w", i, err)
		}
	}
	return nil
}

// CheckProofOfWork verifies that the header's recorded difficulty
// matches the network-wide target and that the block hash satisfies
// it (the header's Difficulty field and the PoW target are the same value).
func (b *Block) CheckProofOfWork() error {
	if b.Header.Difficulty != consensus.Target {
		return ErrBadDifficulty
	}
	if !consensus.Satisfies(b.Hash()) {
		return ErrPowNotSatisfied
	}
	return nil
}
