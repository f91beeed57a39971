package block

import (
	"github.com/klingon-tech/chainlet/pkg/tx"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// Block is a header paired with its ordered transaction content.
type Block struct {
	Header  *Header                `json:"header"`
	Content []tx.SignedTransaction `json:"content"`
}

// NewBlock builds a block from a header and content, computing the
// header's Merkle root over the content as a side effect.
func NewBlock(header *Header, content []tx.SignedTransaction) *Block {
	hashes := make([]types.Hash, len(content))
	for i := range content {
		hashes[i] = content[i].Hash()
	}
	header.MerkleRoot = ComputeMerkleRoot(hashes)
	return &Block{Header: header, Content: content}
}

// Hash returns the block's header hash.
func (b *Block) Hash() types.Hash {
	if b.Header == nil {
		return types.Hash{}
	}
	return b.Header.Hash()
}
