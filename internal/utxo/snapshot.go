package utxo

import (
	"github.com/klingon-tech/chainlet/pkg/block"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// StatePerBlock maps block hash to the UTXO snapshot that results
// from replaying every transaction from genesis to that block over
// the seeded genesis state. Keying by hash rather than height means a
// sibling fork's snapshot is always available without any
// rollback/replay when the tip moves.
type StatePerBlock map[types.Hash]State

// NewStatePerBlock builds an SPB seeded with the genesis snapshot
// under genesisHash.
func NewStatePerBlock(genesisHash types.Hash) StatePerBlock {
	return StatePerBlock{
		genesisHash: InitialCoinOffering(),
	}
}

// Update derives the snapshot for b from SPB[parentHash] by applying
// every transaction in b in order, and stores it under hash(b).
// Re-applying a block already present is a no-op, so callers do not
// need to guard against replaying an already-accepted block.
func (spb StatePerBlock) Update(parentHash types.Hash, b *block.Block) types.Hash {
	hash := b.Hash()
	if _, ok := spb[hash]; ok {
		return hash
	}

	next := spb[parentHash].Clone()
	for i := range b.Content {
		next.Apply(&b.Content[i])
	}
	spb[hash] = next
	return hash
}
