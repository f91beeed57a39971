package miner

import (
	"github.com/klingon-tech/chainlet/pkg/block"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// ChainAccepter is the chain-store surface the miner worker needs to
// insert a mined block.
type ChainAccepter interface {
	Accept(parentHash types.Hash, b *block.Block) (hash types.Hash, accepted bool)
}

// BlockAnnouncer is the gossip-layer surface the miner worker needs to
// tell peers about a newly accepted block.
type BlockAnnouncer interface {
	BroadcastNewBlockHashes(hashes []types.Hash)
}

// RunWorker drains finished, inserting each mined block into chain and
// announcing it to peers on success. It blocks until finished is
// closed, so callers run it in its own goroutine.
//
// Separating this from the mining loop keeps chain-store insertion —
// which must race fairly against blocks arriving over gossip — off the
// mining goroutine, so a slow or blocked Accept never stalls the next
// PoW attempt.
func RunWorker(finished <-chan MinedBlock, chain ChainAccepter, announcer BlockAnnouncer) {
	for mb := range finished {
		hash, accepted := chain.Accept(mb.ParentHash, mb.Block)
		if !accepted {
			continue
		}
		announcer.BroadcastNewBlockHashes([]types.Hash{hash})
	}
}
