// Package chain owns the block-by-hash index, the per-block UTXO
// snapshot map, and fork-choice (longest chain). Per the
// actor-over-mutex re-architecture, both are owned by one goroutine
// reached only through Handle's serialized command channel — there is
// no cross-subsystem lock or lock-ordering obligation, because a
// single actor owns everything that must change atomically together.
// Every field below is touched only from inside a closure run on that
// goroutine; callers never reach in directly.
package chain

import (
	"github.com/klingon-tech/chainlet/config"
	"github.com/klingon-tech/chainlet/internal/utxo"
	"github.com/klingon-tech/chainlet/pkg/block"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// Handle is the chain store's public API: every method enqueues a
// closure on the owning goroutine and blocks for its result.
type Handle struct {
	cmds chan func()

	blocks      map[types.Hash]*block.Block
	length      map[types.Hash]uint64
	tip         types.Hash
	spb         utxo.StatePerBlock
	genesisHash types.Hash
}

// New constructs the genesis block, seeds the store and the genesis
// UTXO snapshot, and starts the owning goroutine.
func New() *Handle {
	genesis := config.NewGenesisBlock()
	genesisHash := genesis.Hash()

	h := &Handle{
		cmds:        make(chan func(), 256),
		blocks:      map[types.Hash]*block.Block{genesisHash: genesis},
		length:      map[types.Hash]uint64{genesisHash: 0},
		tip:         genesisHash,
		spb:         utxo.NewStatePerBlock(genesisHash),
		genesisHash: genesisHash,
	}

	go func() {
		for cmd := range h.cmds {
			cmd()
		}
	}()
	return h
}

// do enqueues fn on the owning goroutine and blocks until it runs.
func (h *Handle) do(fn func()) {
	done := make(chan struct{})
	h.cmds <- func() {
		fn()
		close(done)
	}
	<-done
}

// Close stops the owning goroutine. No further calls may be made on
// h after Close returns.
func (h *Handle) Close() {
	close(h.cmds)
}

// GenesisHash returns the fixed genesis block hash.
func (h *Handle) GenesisHash() types.Hash {
	return h.genesisHash
}

// Tip returns the current longest-chain tip hash.
func (h *Handle) Tip() types.Hash {
	var out types.Hash
	h.do(func() { out = h.tip })
	return out
}

// Length returns the height of hash, and whether it is known.
func (h *Handle) Length(hash types.Hash) (uint64, bool) {
	var out uint64
	var ok bool
	h.do(func() { out, ok = h.length[hash] })
	return out, ok
}

// Block returns the block stored under hash, and whether it is known.
func (h *Handle) Block(hash types.Hash) (*block.Block, bool) {
	var out *block.Block
	var ok bool
	h.do(func() { out, ok = h.blocks[hash] })
	return out, ok
}

// Has reports whether hash is already in the chain store.
func (h *Handle) Has(hash types.Hash) bool {
	var ok bool
	h.do(func() { _, ok = h.blocks[hash] })
	return ok
}

// State returns the UTXO snapshot recorded for hash, and whether one
// exists.
func (h *Handle) State(hash types.Hash) (utxo.State, bool) {
	var out utxo.State
	var ok bool
	h.do(func() { out, ok = h.spb[hash] })
	return out, ok
}

// LongestChain returns the ordered sequence of block-hashes from
// genesis to the current tip.
func (h *Handle) LongestChain() []types.Hash {
	var out []types.Hash
	h.do(func() {
		n := h.length[h.tip]
		out = make([]types.Hash, n+1)
		cur := h.tip
		for i := n; ; i-- {
			out[i] = cur
			if i == 0 {
				break
			}
			cur = h.blocks[cur].Header.ParentHash
		}
	})
	return out
}

// Accept inserts b into the store if it is new and its parent is
// already known, deriving the new UTXO snapshot from the parent's.
// It is a no-op (idempotent) if b's hash is already present, and
// fails silently — returning accepted=false — if the parent is
// absent: callers (the gossip worker) must ensure parent presence
// before calling Accept, buffering orphans elsewhere.
//
// b's transactions are assumed already validated by the caller
// against State(parentHash); Accept only applies them.
func (h *Handle) Accept(parentHash types.Hash, b *block.Block) (hash types.Hash, accepted bool) {
	h.do(func() {
		hash = b.Hash()
		if _, known := h.blocks[hash]; known {
			accepted = false
			return
		}
		if _, known := h.blocks[parentHash]; !known {
			accepted = false
			return
		}

		h.spb.Update(parentHash, b)
		h.blocks[hash] = b
		h.length[hash] = h.length[parentHash] + 1

		if h.length[hash] > h.length[h.tip] {
			h.tip = hash
		}
		accepted = true
	})
	return hash, accepted
}
