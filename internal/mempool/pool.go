// Package mempool holds transactions this node knows about and
// considers eligible for inclusion in a future block: a FIFO queue of
// hashes plus a hash-to-transaction map, owned by one goroutine.
package mempool

import (
	"github.com/klingon-tech/chainlet/pkg/tx"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// Handle is the mempool's public API.
type Handle struct {
	cmds chan func()

	deque       []types.Hash
	txMap       map[types.Hash]tx.SignedTransaction
	usedOutputs map[types.Outpoint]bool
}

// New starts the mempool's owning goroutine.
func New() *Handle {
	h := &Handle{
		cmds:        make(chan func(), 256),
		txMap:       make(map[types.Hash]tx.SignedTransaction),
		usedOutputs: make(map[types.Outpoint]bool),
	}
	go func() {
		for cmd := range h.cmds {
			cmd()
		}
	}()
	return h
}

func (h *Handle) do(fn func()) {
	done := make(chan struct{})
	h.cmds <- func() {
		fn()
		close(done)
	}
	<-done
}

// Close stops the owning goroutine.
func (h *Handle) Close() {
	close(h.cmds)
}

// Insert adds st to the pool if its hash is not already present.
// Returns false if it was already known (a no-op, per the mempool's
// insert-at-most-once invariant).
func (h *Handle) Insert(st tx.SignedTransaction) bool {
	var inserted bool
	h.do(func() {
		hash := st.Hash()
		if _, exists := h.txMap[hash]; exists {
			inserted = false
			return
		}
		h.deque = append(h.deque, hash)
		h.txMap[hash] = st
		inserted = true
	})
	return inserted
}

// Head returns up to the first n transactions still present in
// tx_map, in FIFO order, skipping hashes whose entry was removed
// (lazy tombstone invalidation).
func (h *Handle) Head(n int) []tx.SignedTransaction {
	var out []tx.SignedTransaction
	h.do(func() {
		out = make([]tx.SignedTransaction, 0, n)
		for _, hash := range h.deque {
			if len(out) == n {
				break
			}
			if st, ok := h.txMap[hash]; ok {
				out = append(out, st)
			}
		}
	})
	return out
}

// Remove deletes hash from tx_map. Its entry in the deque, if any,
// becomes a tombstone that Head silently skips.
func (h *Handle) Remove(hash types.Hash) {
	h.do(func() {
		delete(h.txMap, hash)
	})
}

// RemoveAll removes every hash in hashes.
func (h *Handle) RemoveAll(hashes []types.Hash) {
	h.do(func() {
		for _, hash := range hashes {
			delete(h.txMap, hash)
		}
	})
}

// Has reports whether hash is currently in tx_map.
func (h *Handle) Has(hash types.Hash) bool {
	var ok bool
	h.do(func() { _, ok = h.txMap[hash] })
	return ok
}

// Get returns the transaction stored under hash, if present.
func (h *Handle) Get(hash types.Hash) (tx.SignedTransaction, bool) {
	var st tx.SignedTransaction
	var ok bool
	h.do(func() { st, ok = h.txMap[hash] })
	return st, ok
}

// MarkUsed records outpoint as already claimed by a queued
// transaction, so the generator does not immediately double-spend an
// output it has already spent in a not-yet-mined transaction.
func (h *Handle) MarkUsed(outpoint types.Outpoint) {
	h.do(func() { h.usedOutputs[outpoint] = true })
}

// IsUsed reports whether outpoint has been marked used.
func (h *Handle) IsUsed(outpoint types.Outpoint) bool {
	var used bool
	h.do(func() { used = h.usedOutputs[outpoint] })
	return used
}
