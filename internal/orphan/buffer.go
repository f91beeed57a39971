// Package orphan buffers blocks whose parent is not yet known, keyed
// by that parent hash, so that once the parent arrives every waiting
// child can be resolved in one lookup.
//
// The reference stores exactly one child per parent hash, which loses
// a sibling when two children of the same unknown parent arrive
// before it; this buffer is a multimap instead
// (map[Hash][]*block.Block), so two children of the same unknown
// parent are both retained instead of one silently overwriting the other.
package orphan

import (
	"github.com/klingon-tech/chainlet/pkg/block"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// Handle is the orphan buffer's public API.
type Handle struct {
	cmds chan func()

	byParent map[types.Hash][]*block.Block
}

// New starts the orphan buffer's owning goroutine.
func New() *Handle {
	h := &Handle{
		cmds:     make(chan func(), 256),
		byParent: make(map[types.Hash][]*block.Block),
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

// Add records b as waiting on its (currently unknown) parent.
func (h *Handle) Add(b *block.Block) {
	h.do(func() {
		parent := b.Header.ParentHash
		h.byParent[parent] = append(h.byParent[parent], b)
	})
}

// Take removes and returns every block waiting on parentHash. Callers
// use this to drain the buffer as each newly accepted block unlocks
// its children.
func (h *Handle) Take(parentHash types.Hash) []*block.Block {
	var out []*block.Block
	h.do(func() {
		out = h.byParent[parentHash]
		delete(h.byParent, parentHash)
	})
	return out
}
