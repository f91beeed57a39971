package orphan

import (
	"testing"

	"github.com/klingon-tech/chainlet/pkg/block"
	"github.com/klingon-tech/chainlet/pkg/types"
)

func childOf(parent types.Hash, nonce uint32) *block.Block {
	return block.NewBlock(&block.Header{ParentHash: parent, Nonce: nonce}, nil)
}

func TestTake_ReturnsAllChildrenOfSameParent(t *testing.T) {
	h := New()
	defer h.Close()

	parent := types.Hash{1}
	c1 := childOf(parent, 1)
	c2 := childOf(parent, 2)

	h.Add(c1)
	h.Add(c2)

	got := h.Take(parent)
	if len(got) != 2 {
		t.Fatalf("Take() returned %d blocks, want 2 (lossy single-child buffers would drop one)", len(got))
	}
}

func TestTake_DrainsTheParentKey(t *testing.T) {
	h := New()
	defer h.Close()

	parent := types.Hash{2}
	h.Add(childOf(parent, 1))

	if got := h.Take(parent); len(got) != 1 {
		t.Fatalf("first Take() = %d blocks, want 1", len(got))
	}
	if got := h.Take(parent); len(got) != 0 {
		t.Fatalf("second Take() = %d blocks, want 0 (buffer should be drained)", len(got))
	}
}

func TestTake_UnknownParent_ReturnsEmpty(t *testing.T) {
	h := New()
	defer h.Close()

	if got := h.Take(types.Hash{9}); len(got) != 0 {
		t.Fatalf("Take() on unknown parent returned %d blocks, want 0", len(got))
	}
}
