package chain

import (
	"testing"

	"github.com/klingon-tech/chainlet/config"
	"github.com/klingon-tech/chainlet/pkg/block"
	"github.com/klingon-tech/chainlet/pkg/consensus"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// mineChild brute-forces a nonce producing a PoW-valid child of parent
// with empty content, for use in tests that don't exercise mining
// directly.
func mineChild(t *testing.T, parent types.Hash) *block.Block {
	t.Helper()
	for nonce := uint32(0); nonce < 1<<22; nonce++ {
		h := &block.Header{ParentHash: parent, Nonce: nonce, Difficulty: consensus.Target}
		b := block.NewBlock(h, nil)
		if consensus.Satisfies(b.Hash()) {
			return b
		}
	}
	t.Fatal("failed to mine a child block within bounded attempts")
	return nil
}

func TestNew_SeedsGenesis(t *testing.T) {
	h := New()
	defer h.Close()

	genesis := h.GenesisHash()
	if !h.Has(genesis) {
		t.Fatal("genesis must be present in the chain store")
	}
	length, ok := h.Length(genesis)
	if !ok || length != 0 {
		t.Fatalf("genesis length = (%d, %v), want (0, true)", length, ok)
	}
	if h.Tip() != genesis {
		t.Fatal("tip must start at genesis")
	}

	state, ok := h.State(genesis)
	if !ok {
		t.Fatal("genesis must have a UTXO snapshot")
	}
	ico := config.InitialCoinOffering()
	if len(state) != len(ico) {
		t.Fatalf("genesis state has %d entries, want %d", len(state), len(ico))
	}
}

func TestAccept_IsIdempotent(t *testing.T) {
	h := New()
	defer h.Close()

	b := mineChild(t, h.GenesisHash())

	hash1, ok1 := h.Accept(h.GenesisHash(), b)
	if !ok1 {
		t.Fatal("first Accept of a valid child should succeed")
	}
	hash2, ok2 := h.Accept(h.GenesisHash(), b)
	if !ok2 || hash2 != hash1 {
		t.Fatalf("re-accepting the same block should be a no-op returning the same hash")
	}

	length, _ := h.Length(hash1)
	if length != 1 {
		t.Fatalf("length after one accept = %d, want 1", length)
	}
}

func TestAccept_FailsOnUnknownParent(t *testing.T) {
	h := New()
	defer h.Close()

	unknownParent := types.Hash{0xFF}
	b := mineChild(t, unknownParent)

	if _, accepted := h.Accept(unknownParent, b); accepted {
		t.Fatal("Accept must fail silently when the parent is unknown")
	}
}

func TestAccept_AdvancesTipOnLongerChain(t *testing.T) {
	h := New()
	defer h.Close()

	b1 := mineChild(t, h.GenesisHash())
	hash1, ok := h.Accept(h.GenesisHash(), b1)
	if !ok {
		t.Fatal("accepting b1 should succeed")
	}
	if h.Tip() != hash1 {
		t.Fatal("tip should advance to b1")
	}

	b2 := mineChild(t, hash1)
	hash2, ok := h.Accept(hash1, b2)
	if !ok {
		t.Fatal("accepting b2 should succeed")
	}
	if h.Tip() != hash2 {
		t.Fatal("tip should advance to b2")
	}
}

func TestLongestChain_WalksFromGenesis(t *testing.T) {
	h := New()
	defer h.Close()

	b1 := mineChild(t, h.GenesisHash())
	hash1, _ := h.Accept(h.GenesisHash(), b1)
	b2 := mineChild(t, hash1)
	hash2, _ := h.Accept(hash1, b2)

	chain := h.LongestChain()
	if len(chain) != 3 {
		t.Fatalf("len(LongestChain()) = %d, want 3", len(chain))
	}
	if chain[0] != h.GenesisHash() || chain[1] != hash1 || chain[2] != hash2 {
		t.Fatalf("LongestChain() = %v, want [genesis, b1, b2]", chain)
	}
}
