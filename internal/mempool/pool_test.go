package mempool

import (
	"testing"

	"github.com/klingon-tech/chainlet/pkg/tx"
	"github.com/klingon-tech/chainlet/pkg/types"
)

func stx(value uint64) tx.SignedTransaction {
	return tx.SignedTransaction{Tx: tx.Transaction{Value: value}}
}

func TestInsert_RejectsDuplicateHash(t *testing.T) {
	h := New()
	defer h.Close()

	st := stx(1)
	if !h.Insert(st) {
		t.Fatal("first insert should succeed")
	}
	if h.Insert(st) {
		t.Fatal("inserting the same transaction twice should be a no-op")
	}
}

func TestHead_PreservesFIFOOrder(t *testing.T) {
	h := New()
	defer h.Close()

	sts := []tx.SignedTransaction{stx(1), stx(2), stx(3)}
	for _, st := range sts {
		h.Insert(st)
	}

	head := h.Head(10)
	if len(head) != 3 {
		t.Fatalf("Head(10) returned %d entries, want 3", len(head))
	}
	for i, st := range sts {
		if head[i].Hash() != st.Hash() {
			t.Fatalf("Head()[%d] out of FIFO order", i)
		}
	}
}

func TestHead_RespectsBound(t *testing.T) {
	h := New()
	defer h.Close()

	for i := uint64(0); i < 5; i++ {
		h.Insert(stx(i))
	}
	if got := h.Head(2); len(got) != 2 {
		t.Fatalf("Head(2) returned %d entries, want 2", len(got))
	}
}

func TestHead_SkipsTombstonedEntries(t *testing.T) {
	h := New()
	defer h.Close()

	a, b, c := stx(1), stx(2), stx(3)
	h.Insert(a)
	h.Insert(b)
	h.Insert(c)
	h.Remove(b.Hash())

	head := h.Head(10)
	if len(head) != 2 {
		t.Fatalf("Head(10) returned %d entries, want 2 after removing one", len(head))
	}
	if head[0].Hash() != a.Hash() || head[1].Hash() != c.Hash() {
		t.Fatal("Head() should skip the tombstoned entry while preserving order of the rest")
	}
}

func TestMarkUsed_IsUsed(t *testing.T) {
	h := New()
	defer h.Close()

	op := types.Outpoint{TxHash: types.Hash{1}, Index: 0}
	if h.IsUsed(op) {
		t.Fatal("fresh outpoint should not be marked used")
	}
	h.MarkUsed(op)
	if !h.IsUsed(op) {
		t.Fatal("outpoint should be marked used after MarkUsed")
	}
}

func TestGet_ReturnsInsertedTransaction(t *testing.T) {
	h := New()
	defer h.Close()

	st := stx(42)
	h.Insert(st)

	got, ok := h.Get(st.Hash())
	if !ok {
		t.Fatal("Get should find an inserted transaction")
	}
	if got.Tx.Value != 42 {
		t.Fatalf("Get().Tx.Value = %d, want 42", got.Tx.Value)
	}
}
