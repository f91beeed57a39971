package utxo

import (
	"errors"
	"testing"

	"github.com/klingon-tech/chainlet/pkg/crypto"
	"github.com/klingon-tech/chainlet/pkg/tx"
	"github.com/klingon-tech/chainlet/pkg/types"
)

func signedSpend(t *testing.T, key *crypto.PrivateKey, op types.Outpoint, value uint64) tx.SignedTransaction {
	t.Helper()
	addr := crypto.AddressFromPubKey(key.PublicKey())
	body := tx.Transaction{
		Sender:   addr,
		Receiver: addr,
		Value:    value - 1,
		Inputs:   []tx.Input{{PrevTxHash: op.TxHash, Index: op.Index}},
		Outputs:  []tx.Output{{Recipient: addr, Value: value - 1}},
	}
	return tx.Sign(key, body)
}

func TestVerify_AcceptsWellFormedSpend(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := crypto.AddressFromPubKey(key.PublicKey())
	op := types.Outpoint{TxHash: types.Hash{1}, Index: 0}
	s := State{op: {Recipient: addr, Value: 100}}

	st := signedSpend(t, key, op, 100)
	if err := s.Verify(&st); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
}

func TestVerify_RejectsMissingInput(t *testing.T) {
	key, _ := crypto.GenerateKey()
	op := types.Outpoint{TxHash: types.Hash{1}, Index: 0}
	s := State{}

	st := signedSpend(t, key, op, 100)
	if err := s.Verify(&st); err == nil {
		t.Fatal("expected ErrInputMissing for an outpoint absent from state")
	}
}

func TestVerify_RejectsOwnerMismatch(t *testing.T) {
	owner, _ := crypto.GenerateKey()
	attacker, _ := crypto.GenerateKey()
	ownerAddr := crypto.AddressFromPubKey(owner.PublicKey())

	op := types.Outpoint{TxHash: types.Hash{1}, Index: 0}
	s := State{op: {Recipient: ownerAddr, Value: 100}}

	st := signedSpend(t, attacker, op, 100)
	if err := s.Verify(&st); err == nil {
		t.Fatal("expected ErrOwnerMismatch: signer does not own the referenced output")
	}
}

func TestVerify_RejectsInsufficientInputs(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.AddressFromPubKey(key.PublicKey())
	op := types.Outpoint{TxHash: types.Hash{1}, Index: 0}
	s := State{op: {Recipient: addr, Value: 100}}

	// Spend the full 100 with no fee (outputs == inputs): must be
	// rejected under the strict inequality rule.
	body := tx.Transaction{
		Sender:   addr,
		Value:    100,
		Inputs:   []tx.Input{{PrevTxHash: op.TxHash, Index: op.Index}},
		Outputs:  []tx.Output{{Recipient: addr, Value: 100}},
	}
	st := tx.Sign(key, body)

	if err := s.Verify(&st); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("Verify() = %v, want ErrInsufficient", err)
	}
}

func TestVerify_RejectsDoubleSpendWithinTransaction(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.AddressFromPubKey(key.PublicKey())
	op := types.Outpoint{TxHash: types.Hash{1}, Index: 0}
	s := State{op: {Recipient: addr, Value: 100}}

	body := tx.Transaction{
		Sender: addr,
		Inputs: []tx.Input{
			{PrevTxHash: op.TxHash, Index: op.Index},
			{PrevTxHash: op.TxHash, Index: op.Index},
		},
		Outputs: []tx.Output{{Recipient: addr, Value: 50}},
	}
	st := tx.Sign(key, body)

	if err := s.Verify(&st); err == nil {
		t.Fatal("expected double-spend rejection for a repeated input within one transaction")
	}
}

func TestApply_RemovesInputsAndAddsOutputs(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.AddressFromPubKey(key.PublicKey())
	op := types.Outpoint{TxHash: types.Hash{1}, Index: 0}
	s := State{op: {Recipient: addr, Value: 100}}

	st := signedSpend(t, key, op, 100)
	s.Apply(&st)

	if _, stillThere := s[op]; stillThere {
		t.Fatal("consumed input should be removed from state")
	}

	newOp := types.Outpoint{TxHash: st.Hash(), Index: 0}
	out, ok := s[newOp]
	if !ok {
		t.Fatal("new output should be recorded under (hash(st), 0)")
	}
	if out.Value != 99 {
		t.Fatalf("new output value = %d, want 99", out.Value)
	}
}

func TestInitialCoinOffering_Deterministic(t *testing.T) {
	a := InitialCoinOffering()
	b := InitialCoinOffering()
	if len(a) != len(b) {
		t.Fatalf("ICO size mismatch: %d vs %d", len(a), len(b))
	}
	for k, v := range a {
		if b[k] != v {
			t.Fatalf("ICO entry %v mismatch: %+v vs %+v", k, v, b[k])
		}
	}
}

func TestClone_IsIndependent(t *testing.T) {
	op := types.Outpoint{TxHash: types.Hash{1}}
	s := State{op: {Value: 1}}
	c := s.Clone()
	c[op] = Output{Value: 2}

	if s[op].Value != 1 {
		t.Fatal("mutating a clone must not affect the original state")
	}
}
