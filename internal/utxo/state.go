// Package utxo implements the per-block UTXO state engine: output
// application, transaction admissibility, and the per-block snapshot
// map that lets the chain validate blocks on any fork without a
// rollback/replay step.
package utxo

import (
	"errors"
	"fmt"

	"github.com/klingon-tech/chainlet/config"
	"github.com/klingon-tech/chainlet/pkg/crypto"
	"github.com/klingon-tech/chainlet/pkg/tx"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// Output is a spendable UTXO: who can spend it, and for how much.
type Output struct {
	Recipient types.Address
	Value     uint64
}

// State is a UTXO set: outpoint to output, present iff unspent.
type State map[types.Outpoint]Output

// Clone returns a shallow copy of s, safe to mutate independently.
func (s State) Clone() State {
	c := make(State, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Admissibility errors returned by Verify.
var (
	ErrBadSignature  = errors.New("signature does not verify")
	ErrOwnerMismatch = errors.New("public key does not own the referenced output")
	ErrInputMissing  = errors.New("referenced input is not in the UTXO set")
	ErrDoubleSpend   = errors.New("input spent twice within the same transaction")
	ErrInsufficient  = errors.New("input total does not exceed output total")
)

// Verify reports whether st is admissible against s, returning nil only
// if all five conditions hold: the signature verifies under st's public
// key; no input is claimed twice within st; every input is present in
// s; the public key's address owns every input; and the input total
// strictly exceeds the output total.
func (s State) Verify(st *tx.SignedTransaction) error {
	if !crypto.VerifySignature(st.Tx.SigningBytes(), st.Signature, st.PublicKey) {
		return ErrBadSignature
	}

	claimed := make(map[types.Outpoint]bool, len(st.Tx.Inputs))
	for i, in := range st.Tx.Inputs {
		op := in.Outpoint()

		if claimed[op] {
			return fmt.Errorf("input %d: %w", i, ErrDoubleSpend)
		}
		claimed[op] = true

		out, ok := s[op]
		if !ok {
			return fmt.Errorf("input %d (%s): %w", i, op, ErrInputMissing)
		}

		addr := crypto.AddressFromPubKey(st.PublicKey)
		if addr != out.Recipient {
			return fmt.Errorf("input %d (%s): %w", i, op, ErrOwnerMismatch)
		}
	}

	var totalIn, totalOut uint64
	for _, in := range st.Tx.Inputs {
		totalIn += s[in.Outpoint()].Value
	}
	totalOut = st.Tx.TotalOutput()
	if totalIn <= totalOut {
		return fmt.Errorf("%w: inputs=%d outputs=%d", ErrInsufficient, totalIn, totalOut)
	}

	return nil
}

// Apply mutates s in place: every referenced input is removed, then
// every output is inserted, keyed by (hash(st), index). Order is
// preserved, matching the key derivation Verify checked inputs
// against.
func (s State) Apply(st *tx.SignedTransaction) {
	for _, in := range st.Tx.Inputs {
		delete(s, in.Outpoint())
	}
	hash := st.Hash()
	for i, out := range st.Tx.Outputs {
		s[types.Outpoint{TxHash: hash, Index: byte(i)}] = Output{
			Recipient: out.Recipient,
			Value:     out.Value,
		}
	}
}

// InitialCoinOffering seeds the genesis snapshot from config's
// deterministic ICO list: a fixed, zero-outpoint UTXO set that every
// node derives without any network exchange.
func InitialCoinOffering() State {
	s := make(State)
	for i, entry := range config.InitialCoinOffering() {
		s[types.Outpoint{TxHash: types.ZeroHash, Index: byte(i)}] = Output{
			Recipient: entry.Recipient,
			Value:     entry.Value,
		}
	}
	return s
}
