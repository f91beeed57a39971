package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/klingon-tech/chainlet/pkg/crypto"
)

// Validation errors.
var (
	ErrNoInputs       = errors.New("transaction has no inputs")
	ErrNoOutputs      = errors.New("transaction has no outputs")
	ErrDuplicateInput = errors.New("duplicate input")
	ErrZeroOutput     = errors.New("output value is zero")
	ErrOutputOverflow = errors.New("output values overflow")
	ErrMissingPubKey  = errors.New("missing public key")
	ErrMissingSig     = errors.New("missing signature")
	ErrInvalidSig     = errors.New("invalid signature")
)

// Validate checks the transaction's structural well-formedness: it does
// not need the UTXO set and says nothing about whether the referenced
// inputs exist or are unspent (see internal/utxo for that check).
func (st *SignedTransaction) Validate() error {
	t := &st.Tx
	if len(t.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(t.Outputs) == 0 {
		return ErrNoOutputs
	}

	seen := make(map[Input]bool, len(t.Inputs))
	for i, in := range t.Inputs {
		if seen[in] {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in] = true
	}

	var total uint64
	for i, out := range t.Outputs {
		if out.Value == 0 {
			return fmt.Errorf("output %d: %w", i, ErrZeroOutput)
		}
		if total > math.MaxUint64-out.Value {
			return fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		total += out.Value
	}

	if len(st.PublicKey) == 0 {
		return ErrMissingPubKey
	}
	if len(st.Signature) == 0 {
		return ErrMissingSig
	}
	return nil
}

// VerifySignature checks that the signature authorizes the transaction
// body under the claimed public key, and that the public key hashes to
// the claimed sender address.
func (st *SignedTransaction) VerifySignature() error {
	if !crypto.VerifySignature(st.Tx.SigningBytes(), st.Signature, st.PublicKey) {
		return ErrInvalidSig
	}
	if crypto.AddressFromPubKey(st.PublicKey) != st.Tx.Sender {
		return fmt.Errorf("%w: public key does not match sender address", ErrInvalidSig)
	}
	return nil
}

// TotalOutput sums the transaction's output values.
func (t *Transaction) TotalOutput() uint64 {
	var total uint64
	for _, out := range t.Outputs {
		total += out.Value
	}
	return total
}
