// Package tx defines the transaction model: UTXO inputs/outputs, the
// unsigned transaction body, and the signed transaction envelope that
// travels the wire and is stored in blocks.
package tx

import (
	"encoding/binary"

	"github.com/klingon-tech/chainlet/pkg/crypto"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// Input references a UTXO-output being spent.
type Input struct {
	PrevTxHash types.Hash
	Index      byte
}

// Outpoint returns the UTXO key this input references.
func (in Input) Outpoint() types.Outpoint {
	return types.Outpoint{TxHash: in.PrevTxHash, Index: in.Index}
}

// Output creates a new UTXO payable to Recipient.
type Output struct {
	Recipient types.Address
	Value     uint64
}

// Transaction is the unsigned transaction body: a sender, a receiver, a
// headline value, and the ordered UTXO inputs/outputs that back it.
type Transaction struct {
	Sender   types.Address
	Receiver types.Address
	Value    uint64
	Inputs   []Input
	Outputs  []Output
}

// SigningBytes returns the canonical byte encoding of the transaction
// body — the message that gets ed25519-signed and the message
// State.Verify re-derives to check the signature.
//
// Layout: sender(20) | receiver(20) | value(8) | inputCount(4) |
// [prevTxHash(32) index(1)]* | outputCount(4) | [recipient(20) value(8)]*
// All integers are little-endian.
func (t *Transaction) SigningBytes() []byte {
	buf := make([]byte, 0, 40+8+4+len(t.Inputs)*33+4+len(t.Outputs)*28)
	buf = append(buf, t.Sender[:]...)
	buf = append(buf, t.Receiver[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, t.Value)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Inputs)))
	for _, in := range t.Inputs {
		buf = append(buf, in.PrevTxHash[:]...)
		buf = append(buf, in.Index)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Outputs)))
	for _, out := range t.Outputs {
		buf = append(buf, out.Recipient[:]...)
		buf = binary.LittleEndian.AppendUint64(buf, out.Value)
	}
	return buf
}

// SignedTransaction is a Transaction together with the public key and
// signature that authorize it.
type SignedTransaction struct {
	PublicKey []byte
	Signature []byte
	Tx        Transaction
}

// Sign builds a SignedTransaction by signing t's canonical bytes with key.
func Sign(key *crypto.PrivateKey, t Transaction) SignedTransaction {
	msg := t.SigningBytes()
	return SignedTransaction{
		PublicKey: key.PublicKey(),
		Signature: key.Sign(msg),
		Tx:        t,
	}
}

// SigningBytes returns the canonical byte encoding of the full signed
// envelope (public key, signature, transaction body). This is what
// SignedTransaction.Hash hashes — the signed envelope's hash is taken
// over its own canonical serialization, not just the transaction body.
func (st *SignedTransaction) SigningBytes() []byte {
	body := st.Tx.SigningBytes()
	buf := make([]byte, 0, 4+len(st.PublicKey)+4+len(st.Signature)+len(body))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(st.PublicKey)))
	buf = append(buf, st.PublicKey...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(st.Signature)))
	buf = append(buf, st.Signature...)
	buf = append(buf, body...)
	return buf
}

// Hash computes the transaction's identifying hash: SHA-256 over the
// signed envelope's canonical serialization.
func (st *SignedTransaction) Hash() types.Hash {
	return crypto.Hash(st.SigningBytes())
}
