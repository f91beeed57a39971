package types

import "fmt"

// Outpoint identifies a UTXO-output by the hash of the transaction that
// created it and its index within that transaction's output list. The
// index is a single byte: block content is bounded, and the reference
// implementation never produces more than 256 outputs per transaction.
type Outpoint struct {
	TxHash Hash
	Index  byte
}

// IsZero reports whether o is the zero outpoint: the zero transaction
// hash at index 0, which is the first genesis seed output's key.
func (o Outpoint) IsZero() bool {
	return o.TxHash.IsZero() && o.Index == 0
}

// String renders o as "txhash:index".
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxHash, o.Index)
}

// MarshalText implements encoding.TextMarshaler so Outpoint can be used
// as a JSON object key (json.Marshal requires map keys to be strings,
// integers, or TextMarshalers).
func (o Outpoint) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
