package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/klingon-tech/chainlet/pkg/block"
	"github.com/klingon-tech/chainlet/pkg/tx"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// cursor is a small bump-allocated reader over an in-memory payload,
// enough to decode the fixed little-endian layouts below without a
// general-purpose codec.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) uint32() (uint32, error) {
	if len(c.buf)-c.pos < 4 {
		return 0, fmt.Errorf("wire: short read for uint32")
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) uint64() (uint64, error) {
	if len(c.buf)-c.pos < 8 {
		return 0, fmt.Errorf("wire: short read for uint64")
	}
	v := binary.LittleEndian.Uint64(c.buf[c.pos:])
	c.pos += 8
	return v, nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if n < 0 || len(c.buf)-c.pos < n {
		return nil, fmt.Errorf("wire: short read for %d bytes", n)
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) hash() (types.Hash, error) {
	b, err := c.bytes(types.HashSize)
	if err != nil {
		return types.Hash{}, err
	}
	var h types.Hash
	copy(h[:], b)
	return h, nil
}

func (c *cursor) timestamp() (types.Timestamp, error) {
	b, err := c.bytes(types.TimestampSize)
	if err != nil {
		return types.Timestamp{}, err
	}
	var t types.Timestamp
	copy(t[:], b)
	return t, nil
}

func (c *cursor) varBytes() ([]byte, error) {
	n, err := c.uint32()
	if err != nil {
		return nil, err
	}
	return c.bytes(int(n))
}

// Minimum wire size of one element of each repeated sequence this
// package decodes, used by boundedCount to reject an element count a
// peer could never actually back with remaining payload bytes —
// before that count reaches a make() call. Without this, a hostile
// 4-byte count near math.MaxUint32 would allocate gigabytes in the
// gossip worker goroutine before the short read that would otherwise
// catch it.
const (
	minInputSize    = types.HashSize + 1                                                             // PrevTxHash + Index
	minOutputSize   = types.AddressSize + 8                                                          // Recipient + Value
	minSignedTxSize = 4 + 4 + types.AddressSize*2 + 8 + 4 + 4                                        // pubkey/sig length headers + tx minimum
	minBlockSize    = types.HashSize + 4 + types.HashSize + types.TimestampSize + types.HashSize + 4 // header + content count
)

// boundedCount reads a 32-bit element count and rejects it outright if
// it could not possibly be backed by the bytes remaining in the
// payload, given the minimum wire size of one element. This runs
// before any make([]T, n) call derived from an untrusted count.
func (c *cursor) boundedCount(minItemSize int) (int, error) {
	n, err := c.uint32()
	if err != nil {
		return 0, err
	}
	remaining := len(c.buf) - c.pos
	if minItemSize <= 0 || int(n) > remaining/minItemSize {
		return 0, fmt.Errorf("wire: element count %d cannot fit in %d remaining payload bytes", n, remaining)
	}
	return int(n), nil
}

func appendVarBytes(buf, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

// EncodeString encodes an opaque string payload, used by Ping/Pong.
func EncodeString(s string) []byte {
	return appendVarBytes(nil, []byte(s))
}

// DecodeString decodes a Ping/Pong payload.
func DecodeString(payload []byte) (string, error) {
	c := &cursor{buf: payload}
	b, err := c.varBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EncodeHashes encodes a sequence of hashes, used by NewBlockHashes,
// GetBlocks, NewTransactionHashes, and GetTransactions.
func EncodeHashes(hashes []types.Hash) []byte {
	buf := make([]byte, 0, 4+len(hashes)*types.HashSize)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(hashes)))
	for _, h := range hashes {
		buf = append(buf, h[:]...)
	}
	return buf
}

// DecodeHashes decodes a hash-sequence payload.
func DecodeHashes(payload []byte) ([]types.Hash, error) {
	c := &cursor{buf: payload}
	n, err := c.boundedCount(types.HashSize)
	if err != nil {
		return nil, err
	}
	out := make([]types.Hash, n)
	for i := range out {
		if out[i], err = c.hash(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func encodeTransaction(t *tx.Transaction) []byte {
	buf := make([]byte, 0, 64)
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

func (c *cursor) transaction() (tx.Transaction, error) {
	var t tx.Transaction
	var err error

	senderB, err := c.bytes(types.AddressSize)
	if err != nil {
		return t, err
	}
	copy(t.Sender[:], senderB)

	receiverB, err := c.bytes(types.AddressSize)
	if err != nil {
		return t, err
	}
	copy(t.Receiver[:], receiverB)

	if t.Value, err = c.uint64(); err != nil {
		return t, err
	}

	inCount, err := c.boundedCount(minInputSize)
	if err != nil {
		return t, err
	}
	t.Inputs = make([]tx.Input, inCount)
	for i := range t.Inputs {
		h, err := c.hash()
		if err != nil {
			return t, err
		}
		idx, err := c.bytes(1)
		if err != nil {
			return t, err
		}
		t.Inputs[i] = tx.Input{PrevTxHash: h, Index: idx[0]}
	}

	outCount, err := c.boundedCount(minOutputSize)
	if err != nil {
		return t, err
	}
	t.Outputs = make([]tx.Output, outCount)
	for i := range t.Outputs {
		recipB, err := c.bytes(types.AddressSize)
		if err != nil {
			return t, err
		}
		var recip types.Address
		copy(recip[:], recipB)
		value, err := c.uint64()
		if err != nil {
			return t, err
		}
		t.Outputs[i] = tx.Output{Recipient: recip, Value: value}
	}

	return t, nil
}

func encodeSignedTransaction(st *tx.SignedTransaction) []byte {
	buf := appendVarBytes(nil, st.PublicKey)
	buf = appendVarBytes(buf, st.Signature)
	buf = append(buf, encodeTransaction(&st.Tx)...)
	return buf
}

func (c *cursor) signedTransaction() (tx.SignedTransaction, error) {
	var st tx.SignedTransaction
	pub, err := c.varBytes()
	if err != nil {
		return st, err
	}
	sig, err := c.varBytes()
	if err != nil {
		return st, err
	}
	t, err := c.transaction()
	if err != nil {
		return st, err
	}
	st.PublicKey = append([]byte(nil), pub...)
	st.Signature = append([]byte(nil), sig...)
	st.Tx = t
	return st, nil
}

// EncodeTransactions encodes a sequence of signed transactions, used
// by the Transactions message.
func EncodeTransactions(sts []tx.SignedTransaction) []byte {
	buf := make([]byte, 0, 64*len(sts))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(sts)))
	for i := range sts {
		buf = append(buf, encodeSignedTransaction(&sts[i])...)
	}
	return buf
}

// DecodeTransactions decodes a Transactions payload.
func DecodeTransactions(payload []byte) ([]tx.SignedTransaction, error) {
	c := &cursor{buf: payload}
	n, err := c.boundedCount(minSignedTxSize)
	if err != nil {
		return nil, err
	}
	out := make([]tx.SignedTransaction, n)
	for i := range out {
		if out[i], err = c.signedTransaction(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func encodeHeader(h *block.Header) []byte {
	buf := make([]byte, 0, 116)
	buf = append(buf, h.ParentHash[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, h.Nonce)
	buf = append(buf, h.Difficulty[:]...)
	buf = append(buf, h.Timestamp[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	return buf
}

func (c *cursor) header() (block.Header, error) {
	var h block.Header
	var err error
	if h.ParentHash, err = c.hash(); err != nil {
		return h, err
	}
	if h.Nonce, err = c.uint32(); err != nil {
		return h, err
	}
	if h.Difficulty, err = c.hash(); err != nil {
		return h, err
	}
	if h.Timestamp, err = c.timestamp(); err != nil {
		return h, err
	}
	if h.MerkleRoot, err = c.hash(); err != nil {
		return h, err
	}
	return h, nil
}

func encodeBlock(b *block.Block) []byte {
	buf := encodeHeader(b.Header)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b.Content)))
	for i := range b.Content {
		buf = append(buf, encodeSignedTransaction(&b.Content[i])...)
	}
	return buf
}

func (c *cursor) block() (*block.Block, error) {
	h, err := c.header()
	if err != nil {
		return nil, err
	}
	n, err := c.boundedCount(minSignedTxSize)
	if err != nil {
		return nil, err
	}
	content := make([]tx.SignedTransaction, n)
	for i := range content {
		if content[i], err = c.signedTransaction(); err != nil {
			return nil, err
		}
	}
	return &block.Block{Header: &h, Content: content}, nil
}

// EncodeBlocks encodes a sequence of blocks, used by the Blocks message.
func EncodeBlocks(blocks []*block.Block) []byte {
	buf := make([]byte, 0, 256*len(blocks))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(blocks)))
	for _, b := range blocks {
		buf = append(buf, encodeBlock(b)...)
	}
	return buf
}

// DecodeBlocks decodes a Blocks payload.
func DecodeBlocks(payload []byte) ([]*block.Block, error) {
	c := &cursor{buf: payload}
	n, err := c.boundedCount(minBlockSize)
	if err != nil {
		return nil, err
	}
	out := make([]*block.Block, n)
	for i := range out {
		if out[i], err = c.block(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
