package config

import (
	"github.com/klingon-tech/chainlet/pkg/block"
	"github.com/klingon-tech/chainlet/pkg/consensus"
	"github.com/klingon-tech/chainlet/pkg/crypto"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// NumFixedKeys is the size of the fixed key table every node shares.
// There is no wallet key management beyond this table: nodes sign
// transactions with one of these deterministic keypairs, selected by
// Config.NodeIndex. Blocks carry no signature.
const NumFixedKeys = 5

// ICOValue is the balance seeded onto the genesis UTXO holder.
const ICOValue uint64 = 10_000

// FixedKey derives the deterministic keypair at index i of the fixed
// key table. The seed is SHA-256("chainlet-fixed-key-<i>"), so every
// node derives byte-identical keys without any coordination.
func FixedKey(i int) *crypto.PrivateKey {
	seed := crypto.Hash([]byte{'c', 'h', 'a', 'i', 'n', 'l', 'e', 't', '-', 'f', 'i', 'x', 'e', 'd', '-', 'k', 'e', 'y', '-', byte('0' + i)})
	pk, err := crypto.PrivateKeyFromSeed(seed[:])
	if err != nil {
		// Seed is always exactly 32 bytes (a SHA-256 digest); this
		// cannot fail.
		panic(err)
	}
	return pk
}

// FixedAddress returns the address derived from FixedKey(i).
func FixedAddress(i int) types.Address {
	return crypto.AddressFromPubKey(FixedKey(i).PublicKey())
}

// ICOEntry is one seeded genesis UTXO.
type ICOEntry struct {
	Recipient types.Address
	Value     uint64
}

// InitialCoinOffering returns the deterministic seed UTXO set every
// node uses to build the genesis snapshot: a single output paying
// ICOValue to the first entry of the fixed key table.
func InitialCoinOffering() []ICOEntry {
	return []ICOEntry{
		{Recipient: FixedAddress(0), Value: ICOValue},
	}
}

// NewGenesisBlock constructs the deterministic genesis block: zero
// parent, zero nonce, empty content, the fixed genesis difficulty, and
// a zero timestamp. Every node builds the same genesis block without
// any network exchange.
func NewGenesisBlock() *block.Block {
	header := &block.Header{
		ParentHash: types.ZeroHash,
		Nonce:      0,
		Difficulty: consensus.GenesisDifficulty,
		Timestamp:  types.NewTimestamp(0),
	}
	return block.NewBlock(header, nil)
}
