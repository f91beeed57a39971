// Package generator synthesizes valid transactions on behalf of this
// node's fixed address, round-robining them to the other fixed
// addresses. Its control machine is identical in shape to the
// miner's: a bounded command channel carrying {Paused, Running(θ),
// ShutDown} transitions, owned by one goroutine.
package generator

import (
	"time"

	"github.com/klingon-tech/chainlet/config"
	"github.com/klingon-tech/chainlet/internal/utxo"
	"github.com/klingon-tech/chainlet/pkg/crypto"
	"github.com/klingon-tech/chainlet/pkg/tx"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// transferFee is subtracted from the spent output's value so every
// synthesized spend satisfies the strict input-exceeds-output rule;
// outputs worth no more than this are left unspent.
const transferFee = 1

// ControlSignal is a command sent to the generator's control channel.
type ControlSignal interface{ isControlSignal() }

// StartSignal transitions the generator to Running(Theta): emit
// transactions continuously, sleeping Theta/10 milliseconds between
// iterations.
type StartSignal struct{ Theta uint64 }

// UpdateSignal asks the generator to refresh its view of chain state
// on its next iteration. As with the miner, every iteration already
// re-reads state fresh, so this exists only for control-surface parity.
type UpdateSignal struct{}

// ExitSignal transitions the generator to ShutDown.
type ExitSignal struct{}

func (StartSignal) isControlSignal()  {}
func (UpdateSignal) isControlSignal() {}
func (ExitSignal) isControlSignal()   {}

type operatingState struct {
	shutdown bool
	running  bool
	theta    uint64
}

// ChainReader is the read surface the generator needs from the chain
// store.
type ChainReader interface {
	Tip() types.Hash
	State(hash types.Hash) (utxo.State, bool)
}

// MempoolWriter is the surface the generator needs from the mempool.
type MempoolWriter interface {
	Insert(st tx.SignedTransaction) bool
	IsUsed(outpoint types.Outpoint) bool
	MarkUsed(outpoint types.Outpoint)
}

// TransactionAnnouncer is the gossip-layer surface the generator needs
// to tell peers about newly queued transactions.
type TransactionAnnouncer interface {
	BroadcastNewTransactionHashes(hashes []types.Hash)
}

type context struct {
	control chan ControlSignal
	state   operatingState

	nodeIndex int
	localKey  *crypto.PrivateKey
	localAddr types.Address
	nextPeer  int

	chain     ChainReader
	mempool   MempoolWriter
	announcer TransactionAnnouncer
}

// Handle is the generator's public control surface.
type Handle struct {
	control chan ControlSignal
}

// New starts the generator in the Paused state, signing as the fixed
// key at nodeIndex (mod config.NumFixedKeys).
func New(nodeIndex int, chain ChainReader, mempool MempoolWriter, announcer TransactionAnnouncer) *Handle {
	idx := nodeIndex % config.NumFixedKeys
	if idx < 0 {
		idx += config.NumFixedKeys
	}
	key := config.FixedKey(idx)

	ctx := &context{
		control:   make(chan ControlSignal, 8),
		nodeIndex: idx,
		localKey:  key,
		localAddr: crypto.AddressFromPubKey(key.PublicKey()),
		nextPeer:  (idx + 1) % config.NumFixedKeys,
		chain:     chain,
		mempool:   mempool,
		announcer: announcer,
	}
	go ctx.run()

	return &Handle{control: ctx.control}
}

// Start transitions the generator into Running(theta).
func (h *Handle) Start(theta uint64) { h.control <- StartSignal{Theta: theta} }

// Update asks the generator to refresh its view of chain state.
func (h *Handle) Update() { h.control <- UpdateSignal{} }

// Exit transitions the generator into ShutDown.
func (h *Handle) Exit() { h.control <- ExitSignal{} }

func (c *context) run() {
	for {
		switch {
		case c.state.shutdown:
			return
		case !c.state.running:
			c.applySignal(<-c.control)
			continue
		default:
			select {
			case sig := <-c.control:
				c.applySignal(sig)
			default:
			}
		}
		if c.state.shutdown {
			return
		}

		c.generateOnce()

		if c.state.theta > 0 {
			time.Sleep(time.Duration(c.state.theta) * 100 * time.Microsecond)
		}
	}
}

func (c *context) applySignal(sig ControlSignal) {
	switch s := sig.(type) {
	case StartSignal:
		c.state = operatingState{running: true, theta: s.Theta}
	case UpdateSignal:
	case ExitSignal:
		c.state = operatingState{shutdown: true}
	}
}

// nextTarget advances the round-robin cursor over the fixed address
// table, skipping the local address.
func (c *context) nextTarget() types.Address {
	idx := c.nextPeer
	for config.FixedAddress(idx) == c.localAddr {
		idx = (idx + 1) % config.NumFixedKeys
	}
	c.nextPeer = (idx + 1) % config.NumFixedKeys
	return config.FixedAddress(idx)
}

// generateOnce scans the current tip's UTXO state for outputs this
// node owns and not already queued, and spends each into a fresh
// signed transaction. A transaction is never emitted unless it would
// pass State.Verify against the very state it was synthesized from.
func (c *context) generateOnce() {
	tip := c.chain.Tip()
	state, ok := c.chain.State(tip)
	if !ok {
		return
	}

	var added []types.Hash
	for outpoint, out := range state {
		if out.Recipient != c.localAddr {
			continue
		}
		if c.mempool.IsUsed(outpoint) {
			continue
		}
		if out.Value <= transferFee {
			continue
		}

		target := c.nextTarget()
		t := tx.Transaction{
			Sender:   c.localAddr,
			Receiver: target,
			Value:    out.Value - transferFee,
			Inputs: []tx.Input{
				{PrevTxHash: outpoint.TxHash, Index: outpoint.Index},
			},
			Outputs: []tx.Output{
				{Recipient: target, Value: out.Value - transferFee},
			},
		}
		st := tx.Sign(c.localKey, t)

		if err := state.Verify(&st); err != nil {
			continue
		}
		if !c.mempool.Insert(st) {
			continue
		}
		c.mempool.MarkUsed(outpoint)
		added = append(added, st.Hash())
	}

	if len(added) > 0 {
		c.announcer.BroadcastNewTransactionHashes(added)
	}
}
