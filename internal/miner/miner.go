// Package miner runs the proof-of-work block-assembly loop as a
// long-lived actor with a three-state control machine
// ({Paused, Running(λ), ShutDown}), controlled by a bounded command
// channel. The split between a slim Handle (sends control signals)
// and a private Context (owns the loop) mirrors the shape used by
// both the miner and the transaction generator in the reference this
// is adapted from.
package miner

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/klingon-tech/chainlet/config"
	"github.com/klingon-tech/chainlet/internal/utxo"
	"github.com/klingon-tech/chainlet/pkg/block"
	"github.com/klingon-tech/chainlet/pkg/consensus"
	"github.com/klingon-tech/chainlet/pkg/tx"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// ControlSignal is a command sent to the miner's control channel.
type ControlSignal interface{ isControlSignal() }

// StartSignal transitions the miner to Running(Lambda): mine
// continuously, sleeping Lambda microseconds between iterations.
type StartSignal struct{ Lambda uint64 }

// UpdateSignal asks the miner to re-read chain tip and mempool state
// on its next iteration rather than wait out a long sleep. Since every
// iteration already re-reads both fresh, this is a no-op here; it
// exists so callers have the same three-command surface as the
// reference.
type UpdateSignal struct{}

// ExitSignal transitions the miner to ShutDown; the loop exits after
// observing it.
type ExitSignal struct{}

func (StartSignal) isControlSignal()  {}
func (UpdateSignal) isControlSignal() {}
func (ExitSignal) isControlSignal()   {}

type operatingState struct {
	shutdown bool
	running  bool
	lambda   uint64
}

// ChainReader is the read surface the miner needs from the chain
// store; accepting mined blocks is left to RunWorker.
type ChainReader interface {
	Tip() types.Hash
	State(hash types.Hash) (utxo.State, bool)
}

// MempoolReader is the surface the miner needs from the mempool:
// reading candidate transactions and removing the ones it packed.
type MempoolReader interface {
	Head(n int) []tx.SignedTransaction
	RemoveAll(hashes []types.Hash)
}

// MinedBlock is a PoW-valid candidate ready for the miner worker to
// insert into the chain store.
type MinedBlock struct {
	ParentHash types.Hash
	Block      *block.Block
}

// Context owns the mining loop; it is unexported because callers only
// ever interact with the Handle New returns.
type context struct {
	control  chan ControlSignal
	state    operatingState
	finished chan<- MinedBlock
	chain    ChainReader
	mempool  MempoolReader
}

// Handle is the miner's public control surface.
type Handle struct {
	control chan ControlSignal
}

// New starts the miner in the Paused state and returns a Handle plus
// the channel it publishes completed blocks on.
func New(chainReader ChainReader, mempoolReader MempoolReader) (*Handle, <-chan MinedBlock) {
	control := make(chan ControlSignal, 8)
	finished := make(chan MinedBlock, 8)

	ctx := &context{
		control:  control,
		finished: finished,
		chain:    chainReader,
		mempool:  mempoolReader,
	}
	go ctx.run()

	return &Handle{control: control}, finished
}

// Start transitions the miner into Running(lambda).
func (h *Handle) Start(lambda uint64) { h.control <- StartSignal{Lambda: lambda} }

// Update asks the miner to refresh its view of chain/mempool state.
func (h *Handle) Update() { h.control <- UpdateSignal{} }

// Exit transitions the miner into ShutDown.
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

		c.mineOnce()

		if c.state.lambda > 0 {
			time.Sleep(time.Duration(c.state.lambda) * time.Microsecond)
		}
	}
}

func (c *context) applySignal(sig ControlSignal) {
	switch s := sig.(type) {
	case StartSignal:
		c.state = operatingState{running: true, lambda: s.Lambda}
	case UpdateSignal:
		// Every iteration re-reads tip and mempool state fresh; there
		// is no cached view to invalidate.
	case ExitSignal:
		c.state = operatingState{shutdown: true}
	}
}

// mineOnce runs one proof-of-work attempt: assembly is entirely
// speculative: the mempool is not mutated until the PoW check
// succeeds, and only the transactions actually packed into the
// winning block are popped.
func (c *context) mineOnce() {
	// Tip is re-read fresh on every call rather than cached across attempts;
	// that's only safe because each call is a single nonce guess, so a
	// race with another accepted block closes long before this one could win.
	parent := c.chain.Tip()
	base, ok := c.chain.State(parent)
	if !ok {
		return
	}

	var nonceBuf [4]byte
	if _, err := rand.Read(nonceBuf[:]); err != nil {
		return
	}
	nonce := binary.LittleEndian.Uint32(nonceBuf[:])
	now := types.NewTimestamp(uint64(time.Now().UnixMilli()))

	working := base.Clone()
	candidates := c.mempool.Head(config.MempoolHeadSize)
	included := make([]tx.SignedTransaction, 0, len(candidates))
	for _, st := range candidates {
		st := st
		if err := working.Verify(&st); err != nil {
			continue
		}
		working.Apply(&st)
		included = append(included, st)
	}

	header := &block.Header{
		ParentHash: parent,
		Nonce:      nonce,
		Difficulty: consensus.Target,
		Timestamp:  now,
	}
	b := block.NewBlock(header, included)

	if !consensus.Satisfies(b.Hash()) {
		return
	}

	hashes := make([]types.Hash, len(included))
	for i := range included {
		hashes[i] = included[i].Hash()
	}
	c.mempool.RemoveAll(hashes)

	c.finished <- MinedBlock{ParentHash: parent, Block: b}
}
