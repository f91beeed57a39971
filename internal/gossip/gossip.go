// Package gossip implements the inventory-exchange protocol: a bounded
// pool of workers drains decoded messages from peers, requests unknown
// items, validates blocks and transactions against the UTXO state,
// inserts accepted blocks into the chain store and orphan buffer, and
// rebroadcasts. Peer framing, dialing, and the peer registry itself
// are an external collaborator; this package only ever sees already
// decoded wire.Envelope values tagged with the peer that sent them.
package gossip

import (
	"github.com/klingon-tech/chainlet/internal/log"
	"github.com/klingon-tech/chainlet/internal/utxo"
	"github.com/klingon-tech/chainlet/internal/wire"
	"github.com/klingon-tech/chainlet/pkg/block"
	"github.com/klingon-tech/chainlet/pkg/tx"
	"github.com/klingon-tech/chainlet/pkg/types"
)

// ChainStore is the chain-store surface the gossip workers need.
type ChainStore interface {
	Has(hash types.Hash) bool
	Tip() types.Hash
	Block(hash types.Hash) (*block.Block, bool)
	State(hash types.Hash) (utxo.State, bool)
	Accept(parentHash types.Hash, b *block.Block) (hash types.Hash, accepted bool)
}

// MempoolStore is the mempool surface the gossip workers need.
type MempoolStore interface {
	Has(hash types.Hash) bool
	Get(hash types.Hash) (tx.SignedTransaction, bool)
	Insert(st tx.SignedTransaction) bool
}

// OrphanStore is the orphan-buffer surface the gossip workers need.
type OrphanStore interface {
	Add(b *block.Block)
	Take(parentHash types.Hash) []*block.Block
}

// PeerSender is a single peer connection's outbound side, as seen by
// gossip. The concrete implementation (framing, write-loop, socket)
// lives outside this package.
type PeerSender interface {
	Send(env *wire.Envelope)
}

// PeerRegistry reaches every connected peer, for rebroadcast.
type PeerRegistry interface {
	Broadcast(env *wire.Envelope)
}

// Inbound is one decoded message, paired with the peer it arrived on
// so handlers can reply on that same connection.
type Inbound struct {
	Peer PeerSender
	Env  *wire.Envelope
}

// Handle owns the worker pool draining the shared inbound queue.
type Handle struct {
	inbound  chan Inbound
	chain    ChainStore
	mempool  MempoolStore
	orphans  OrphanStore
	registry PeerRegistry
}

// New starts workerCount workers draining a queue of the given
// capacity.
func New(workerCount, queueCapacity int, chain ChainStore, mempool MempoolStore, orphans OrphanStore, registry PeerRegistry) *Handle {
	h := &Handle{
		inbound:  make(chan Inbound, queueCapacity),
		chain:    chain,
		mempool:  mempool,
		orphans:  orphans,
		registry: registry,
	}
	for i := 0; i < workerCount; i++ {
		go h.work()
	}
	return h
}

// Inbound returns the channel peer-reader tasks feed decoded messages
// into. Send blocks when the queue is full, which is the protocol's
// only backpressure mechanism from peer I/O down to the worker pool.
func (h *Handle) Inbound() chan<- Inbound {
	return h.inbound
}

func (h *Handle) work() {
	for in := range h.inbound {
		h.dispatch(in)
	}
}

func (h *Handle) dispatch(in Inbound) {
	switch in.Env.Command {
	case wire.CmdPing:
		h.handlePing(in)
	case wire.CmdPong:
		// Heartbeat reply; nothing to do beyond having been received.
	case wire.CmdNewBlockHashes:
		h.handleNewBlockHashes(in)
	case wire.CmdGetBlocks:
		h.handleGetBlocks(in)
	case wire.CmdBlocks:
		h.handleBlocks(in)
	case wire.CmdNewTransactionHashes:
		h.handleNewTransactionHashes(in)
	case wire.CmdGetTransactions:
		h.handleGetTransactions(in)
	case wire.CmdTransactions:
		h.handleTransactions(in)
	default:
		log.Gossip.Warn().Str("command", in.Env.Command.String()).Msg("unknown gossip command")
	}
}

func (h *Handle) handlePing(in Inbound) {
	s, err := wire.DecodeString(in.Env.Payload)
	if err != nil {
		return
	}
	in.Peer.Send(&wire.Envelope{Command: wire.CmdPong, Payload: wire.EncodeString(s)})
}

func (h *Handle) handleNewBlockHashes(in Inbound) {
	hashes, err := wire.DecodeHashes(in.Env.Payload)
	if err != nil {
		return
	}
	var unknown []types.Hash
	for _, hash := range hashes {
		if !h.chain.Has(hash) {
			unknown = append(unknown, hash)
		}
	}
	if len(unknown) > 0 {
		in.Peer.Send(&wire.Envelope{Command: wire.CmdGetBlocks, Payload: wire.EncodeHashes(unknown)})
	}
}

func (h *Handle) handleGetBlocks(in Inbound) {
	hashes, err := wire.DecodeHashes(in.Env.Payload)
	if err != nil {
		return
	}
	var blocks []*block.Block
	for _, hash := range hashes {
		if b, ok := h.chain.Block(hash); ok {
			blocks = append(blocks, b)
		}
	}
	if len(blocks) > 0 {
		in.Peer.Send(&wire.Envelope{Command: wire.CmdBlocks, Payload: wire.EncodeBlocks(blocks)})
	}
}

// handleBlocks validates each block against the UTXO state recorded
// for *its own* parent, not against the state of the current tip —
// validating against the tip would let a block temporarily out of
// sync with its own ancestry slip through.
func (h *Handle) handleBlocks(in Inbound) {
	blocks, err := wire.DecodeBlocks(in.Env.Payload)
	if err != nil {
		return
	}

	var newHashes []types.Hash
	unseen := map[types.Hash]struct{}{}

	var tryAccept func(parentHash types.Hash, b *block.Block)
	tryAccept = func(parentHash types.Hash, b *block.Block) {
		hash := b.Hash()
		if h.chain.Has(hash) {
			return
		}
		if err := b.CheckProofOfWork(); err != nil {
			return
		}
		parentState, known := h.chain.State(parentHash)
		if !known {
			h.orphans.Add(b)
			unseen[parentHash] = struct{}{}
			return
		}

		working := parentState.Clone()
		for i := range b.Content {
			st := b.Content[i]
			if err := working.Verify(&st); err != nil {
				return
			}
			working.Apply(&st)
		}

		acceptedHash, ok := h.chain.Accept(parentHash, b)
		if !ok {
			return
		}
		newHashes = append(newHashes, acceptedHash)

		for _, child := range h.orphans.Take(acceptedHash) {
			tryAccept(acceptedHash, child)
		}
	}

	for _, b := range blocks {
		tryAccept(b.Header.ParentHash, b)
	}

	if len(newHashes) > 0 {
		h.registry.Broadcast(&wire.Envelope{Command: wire.CmdNewBlockHashes, Payload: wire.EncodeHashes(newHashes)})
	}
	if len(unseen) > 0 {
		hashes := make([]types.Hash, 0, len(unseen))
		for hash := range unseen {
			hashes = append(hashes, hash)
		}
		h.registry.Broadcast(&wire.Envelope{Command: wire.CmdGetBlocks, Payload: wire.EncodeHashes(hashes)})
	}
}

func (h *Handle) handleNewTransactionHashes(in Inbound) {
	hashes, err := wire.DecodeHashes(in.Env.Payload)
	if err != nil {
		return
	}
	var unknown []types.Hash
	for _, hash := range hashes {
		if !h.mempool.Has(hash) {
			unknown = append(unknown, hash)
		}
	}
	if len(unknown) > 0 {
		in.Peer.Send(&wire.Envelope{Command: wire.CmdGetTransactions, Payload: wire.EncodeHashes(unknown)})
	}
}

func (h *Handle) handleGetTransactions(in Inbound) {
	hashes, err := wire.DecodeHashes(in.Env.Payload)
	if err != nil {
		return
	}
	var sts []tx.SignedTransaction
	for _, hash := range hashes {
		if st, ok := h.mempool.Get(hash); ok {
			sts = append(sts, st)
		}
	}
	if len(sts) > 0 {
		in.Peer.Send(&wire.Envelope{Command: wire.CmdTransactions, Payload: wire.EncodeTransactions(sts)})
	}
}

func (h *Handle) handleTransactions(in Inbound) {
	sts, err := wire.DecodeTransactions(in.Env.Payload)
	if err != nil {
		return
	}

	tip := h.chain.Tip()
	state, ok := h.chain.State(tip)
	if !ok {
		return
	}

	var added []types.Hash
	for i := range sts {
		st := sts[i]
		hash := st.Hash()
		if h.mempool.Has(hash) {
			continue
		}
		if err := state.Verify(&st); err != nil {
			continue
		}
		if h.mempool.Insert(st) {
			added = append(added, hash)
		}
	}

	if len(added) > 0 {
		h.registry.Broadcast(&wire.Envelope{Command: wire.CmdNewTransactionHashes, Payload: wire.EncodeHashes(added)})
	}
}

// BroadcastNewBlockHashes satisfies miner.BlockAnnouncer.
func (h *Handle) BroadcastNewBlockHashes(hashes []types.Hash) {
	h.registry.Broadcast(&wire.Envelope{Command: wire.CmdNewBlockHashes, Payload: wire.EncodeHashes(hashes)})
}

// BroadcastNewTransactionHashes satisfies generator.TransactionAnnouncer.
func (h *Handle) BroadcastNewTransactionHashes(hashes []types.Hash) {
	h.registry.Broadcast(&wire.Envelope{Command: wire.CmdNewTransactionHashes, Payload: wire.EncodeHashes(hashes)})
}
