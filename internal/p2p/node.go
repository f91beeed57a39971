package p2p

import (
	"net"
	"sync"
	"time"

	"github.com/klingon-tech/chainlet/internal/log"
	"github.com/klingon-tech/chainlet/internal/wire"
)

// Node owns the listening socket, the set of connected peers, and
// dialing out to seeds. It implements gossip.PeerRegistry.
type Node struct {
	listenAddr string
	seeds      []string
	onReceive  func(peer *Peer, env *wire.Envelope)

	mu    sync.RWMutex
	peers map[string]*Peer

	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup
}

// NewNode constructs a node bound to listenAddr, dialing seeds on
// Start. onReceive is called for every envelope read from any peer,
// and is expected to forward it onto the gossip worker pool.
func NewNode(listenAddr string, seeds []string, onReceive func(*Peer, *wire.Envelope)) *Node {
	return &Node{
		listenAddr: listenAddr,
		seeds:      seeds,
		onReceive:  onReceive,
		peers:      make(map[string]*Peer),
		quit:       make(chan struct{}),
	}
}

// Start begins listening and dials every configured seed.
func (n *Node) Start() error {
	listener, err := net.Listen("tcp", n.listenAddr)
	if err != nil {
		return err
	}
	n.listener = listener

	n.wg.Add(1)
	go n.acceptLoop(listener)

	for _, seed := range n.seeds {
		go n.Dial(seed)
	}

	log.P2P.Info().Str("addr", n.listenAddr).Msg("p2p node listening")
	return nil
}

// Stop closes the listener, disconnects every peer, and waits for the
// accept loop to exit.
func (n *Node) Stop() {
	close(n.quit)
	if n.listener != nil {
		n.listener.Close()
	}

	n.mu.Lock()
	for _, p := range n.peers {
		p.Stop()
	}
	n.mu.Unlock()

	n.wg.Wait()
}

// Dial connects to address and registers the resulting peer.
func (n *Node) Dial(address string) {
	conn, err := net.DialTimeout("tcp", address, 5*time.Second)
	if err != nil {
		log.P2P.Warn().Str("addr", address).Err(err).Msg("dial failed")
		return
	}
	n.adopt(conn, false)
}

func (n *Node) acceptLoop(listener net.Listener) {
	defer n.wg.Done()
	defer listener.Close()

	for {
		select {
		case <-n.quit:
			return
		default:
		}

		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-n.quit:
				return
			default:
				log.P2P.Warn().Err(err).Msg("accept failed")
				continue
			}
		}
		n.adopt(conn, true)
	}
}

func (n *Node) adopt(conn net.Conn, inbound bool) {
	p := newPeer(conn, inbound)

	n.mu.Lock()
	n.peers[p.Address()] = p
	n.mu.Unlock()

	log.P2P.Info().Str("peer", p.Address()).Bool("inbound", inbound).Msg("peer connected")

	p.start(func(env *wire.Envelope) {
		n.onReceive(p, env)
	})
}

// Broadcast sends env to every currently connected peer, satisfying
// gossip.PeerRegistry.
func (n *Node) Broadcast(env *wire.Envelope) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, p := range n.peers {
		p.Send(env)
	}
}

// PeerCount reports the number of currently connected peers.
func (n *Node) PeerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.peers)
}
