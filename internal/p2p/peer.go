// Package p2p is the raw TCP transport: accepting inbound connections,
// dialing seed peers, framing wire.Envelope values on the socket, and
// keeping a registry peers can be broadcast to. Everything above the
// socket — message semantics, validation, the worker pool — belongs to
// internal/gossip; this package only ever moves bytes.
package p2p

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/klingon-tech/chainlet/internal/log"
	"github.com/klingon-tech/chainlet/internal/wire"
)

// Peer is one TCP connection to a remote node, with a buffered send
// channel decoupling socket writes from the gossip worker pool; received
// envelopes are handed to a callback (see start).
type Peer struct {
	conn    net.Conn
	addr    string
	inbound bool

	send  chan *wire.Envelope
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// newPeer wraps an already-established connection.
func newPeer(conn net.Conn, inbound bool) *Peer {
	return &Peer{
		conn:    conn,
		addr:    conn.RemoteAddr().String(),
		inbound: inbound,
		send:    make(chan *wire.Envelope, 256),
		quit:    make(chan struct{}),
	}
}

// Address returns the remote address this peer connected from/to.
func (p *Peer) Address() string { return p.addr }

// Send queues env for delivery, satisfying gossip.PeerSender. It never
// blocks past the peer's shutdown.
func (p *Peer) Send(env *wire.Envelope) {
	select {
	case p.send <- env:
	case <-p.quit:
	}
}

// shutdown closes the connection and signals quit, but does not wait
// for the read/write loops to exit — it is safe to call from inside
// either loop.
func (p *Peer) shutdown() {
	p.once.Do(func() {
		close(p.quit)
		p.conn.Close()
	})
}

// Stop closes the connection and waits for both loops to exit. Owners
// call this; the loops themselves call shutdown instead to avoid
// waiting on their own goroutine.
func (p *Peer) Stop() {
	p.shutdown()
	p.wg.Wait()
}

// start launches the read and write loops. Received envelopes are
// handed to onReceive, which is expected to forward them onto the
// gossip worker pool's inbound queue without blocking for long.
func (p *Peer) start(onReceive func(*wire.Envelope)) {
	p.wg.Add(2)
	go p.readLoop(onReceive)
	go p.writeLoop()
}

func (p *Peer) readLoop(onReceive func(*wire.Envelope)) {
	defer p.wg.Done()

	reader := bufio.NewReader(p.conn)
	for {
		select {
		case <-p.quit:
			return
		default:
		}

		p.conn.SetReadDeadline(time.Now().Add(20 * time.Minute))
		env, err := wire.ReadEnvelope(reader)
		if err != nil {
			log.P2P.Debug().Str("peer", p.addr).Err(err).Msg("peer read closed")
			p.shutdown()
			return
		}
		onReceive(env)
	}
}

func (p *Peer) writeLoop() {
	defer p.wg.Done()

	for {
		select {
		case env := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if _, err := env.WriteTo(p.conn); err != nil {
				log.P2P.Debug().Str("peer", p.addr).Err(err).Msg("peer write failed")
				p.shutdown()
				return
			}
		case <-p.quit:
			return
		}
	}
}
