// Package rpc implements the administrative JSON HTTP surface: start
// the miner or generator, broadcast a ping to every peer, and query
// chain/UTXO state.
// This is not part of the consensus core — its only contract on the
// core is invoking the miner/generator Handles' Start methods and
// reading from the chain store.
package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/klingon-tech/chainlet/internal/log"
	"github.com/klingon-tech/chainlet/internal/utxo"
	"github.com/klingon-tech/chainlet/internal/wire"
	"github.com/klingon-tech/chainlet/pkg/block"
	"github.com/klingon-tech/chainlet/pkg/types"
	"github.com/rs/zerolog"
)

const maxBodySize = 1 << 20

// ChainReader is the chain-store surface the admin API needs.
type ChainReader interface {
	Tip() types.Hash
	LongestChain() []types.Hash
	Block(hash types.Hash) (*block.Block, bool)
	State(hash types.Hash) (utxo.State, bool)
}

// Miner is the control surface the admin API needs from the miner.
type Miner interface {
	Start(lambda uint64)
}

// Generator is the control surface the admin API needs from the
// transaction generator.
type Generator interface {
	Start(theta uint64)
}

// PeerRegistry is the broadcast surface the admin API needs to issue
// an operator-triggered ping.
type PeerRegistry interface {
	Broadcast(env *wire.Envelope)
}

// Server is the administrative HTTP server.
type Server struct {
	addr      string
	chain     ChainReader
	miner     Miner
	generator Generator
	peers     PeerRegistry

	server *http.Server
	ln     net.Listener
	logger zerolog.Logger
}

// New constructs the server bound to addr.
func New(addr string, chain ChainReader, miner Miner, generator Generator, peers PeerRegistry) *Server {
	s := &Server{
		addr:      addr,
		chain:     chain,
		miner:     miner,
		generator: generator,
		peers:     peers,
		logger:    log.WithComponent("rpc"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/miner/start", s.handleMinerStart)
	mux.HandleFunc("/generator/start", s.handleGeneratorStart)
	mux.HandleFunc("/ping", s.handlePing)
	mux.HandleFunc("/chain", s.handleChain)
	mux.HandleFunc("/block/", s.handleBlock)
	mux.HandleFunc("/state/", s.handleState)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening and serving in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("rpc server error")
		}
	}()
	return nil
}

// Addr returns the listener's bound address.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

type envelope struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeOK(w http.ResponseWriter, result interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Result: result})
}

func writeErr(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.RPC.Error().Err(err).Msg("failed to write response")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	return dec.Decode(v)
}

func (s *Server) handleMinerStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req struct {
		Lambda uint64 `json:"lambda"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.miner.Start(req.Lambda)
	writeOK(w, map[string]uint64{"lambda": req.Lambda})
}

func (s *Server) handleGeneratorStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req struct {
		Theta uint64 `json:"theta"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.generator.Start(req.Theta)
	writeOK(w, map[string]uint64{"theta": req.Theta})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req struct {
		Nonce string `json:"nonce"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.peers.Broadcast(&wire.Envelope{Command: wire.CmdPing, Payload: wire.EncodeString(req.Nonce)})
	writeOK(w, map[string]string{"nonce": req.Nonce})
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	hashes := s.chain.LongestChain()
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = h.String()
	}
	writeOK(w, out)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	hash, err := parseHashPath(r.URL.Path, "/block/")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	b, ok := s.chain.Block(hash)
	if !ok {
		writeErr(w, http.StatusNotFound, "unknown block")
		return
	}
	writeOK(w, b.Content)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	hash, err := parseHashPath(r.URL.Path, "/state/")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	state, ok := s.chain.State(hash)
	if !ok {
		writeErr(w, http.StatusNotFound, "unknown block")
		return
	}
	writeOK(w, state)
}

func parseHashPath(path, prefix string) (types.Hash, error) {
	hexStr := path[len(prefix):]
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != types.HashSize {
		return types.Hash{}, fmt.Errorf("invalid hash %q", hexStr)
	}
	var h types.Hash
	copy(h[:], b)
	return h, nil
}
