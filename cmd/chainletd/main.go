// Chainlet full node daemon.
//
// Usage:
//
//	chainletd [options]   Run node
//	chainletd --help      Show help
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/klingon-tech/chainlet/config"
	"github.com/klingon-tech/chainlet/internal/chain"
	"github.com/klingon-tech/chainlet/internal/generator"
	"github.com/klingon-tech/chainlet/internal/gossip"
	klog "github.com/klingon-tech/chainlet/internal/log"
	"github.com/klingon-tech/chainlet/internal/mempool"
	"github.com/klingon-tech/chainlet/internal/miner"
	"github.com/klingon-tech/chainlet/internal/orphan"
	"github.com/klingon-tech/chainlet/internal/p2p"
	"github.com/klingon-tech/chainlet/internal/rpc"
	"github.com/klingon-tech/chainlet/internal/wire"
)

func main() {
	// ── 1. Load config (defaults overlaid with flags) ───────────────
	cfg := config.Load()

	// ── 2. Init logger ───────────────────────────────────────────────
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := klog.WithComponent("node")

	logger.Info().
		Str("p2p", cfg.P2P).
		Str("api", cfg.API).
		Int("node_index", cfg.NodeIndex).
		Msg("starting chainlet node")

	// ── 3. Core subsystems ───────────────────────────────────────────
	chainHandle := chain.New()
	mempoolHandle := mempool.New()
	orphanHandle := orphan.New()

	logger.Info().
		Str("genesis", chainHandle.GenesisHash().String()).
		Msg("genesis constructed")

	// ── 4. P2P transport, wired to the gossip worker pool ────────────
	var gossipHandle *gossip.Handle
	node := p2p.NewNode(cfg.P2P, cfg.Seeds, func(peer *p2p.Peer, env *wire.Envelope) {
		gossipHandle.Inbound() <- gossip.Inbound{Peer: peer, Env: env}
	})

	gossipHandle = gossip.New(cfg.GossipWorkers, config.GossipQueueCapacity, chainHandle, mempoolHandle, orphanHandle, node)

	if err := node.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start p2p listener")
	}

	// ── 5. Miner and its worker ───────────────────────────────────────
	minerHandle, minedBlocks := miner.New(chainHandle, mempoolHandle)
	go miner.RunWorker(minedBlocks, chainHandle, gossipHandle)

	// ── 6. Transaction generator ─────────────────────────────────────
	generatorHandle := generator.New(cfg.NodeIndex, chainHandle, mempoolHandle, gossipHandle)

	// ── 7. Administrative HTTP surface ───────────────────────────────
	rpcServer := rpc.New(cfg.API, chainHandle, minerHandle, generatorHandle, node)
	if err := rpcServer.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start admin HTTP server")
	}
	logger.Info().Str("addr", rpcServer.Addr()).Msg("admin HTTP server listening")

	// ── 8. Park until terminated ──────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	minerHandle.Exit()
	generatorHandle.Exit()
	_ = rpcServer.Stop()
	node.Stop()
}
