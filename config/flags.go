package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Flags holds parsed command-line flags.
type Flags struct {
	P2P           string
	API           string
	Seeds         string
	GossipWorkers int
	NodeIndex     int

	LogLevel string
	LogFile  string
	LogJSON  bool

	Help bool
}

// ParseFlags parses the process's command-line flags.
func ParseFlags() *Flags {
	f := &Flags{}
	fs := flag.NewFlagSet("chainletd", flag.ContinueOnError)

	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.StringVar(&f.P2P, "p2p", "", "P2P listen address (e.g. 0.0.0.0:7070)")
	fs.StringVar(&f.API, "api", "", "Admin HTTP listen address (e.g. 127.0.0.1:7080)")
	fs.StringVar(&f.Seeds, "seeds", "", "Seed peer addresses, comma-separated")
	fs.IntVar(&f.GossipWorkers, "gossip-workers", 0, "Gossip worker-pool size")
	fs.IntVar(&f.NodeIndex, "node-index", 0, "Index into the fixed key table this node's transaction generator signs with")

	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = printUsage

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	return f
}

// Apply applies parsed flags on top of cfg, leaving defaults in place
// for anything not explicitly set.
func Apply(cfg *Config, f *Flags) {
	if f.P2P != "" {
		cfg.P2P = f.P2P
	}
	if f.API != "" {
		cfg.API = f.API
	}
	if f.Seeds != "" {
		cfg.Seeds = parseStringList(f.Seeds)
	}
	if f.GossipWorkers != 0 {
		cfg.GossipWorkers = f.GossipWorkers
	}
	if f.NodeIndex != 0 {
		cfg.NodeIndex = f.NodeIndex
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.LogJSON {
		cfg.Log.JSON = true
	}
}

// Load parses flags and returns a Config built from defaults overlaid
// with them.
func Load() *Config {
	flags := ParseFlags()
	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	cfg := Default()
	Apply(cfg, flags)
	return cfg
}

func parseStringList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printUsage() {
	fmt.Print(`chainletd - a proof-of-work UTXO chain node

Usage:
  chainletd [options]

Options:
  --p2p             P2P listen address (default 0.0.0.0:7070)
  --api             Admin HTTP listen address (default 127.0.0.1:7080)
  --seeds           Seed peer addresses, comma-separated
  --gossip-workers  Gossip worker-pool size (default 4)
  --node-index      Index into the fixed key table this node uses

  --log-level       Log level: debug, info, warn, error (default info)
  --log-file        Log file path (default stdout)
  --log-json        Output logs as JSON
`)
}
