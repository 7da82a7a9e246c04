package snarker

import (
	"time"

	"snarker-node/common"
)

// Config holds every option listed in spec.md §6, immutable for the
// lifetime of a State.
type Config struct {
	ChainId   string
	PublicKey common.PublicKey
	Fee       uint64 // currency units, offered fee per job

	AutoCommit    bool
	CommitTimeout time.Duration // default 360s, see DefaultCommitTimeout

	MaxPeers int
	Port     int
	Peers    []string // bootstrap peer addresses

	WorkerPath string // path to the external worker binary

	// MetricsURL, if non-empty, is the InfluxDB endpoint the stats
	// reporter (SPEC_FULL.md §4.8) pushes samples to.
	MetricsURL string
	// Dashboard is accepted from the config file; nothing in the node
	// reads it.
	Dashboard bool
}

// DefaultCommitTimeout is the default commitment eviction age (spec §3).
const DefaultCommitTimeout = 360 * time.Second

// DefaultMaxPeers matches the historical go-ethereum-family default.
const DefaultMaxPeers = 25

// DefaultConfig mirrors cmd/berith/config.go's defaultNodeConfig pattern:
// a baseline the CLI layer overrides flag-by-flag.
var DefaultConfig = Config{
	CommitTimeout: DefaultCommitTimeout,
	MaxPeers:      DefaultMaxPeers,
	Port:          8301,
	WorkerPath:    "./mina-snark-worker",
}
