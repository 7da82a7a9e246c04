package snarker

import (
	"time"

	"snarker-node/common"
	"snarker-node/common/mclock"
	"snarker-node/snarker/rpcfront"
	"snarker-node/snarker/snarkpool"
)

// WorkerPhase mirrors workerproc's internal phase enum at the level the
// reducer is allowed to see it (spec §3: "external_worker: variant over
// Absent/Starting/Idle/Working/Cancelling/Failed").
type WorkerPhase int

const (
	WorkerAbsent WorkerPhase = iota
	WorkerStarting
	WorkerIdle
	WorkerWorking
	WorkerCancelling
	WorkerFailed
)

func (p WorkerPhase) String() string {
	switch p {
	case WorkerAbsent:
		return "Absent"
	case WorkerStarting:
		return "Starting"
	case WorkerIdle:
		return "Idle"
	case WorkerWorking:
		return "Working"
	case WorkerCancelling:
		return "Cancelling"
	case WorkerFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// WorkerState is the reducer's view of the external worker (spec §3).
type WorkerState struct {
	Phase      WorkerPhase
	CurrentJob *common.JobId
	LastError  string
}

// DefaultRpcTimeout bounds how long a pending RPC (e.g. ConnectPeer,
// which resolves asynchronously on a later PeerConnected) waits before
// CheckTimeouts expires it (spec §4.6).
const DefaultRpcTimeout = 30 * time.Second

// DefaultReconnectBackoff is the initial backoff before retrying a
// dropped peer (spec §7).
const DefaultReconnectBackoff = 5 * time.Second

// DefaultBestTipInterval gates BestTipRefreshDue (spec's "roughly every
// 3 minutes" best-tip resync, §4.2).
const DefaultBestTipInterval = 3 * time.Minute

// DefaultPeerSweepInterval gates the reconnect/stale-RPC sweep frequency
// within CheckTimeouts, independent of the coarser best-tip refresh.
const DefaultPeerSweepInterval = 1 * time.Minute

// DefaultSubscriptionTTL bounds how long a ReqSubscribeEvents responder
// is kept open waiting for events, independent of DefaultRpcTimeout,
// since a subscription is expected to sit idle between pushes rather
// than resolve promptly.
const DefaultSubscriptionTTL = 10 * time.Minute

// PendingRpc is one RPC awaiting an asynchronous resolution (spec §3:
// "rpc: mapping from RpcId -> pending responder").
type PendingRpc struct {
	Responder rpcfront.Responder
	Deadline  mclock.AbsTime
	// Address is set for a ReqConnectPeer request, so a later
	// PeerConnected event advertising this address resolves the RPC
	// without needing to know the peer id up front.
	Address string
	// Remaining is nonzero only for a ReqSubscribeEvents entry: the
	// number of further pushes the responder accepts before it is
	// closed and purged (spec §4.6: multi-shot, declared count).
	Remaining int
}

// State is the reactor's single mutable store (spec §3). Every field is
// touched only by the dispatcher goroutine; nothing here is safe for
// concurrent access from the outside.
type State struct {
	Peers  map[common.PeerId]*PeerState
	Pool   *snarkpool.Pool
	Worker WorkerState
	Rpc    map[common.RpcId]PendingRpc

	Config Config
	Clock  mclock.Clock

	LastActionTime  mclock.AbsTime
	lastBestTipAt   mclock.AbsTime
	lastPeerSweepAt mclock.AbsTime
}

// NewState builds an empty State ready for the reactor's first action.
func NewState(cfg Config, clock mclock.Clock) *State {
	now := clock.Now()
	return &State{
		Peers:          make(map[common.PeerId]*PeerState),
		Pool:           snarkpool.New(cfg.CommitTimeout),
		Worker:         WorkerState{Phase: WorkerAbsent},
		Rpc:            make(map[common.RpcId]PendingRpc),
		Config:         cfg,
		Clock:          clock,
		LastActionTime: now,
		lastBestTipAt:  now,
		lastPeerSweepAt: now,
	}
}
