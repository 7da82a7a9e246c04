package snarker

import (
	"snarker-node/common"
	"snarker-node/snarker/snarkpool"
	"snarker-node/snarker/workerproc"
)

// Action is the full sum type the dispatcher accepts: every Event, plus
// the synthesized actions a reducer schedules as a consequence of one
// (spec §4.2: "Action is a superset of Event; the remainder are
// synthesized by the reducer itself, never by an external producer").
type Action interface {
	isAction()
}

// CheckTimeouts is synthesized on every TimerTick and fans out to the
// four timeout sweeps of spec §4.2: commitment eviction, peer reconnect,
// stale RPC expiry, and the gated best-tip refresh.
type CheckTimeouts struct{}

func (CheckTimeouts) isAction() {}

// ExternalWorkerStart asks the supervisor to spawn the worker binary.
type ExternalWorkerStart struct{}

func (ExternalWorkerStart) isAction() {}

// ExternalWorkerSubmit hands one job to the running worker. JobId
// identifies the ledger transition the worker is proving, so a later
// WorkResult can be turned back into a Commitment; Spec is the wire-level
// request the supervisor actually sends.
type ExternalWorkerSubmit struct {
	JobId common.JobId
	Spec  workerproc.Spec
}

func (ExternalWorkerSubmit) isAction() {}

// ExternalWorkerCancel interrupts the in-flight job, if any.
type ExternalWorkerCancel struct{}

func (ExternalWorkerCancel) isAction() {}

// ExternalWorkerKill terminates the worker subprocess entirely.
type ExternalWorkerKill struct{}

func (ExternalWorkerKill) isAction() {}

// SnarkPoolAutoCommit is synthesized when the external worker completes a
// job and config.AutoCommit is set: the result is inserted locally and
// then gossiped, with no peer conflict to resolve (spec §4.4).
type SnarkPoolAutoCommit struct {
	Commitment snarkpool.Commitment
}

func (SnarkPoolAutoCommit) isAction() {}

// PeerReconnectDue is synthesized by CheckTimeouts for every disconnected
// peer whose backoff has elapsed.
type PeerReconnectDue struct {
	Peer common.PeerId
}

func (PeerReconnectDue) isAction() {}

// RpcTimedOut is synthesized for a pending RPC whose deadline has passed
// with no resolving event.
type RpcTimedOut struct {
	Id common.RpcId
}

func (RpcTimedOut) isAction() {}

// BestTipRefreshDue is synthesized by CheckTimeouts at most once per
// DefaultBestTipInterval (spec's gated "every ~3 minutes" rule).
type BestTipRefreshDue struct{}

func (BestTipRefreshDue) isAction() {}

// NewJobObserved is synthesized when a best-tip delivery carries a job id
// the pool has not seen before. It is the trigger for the auto-commit
// rule (spec §4.4): if auto_commit is set and the worker is Idle, the
// reducer inserts a local commitment for JobId and submits it to the
// worker in the same step.
type NewJobObserved struct {
	JobId common.JobId
}

func (NewJobObserved) isAction() {}
