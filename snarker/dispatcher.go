// Package snarker implements the node's single-writer reactor: one event
// queue (snarker/equeue), one State (spec §3), and one Dispatcher that
// folds every Action into that State and runs its effects depth-first
// (spec §4.2) before the reactor goroutine drains the next event.
package snarker

import (
	"snarker-node/common"
	"snarker-node/event"
	"snarker-node/log"
	"snarker-node/snarker/rpcfront"
	"snarker-node/snarker/snarkpool"
	"snarker-node/snarker/workerproc"
)

// WorkerPhaseChanged is published on Dispatcher.WorkerPhaseFeed every time
// the external worker's phase transitions, for observers (cmd/snarkerd's
// phase logger) that want to react without polling State.
type WorkerPhaseChanged struct {
	Phase WorkerPhase
}

// Transport abstracts outbound peer I/O (spec §9 design note: the network
// layer is an opaque collaborator the reducer never reaches into
// directly). A real implementation sits on top of devp2p/libp2p framing;
// tests substitute a recording fake.
type Transport interface {
	Dial(address string)
	SendGetNext(peer common.PeerId, channel ChannelKind, limit uint8)
	SendWillSend(peer common.PeerId, channel ChannelKind, count uint8)
	SendCommitment(peer common.PeerId, channel ChannelKind, c snarkpool.Commitment)
}

// Verifier checks a commitment's signature before it is allowed into the
// pool (spec §4.4: "signatures are assumed verified by the caller"). A
// real implementation calls into the secp256k1 verification the ledger
// side already performs; tests substitute an always-true stub.
type Verifier func(snarkpool.Commitment) bool

// Dispatcher owns State and the collaborators a reducer's effects call
// out to. It is not safe for concurrent use: the reactor goroutine is its
// only caller (spec §5).
type Dispatcher struct {
	State     *State
	Worker    *workerproc.Supervisor
	Transport Transport
	Verify    Verifier

	// WorkerPhaseFeed notifies subscribers of WorkerPhaseChanged; never
	// read by the reducer itself (spec §9: observers never feed back
	// into State).
	WorkerPhaseFeed *event.Feed
}

// NewDispatcher wires a Dispatcher around an already-constructed State.
func NewDispatcher(state *State, worker *workerproc.Supervisor, transport Transport, verify Verifier) *Dispatcher {
	return &Dispatcher{State: state, Worker: worker, Transport: transport, Verify: verify, WorkerPhaseFeed: &event.Feed{}}
}

// setWorkerPhase updates State.Worker.Phase and notifies WorkerPhaseFeed
// and any subscribed RPC responders.
func (d *Dispatcher) setWorkerPhase(phase WorkerPhase) {
	d.State.Worker.Phase = phase
	event.Send(d.WorkerPhaseFeed, WorkerPhaseChanged{Phase: phase})
	d.publishSubscriptionEvent(rpcfront.EventView{Kind: rpcfront.EventWorkerPhaseChanged, WorkerPhase: phase.String()})
}

// publishSubscriptionEvent pushes view to every pending ReqSubscribeEvents
// responder, decrementing its declared capacity; a responder that reaches
// zero remaining pushes is closed and purged (spec §4.6).
func (d *Dispatcher) publishSubscriptionEvent(view rpcfront.EventView) {
	for id, pending := range d.State.Rpc {
		if pending.Remaining <= 0 {
			continue
		}
		pending.Responder.Respond(rpcfront.Response{Ok: true, Event: &view})
		pending.Remaining--
		if pending.Remaining == 0 {
			pending.Responder.Close()
			delete(d.State.Rpc, id)
		} else {
			d.State.Rpc[id] = pending
		}
	}
}

// Dispatch folds one Action into State and runs its effects. Effects may
// call Dispatch again for a synthesized Action; because Go's call stack
// makes that recursive call run to completion before this frame
// continues, the resulting action tree is always evaluated depth-first,
// exactly as spec §4.2 requires ("no two top-level dispatches interleave").
func (d *Dispatcher) Dispatch(action Action) {
	d.State.LastActionTime = d.State.Clock.Now()
	switch a := action.(type) {
	case PeerConnected:
		d.onPeerConnected(a)
	case PeerDisconnected:
		d.onPeerDisconnected(a)
	case PeerCommitmentReceived:
		d.onPeerCommitmentReceived(a)
	case PeerGetNextReceived:
		d.onPeerGetNextReceived(a)
	case PeerWillSendReceived:
		d.onPeerWillSendReceived(a)
	case PeerDeliverReceived:
		d.onPeerDeliverReceived(a)
	case WorkerEvent:
		d.onWorkerEvent(a)
	case RpcRequestReceived:
		d.onRpcRequestReceived(a)
	case TimerTick:
		d.Dispatch(CheckTimeouts{})
	case CheckTimeouts:
		d.onCheckTimeouts()
	case ExternalWorkerStart:
		if err := d.Worker.Start(); err != nil {
			log.Warn("external worker start failed", "err", err)
		}
	case ExternalWorkerSubmit:
		if err := d.Worker.Submit(a.Spec); err != nil {
			log.Warn("external worker submit failed", "err", err)
		} else {
			d.setWorkerPhase(WorkerWorking)
			jobId := a.JobId
			d.State.Worker.CurrentJob = &jobId
		}
	case ExternalWorkerCancel:
		if err := d.Worker.Cancel(); err != nil {
			log.Warn("external worker cancel failed", "err", err)
		} else {
			d.setWorkerPhase(WorkerCancelling)
		}
	case ExternalWorkerKill:
		d.Worker.Kill()
		d.State.Worker = WorkerState{}
		d.setWorkerPhase(WorkerAbsent)
	case SnarkPoolAutoCommit:
		d.State.Pool.Insert(a.Commitment)
		log.Info("auto-committed local snark job", "job", a.Commitment.JobId)
	case PeerReconnectDue:
		d.onPeerReconnectDue(a)
	case RpcTimedOut:
		d.onRpcTimedOut(a)
	case BestTipRefreshDue:
		d.onBestTipRefreshDue()
	case NewJobObserved:
		d.onNewJobObserved(a)
	default:
		log.Warn("dispatch: unhandled action type")
	}
}

// respondOk and respondErr are for single-shot requests only: they
// deliver the one reply the contract allows and close the responder.
func respondOk(r rpcfront.Responder, resp rpcfront.Response) {
	resp.Ok = true
	r.Respond(resp)
	r.Close()
}

func respondErr(r rpcfront.Responder, msg string) {
	r.Respond(rpcfront.Response{Ok: false, Error: msg})
	r.Close()
}
