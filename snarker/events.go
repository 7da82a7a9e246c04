package snarker

import (
	"snarker-node/common"
	"snarker-node/snarker/rpcfront"
	"snarker-node/snarker/snarkpool"
	"snarker-node/snarker/workerproc"
)

// Event is anything an asynchronous producer can push onto the event
// queue (spec §4.1). Every Event is also an Action: the reducer treats
// "something happened" and "do this" as one sum type, as spec §4.2
// specifies ("Action is a superset of Event").
type Event interface {
	Action
	isEvent()
}

// PeerConnected fires once a dial or inbound handshake completes.
type PeerConnected struct {
	Peer      common.PeerId
	Addresses []string
}

// PeerDisconnected fires on any transport-level peer loss.
type PeerDisconnected struct {
	Peer common.PeerId
}

// PeerCommitmentReceived carries one gossiped commitment, not yet merged.
type PeerCommitmentReceived struct {
	Peer       common.PeerId
	Commitment snarkpool.Commitment
}

// PeerGetNextReceived is the peer asking us for up to Limit items on
// Channel (spec §4.5).
type PeerGetNextReceived struct {
	Peer    common.PeerId
	Channel ChannelKind
	Limit   uint8
}

// PeerWillSendReceived is the peer's reply to our own GetNext.
type PeerWillSendReceived struct {
	Peer    common.PeerId
	Channel ChannelKind
	Count   uint8
}

// PeerDeliverReceived is one item delivered against an outstanding
// WillSend promise, in either direction depending on who sent GetNext.
// The transport layer has already decoded the wire frame by the time
// this reaches the queue (spec §9: wire framing is an opaque concern of
// the network layer, not the reducer); Commitment is populated for
// Channel == ChannelCommitments and JobId for Channel == ChannelBestTip.
// The snarks gossip channel carries a payload kind this module does not
// model (SPEC_FULL.md §4.5).
type PeerDeliverReceived struct {
	Peer       common.PeerId
	Channel    ChannelKind
	Commitment *snarkpool.Commitment
	// JobId is populated iff Channel == ChannelBestTip, carrying the job
	// id at the peer's current transition frontier.
	JobId *common.JobId
}

// WorkerEvent wraps one workerproc.Event (spec §4.3/§6
// ExternalSnarkWorkerEvent).
type WorkerEvent struct {
	Inner workerproc.Event
}

// RpcRequestReceived is one inbound operator/local request (spec §4.6
// RpcRequest).
type RpcRequestReceived struct {
	Id        common.RpcId
	Request   rpcfront.Request
	Responder rpcfront.Responder
}

// TimerTick fires on the reactor's 100ms wall-clock interval (spec §5).
type TimerTick struct{}

func (PeerConnected) isEvent()           {}
func (PeerDisconnected) isEvent()        {}
func (PeerCommitmentReceived) isEvent()  {}
func (PeerGetNextReceived) isEvent()     {}
func (PeerWillSendReceived) isEvent()    {}
func (PeerDeliverReceived) isEvent()     {}
func (WorkerEvent) isEvent()             {}
func (RpcRequestReceived) isEvent()      {}
func (TimerTick) isEvent()               {}

func (PeerConnected) isAction()          {}
func (PeerDisconnected) isAction()       {}
func (PeerCommitmentReceived) isAction() {}
func (PeerGetNextReceived) isAction()    {}
func (PeerWillSendReceived) isAction()   {}
func (PeerDeliverReceived) isAction()    {}
func (WorkerEvent) isAction()            {}
func (RpcRequestReceived) isAction()     {}
func (TimerTick) isAction()              {}
