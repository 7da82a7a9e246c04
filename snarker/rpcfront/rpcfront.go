// Package rpcfront defines the operator-facing request/response shapes of
// spec §4.6, expressed as a closed sum type rather than an opaque boxed
// handle (spec §9 design note): every RPC the node accepts is one
// RequestKind, carrying only the fields that kind needs.
package rpcfront

import "snarker-node/common"

// RequestKind enumerates every operation an operator or local tool may
// invoke (spec §4.6).
type RequestKind int

const (
	ReqConnectPeer RequestKind = iota
	ReqSubmitCommitment
	ReqGetStatus
	ReqGetPeers
	ReqGetPool
	ReqSetAutoCommit
	ReqSubscribeEvents
)

func (k RequestKind) String() string {
	switch k {
	case ReqConnectPeer:
		return "ConnectPeer"
	case ReqSubmitCommitment:
		return "SubmitCommitment"
	case ReqGetStatus:
		return "GetStatus"
	case ReqGetPeers:
		return "GetPeers"
	case ReqGetPool:
		return "GetPool"
	case ReqSetAutoCommit:
		return "SetAutoCommit"
	case ReqSubscribeEvents:
		return "SubscribeEvents"
	default:
		return "Unknown"
	}
}

// Request is the sum type of every inbound RPC. Only the fields relevant
// to Kind are populated; the rest are zero.
type Request struct {
	Kind RequestKind

	// ReqConnectPeer
	Address string

	// ReqSubmitCommitment
	JobId     common.JobId
	Fee       uint64
	PublicKey common.PublicKey

	// ReqSetAutoCommit
	AutoCommit bool

	// ReqSubscribeEvents: the declared capacity of the multi-shot
	// responder (spec §4.6, §6: "bounded stream, explicit count").
	// A capacity <= 0 is treated as 1.
	Capacity int
}

// StatusView is the ReqGetStatus response payload.
type StatusView struct {
	ChainId     string
	PeerCount   int
	WorkerPhase string
	PoolSize    int
	AutoCommit  bool
	WorkerJobId *common.JobId
}

// PeerView is one entry of a ReqGetPeers response.
type PeerView struct {
	Id    common.PeerId
	Phase string
}

// PoolEntryView is one entry of a ReqGetPool response.
type PoolEntryView struct {
	JobId       common.JobId
	PublicKey   common.PublicKey
	TimestampMs int64
}

// EventKind enumerates the node-internal occurrences a ReqSubscribeEvents
// responder may be pushed (spec §6: "subscribe to events").
type EventKind int

const (
	EventWorkerPhaseChanged EventKind = iota
	EventPeerConnected
	EventPeerDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventWorkerPhaseChanged:
		return "WorkerPhaseChanged"
	case EventPeerConnected:
		return "PeerConnected"
	case EventPeerDisconnected:
		return "PeerDisconnected"
	default:
		return "Unknown"
	}
}

// EventView is one item pushed to a ReqSubscribeEvents responder. Only
// the field relevant to Kind is populated.
type EventView struct {
	Kind        EventKind
	WorkerPhase string
	Peer        common.PeerId
}

// Response is the sum type of every RPC reply. Exactly one of the
// pointer/slice fields is meaningful per originating RequestKind; Ok/Error
// apply uniformly.
type Response struct {
	Ok    bool
	Error string

	Status *StatusView
	Peers  []PeerView
	Pool   []PoolEntryView
	Event  *EventView
}

// Responder delivers replies for the request that produced it: a
// single-shot responder is called once then closed; a multi-shot
// responder (ReqSubscribeEvents) is called up to its declared capacity
// and then closed (spec §4.6: "invoke the responder exactly once
// (single-shot) or up to the declared count (multi-shot)").
// Implementations must not block the reactor goroutine that calls
// Respond or Close.
type Responder interface {
	Respond(Response)
	Close()
}

// ResponderFunc adapts a plain function to Responder. Close is a no-op,
// since a bare function has nothing to release.
type ResponderFunc func(Response)

func (f ResponderFunc) Respond(r Response) { f(r) }
func (f ResponderFunc) Close()             {}
