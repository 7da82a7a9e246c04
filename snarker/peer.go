package snarker

import (
	"snarker-node/common"
	"snarker-node/common/mclock"
	"snarker-node/snarker/p2pchan"
)

// ConnectionPhase is the lifecycle of a peer record (spec §3: "peers:
// mapping from PeerId -> peer record (connection phase, ...)").
type ConnectionPhase int

const (
	PhaseConnecting ConnectionPhase = iota
	PhaseConnected
	PhaseDisconnected
)

// ChannelKind enumerates the gossip channels a peer can open (spec §4.5
// heading: "Gossip of Commitments / Snarks / Best-Tip").
type ChannelKind int

const (
	ChannelCommitments ChannelKind = iota
	ChannelSnarks
	ChannelBestTip
)

// PeerState is the per-peer record held in State.Peers. Every reference
// from a channel driver back to a peer goes through State.Peers[id], by
// id, never by direct aliasing (spec §9 design note on the
// peer/channel-driver cyclic reference).
type PeerState struct {
	Id        common.PeerId
	Phase     ConnectionPhase
	LastSeen  mclock.AbsTime
	Addresses []string // remembered for PeerReconnectDue redials

	Channels map[ChannelKind]*p2pchan.Driver

	// PendingRpcIds are the RpcIds of locally-issued requests addressed
	// to this peer (e.g. connect), so a reconnect/timeout sweep can find
	// them without a reverse index.
	PendingRpcIds map[common.RpcId]struct{}

	// ReconnectBackoff tracks the transient-peer-error backoff state
	// (spec §7: "peer marked for reconnect via backoff").
	ReconnectAt      mclock.AbsTime
	ReconnectBackoff int // attempt count, doubles the backoff each time
}

func (p ConnectionPhase) String() string {
	switch p {
	case PhaseConnecting:
		return "Connecting"
	case PhaseConnected:
		return "Connected"
	case PhaseDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

func newPeerState(id common.PeerId, now mclock.AbsTime, addresses []string) *PeerState {
	return &PeerState{
		Id:        id,
		Phase:     PhaseConnecting,
		LastSeen:  now,
		Addresses: addresses,
		Channels: map[ChannelKind]*p2pchan.Driver{
			ChannelCommitments: p2pchan.New(),
			ChannelSnarks:      p2pchan.New(),
			ChannelBestTip:     p2pchan.New(),
		},
		PendingRpcIds: make(map[common.RpcId]struct{}),
	}
}
