package snarker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"snarker-node/common"
	"snarker-node/common/mclock"
	"snarker-node/snarker/rpcfront"
	"snarker-node/snarker/snarkpool"
	"snarker-node/snarker/workerproc"
)

type fakeTransport struct {
	dials       []string
	getNexts    []string
	willSends   []string
	commitments []snarkpool.Commitment
}

func (f *fakeTransport) Dial(address string) { f.dials = append(f.dials, address) }
func (f *fakeTransport) SendGetNext(peer common.PeerId, channel ChannelKind, limit uint8) {
	f.getNexts = append(f.getNexts, peer.String())
}
func (f *fakeTransport) SendWillSend(peer common.PeerId, channel ChannelKind, count uint8) {
	f.willSends = append(f.willSends, peer.String())
}
func (f *fakeTransport) SendCommitment(peer common.PeerId, channel ChannelKind, c snarkpool.Commitment) {
	f.commitments = append(f.commitments, c)
}

type recordingResponder struct {
	got    []rpcfront.Response
	closed bool
}

func (r *recordingResponder) Respond(resp rpcfront.Response) { r.got = append(r.got, resp) }
func (r *recordingResponder) Close()                         { r.closed = true }

func testDispatcher(t *testing.T) (*Dispatcher, *fakeTransport, *mclock.Simulated) {
	t.Helper()
	clock := mclock.NewSimulated(0)
	cfg := DefaultConfig
	cfg.AutoCommit = true
	state := NewState(cfg, clock)
	transport := &fakeTransport{}
	d := NewDispatcher(state, nil, transport, func(snarkpool.Commitment) bool { return true })
	return d, transport, clock
}

func testPeerId(n byte) common.PeerId { return common.BytesToPeerId([]byte{n}) }

func TestPeerConnectedResolvesPendingRpc(t *testing.T) {
	d, transport, _ := testDispatcher(t)
	responder := &recordingResponder{}

	d.Dispatch(RpcRequestReceived{
		Id:        1,
		Request:   rpcfront.Request{Kind: rpcfront.ReqConnectPeer, Address: "10.0.0.1:8301"},
		Responder: responder,
	})
	require.Len(t, transport.dials, 1)
	require.Equal(t, "10.0.0.1:8301", transport.dials[0])
	require.Len(t, d.State.Rpc, 1)

	d.Dispatch(PeerConnected{Peer: testPeerId(1), Addresses: []string{"10.0.0.1:8301"}})

	require.Len(t, responder.got, 1)
	require.True(t, responder.got[0].Ok)
	require.Empty(t, d.State.Rpc)
}

func TestWorkResultAutoCommitsWhenConfigured(t *testing.T) {
	d, _, _ := testDispatcher(t)
	job := common.JobId{Source: common.LedgerHashPair{FirstPass: common.BytesToHash([]byte{1})}}
	d.State.Worker.Phase = WorkerWorking
	d.State.Worker.CurrentJob = &job

	resp := workerproc.WorkResponse{Proofs: [][]byte{{1, 2, 3}}}
	d.Dispatch(WorkerEvent{Inner: workerproc.Event{WorkResult: &resp}})

	require.Equal(t, WorkerIdle, d.State.Worker.Phase)
	require.Nil(t, d.State.Worker.CurrentJob)
	require.Equal(t, 1, d.State.Pool.Len())
}

func TestCommitmentConflictThroughDispatcher(t *testing.T) {
	d, _, _ := testDispatcher(t)
	job := common.JobId{Source: common.LedgerHashPair{FirstPass: common.BytesToHash([]byte{7})}}
	peer := testPeerId(9)
	d.Dispatch(PeerConnected{Peer: peer})

	d.Dispatch(PeerCommitmentReceived{Peer: peer, Commitment: snarkpool.Commitment{JobId: job, TimestampMs: 100}})
	got, ok := d.State.Pool.Get(job)
	require.True(t, ok)
	require.Equal(t, int64(100), got.TimestampMs)

	d.Dispatch(PeerCommitmentReceived{Peer: peer, Commitment: snarkpool.Commitment{JobId: job, TimestampMs: 50}})
	got, ok = d.State.Pool.Get(job)
	require.True(t, ok)
	require.Equal(t, int64(50), got.TimestampMs)
}

func TestCheckTimeoutsEvictsExpiredCommitments(t *testing.T) {
	clock := mclock.NewSimulated(0)
	cfg := DefaultConfig
	cfg.CommitTimeout = 0
	state := NewState(cfg, clock)
	d := NewDispatcher(state, nil, &fakeTransport{}, nil)
	d.State.Pool.Insert(snarkpool.Commitment{JobId: common.JobId{}, TimestampMs: 0})

	d.Dispatch(CheckTimeouts{})
	require.Equal(t, 0, d.State.Pool.Len())
}

func TestGetStatusRpc(t *testing.T) {
	d, _, _ := testDispatcher(t)
	responder := &recordingResponder{}
	d.Dispatch(RpcRequestReceived{Id: 1, Request: rpcfront.Request{Kind: rpcfront.ReqGetStatus}, Responder: responder})
	require.Len(t, responder.got, 1)
	require.NotNil(t, responder.got[0].Status)
	require.Equal(t, "Absent", responder.got[0].Status.WorkerPhase)
}
