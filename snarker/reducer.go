package snarker

import (
	"time"

	"snarker-node/log"
	"snarker-node/snarker/rpcfront"
	"snarker-node/snarker/snarkpool"
	"snarker-node/snarker/workerproc"
)

func (d *Dispatcher) onPeerConnected(a PeerConnected) {
	now := d.State.Clock.Now()
	peer, ok := d.State.Peers[a.Peer]
	if !ok {
		peer = newPeerState(a.Peer, now, a.Addresses)
		d.State.Peers[a.Peer] = peer
	}
	peer.Phase = PhaseConnected
	peer.LastSeen = now
	if len(a.Addresses) > 0 {
		peer.Addresses = a.Addresses
	}
	peer.ReconnectBackoff = 0
	log.Info("peer connected", "peer", a.Peer)
	d.publishSubscriptionEvent(rpcfront.EventView{Kind: rpcfront.EventPeerConnected, Peer: a.Peer})

	// Resolve any pending ReqConnectPeer RPC whose dial address matches.
	for id, pending := range d.State.Rpc {
		if pending.Address == "" {
			continue
		}
		for _, addr := range a.Addresses {
			if addr == pending.Address {
				respondOk(pending.Responder, rpcfront.Response{})
				delete(d.State.Rpc, id)
				break
			}
		}
	}
}

func (d *Dispatcher) onPeerDisconnected(a PeerDisconnected) {
	peer, ok := d.State.Peers[a.Peer]
	if !ok {
		return
	}
	peer.Phase = PhaseDisconnected
	peer.LastSeen = d.State.Clock.Now()
	peer.ReconnectAt = d.State.Clock.Now().Add(backoffFor(peer.ReconnectBackoff))
	peer.ReconnectBackoff++
	d.State.Pool.ForgetPeer(a.Peer)
	log.Info("peer disconnected", "peer", a.Peer)
	d.publishSubscriptionEvent(rpcfront.EventView{Kind: rpcfront.EventPeerDisconnected, Peer: a.Peer})
}

func backoffFor(attempt int) (d time.Duration) {
	d = DefaultReconnectBackoff
	for i := 0; i < attempt && d < time.Minute; i++ {
		d *= 2
	}
	return d
}

func (d *Dispatcher) onPeerCommitmentReceived(a PeerCommitmentReceived) {
	if d.Verify != nil && !d.Verify(a.Commitment) {
		log.Warn("dropping commitment with invalid signature", "peer", a.Peer, "job", a.Commitment.JobId)
		return
	}
	c := a.Commitment
	from := a.Peer
	c.ReceivedFrom = &from
	res := d.State.Pool.MergeFromPeer(c)
	d.State.Pool.MarkSeenForPeer(a.Peer, c.JobId)
	switch res {
	case snarkpool.MergeInserted:
		log.Debug("commitment inserted from peer", "peer", a.Peer, "job", c.JobId)
	case snarkpool.MergeReplaced:
		log.Debug("commitment replaced by peer's earlier-timestamp entry", "peer", a.Peer, "job", c.JobId)
	case snarkpool.MergeDropped:
		log.Trace("commitment dropped (existing entry wins)", "peer", a.Peer, "job", c.JobId)
	}
}

func (d *Dispatcher) onPeerGetNextReceived(a PeerGetNextReceived) {
	peer, ok := d.State.Peers[a.Peer]
	if !ok {
		return
	}
	driver, ok := peer.Channels[a.Channel]
	if !ok {
		return
	}
	if err := driver.OnGetNext(a.Limit); err != nil {
		log.Warn("credit violation on GetNext", "peer", a.Peer, "channel", a.Channel, "err", err)
		return
	}

	if a.Channel != ChannelCommitments {
		// Snarks/best-tip gossip payloads are outside this module's
		// scope (SPEC_FULL.md §4.5); acknowledge with an empty batch so
		// the peer's credit state stays consistent.
		count, _ := driver.WillSend(0)
		d.Transport.SendWillSend(a.Peer, a.Channel, count)
		return
	}

	pending := d.State.Pool.PendingForPeer(a.Peer)
	if len(pending) > int(a.Limit) {
		pending = pending[:a.Limit]
	}
	count, err := driver.WillSend(uint8(len(pending)))
	if err != nil {
		log.Warn("WillSend rejected", "peer", a.Peer, "err", err)
		return
	}
	d.Transport.SendWillSend(a.Peer, a.Channel, count)
	for _, c := range pending {
		d.Transport.SendCommitment(a.Peer, a.Channel, c)
		d.State.Pool.MarkSeenForPeer(a.Peer, c.JobId)
		driver.OnDeliverSent()
	}
}

func (d *Dispatcher) onPeerWillSendReceived(a PeerWillSendReceived) {
	peer, ok := d.State.Peers[a.Peer]
	if !ok {
		return
	}
	driver, ok := peer.Channels[a.Channel]
	if !ok {
		return
	}
	if err := driver.OnWillSend(a.Count); err != nil {
		log.Warn("credit violation on WillSend", "peer", a.Peer, "channel", a.Channel, "err", err)
	}
}

func (d *Dispatcher) onPeerDeliverReceived(a PeerDeliverReceived) {
	peer, ok := d.State.Peers[a.Peer]
	if !ok {
		return
	}
	driver, ok := peer.Channels[a.Channel]
	if !ok {
		return
	}
	if err := driver.OnDeliverReceived(); err != nil {
		log.Warn("credit violation on Deliver", "peer", a.Peer, "channel", a.Channel, "err", err)
		return
	}
	if a.Channel == ChannelCommitments && a.Commitment != nil {
		d.Dispatch(PeerCommitmentReceived{Peer: a.Peer, Commitment: *a.Commitment})
	}
	if a.Channel == ChannelBestTip && a.JobId != nil {
		d.Dispatch(NewJobObserved{JobId: *a.JobId})
	}
}

// onNewJobObserved is the auto-commit trigger of spec §4.4: observing a
// new job in the transition frontier, while auto_commit is enabled and
// the worker is idle, inserts a synthesized local commitment and submits
// the job to the worker in the same step.
func (d *Dispatcher) onNewJobObserved(a NewJobObserved) {
	if !d.State.Config.AutoCommit || d.State.Worker.Phase != WorkerIdle {
		return
	}
	if _, ok := d.State.Pool.Get(a.JobId); ok {
		return
	}
	c := snarkpool.Commitment{
		JobId:            a.JobId,
		SnarkerPublicKey: d.State.Config.PublicKey,
		TimestampMs:      int64(d.State.Clock.Now()) / 1_000_000,
	}
	d.State.Pool.Insert(c)
	d.Dispatch(ExternalWorkerSubmit{
		JobId: a.JobId,
		Spec: workerproc.Spec{
			Instances: 1,
			Fee:       d.State.Config.Fee,
			PublicKey: d.State.Config.PublicKey,
		},
	})
}

func (d *Dispatcher) onWorkerEvent(a WorkerEvent) {
	ev := a.Inner
	switch {
	case ev.Started:
		d.setWorkerPhase(WorkerIdle)
		log.Info("external worker started")
	case ev.WorkResult != nil:
		jobId := d.State.Worker.CurrentJob
		d.setWorkerPhase(WorkerIdle)
		d.State.Worker.CurrentJob = nil
		if jobId == nil {
			log.Warn("work result with no tracked job id, dropping")
			return
		}
		c := snarkpool.Commitment{
			JobId:            *jobId,
			SnarkerPublicKey: d.State.Config.PublicKey,
			TimestampMs:      int64(d.State.Clock.Now()) / 1_000_000,
		}
		if d.State.Config.AutoCommit {
			d.Dispatch(SnarkPoolAutoCommit{Commitment: c})
		} else {
			log.Info("snark work complete, awaiting operator commit", "job", *jobId)
		}
	case ev.WorkCancel:
		d.setWorkerPhase(WorkerIdle)
		d.State.Worker.CurrentJob = nil
		log.Info("external worker job cancelled")
	case ev.Killed:
		d.State.Worker = WorkerState{}
		d.setWorkerPhase(WorkerAbsent)
		log.Info("external worker exited")
	case ev.Err != nil:
		d.onWorkerError(*ev.Err)
	}
}

func (d *Dispatcher) onWorkerError(err workerproc.EventError) {
	switch err.Kind {
	case workerproc.ErrBusy, workerproc.ErrNotRunning:
		log.Warn("external worker rejected request", "kind", err.Kind, "msg", err.Message)
	case workerproc.ErrSignalError:
		log.Warn("failed to signal external worker", "msg", err.Message)
	default:
		d.setWorkerPhase(WorkerFailed)
		d.State.Worker.LastError = err.Message
		log.Error("external worker failed", "kind", err.Kind, "msg", err.Message)
	}
}

func (d *Dispatcher) onRpcRequestReceived(a RpcRequestReceived) {
	req := a.Request
	switch req.Kind {
	case rpcfront.ReqConnectPeer:
		d.State.Rpc[a.Id] = PendingRpc{
			Responder: a.Responder,
			Deadline:  d.State.Clock.Now().Add(DefaultRpcTimeout),
			Address:   req.Address,
		}
		d.Transport.Dial(req.Address)
	case rpcfront.ReqSubmitCommitment:
		c := snarkpool.Commitment{JobId: req.JobId, SnarkerPublicKey: req.PublicKey, TimestampMs: int64(d.State.Clock.Now()) / 1_000_000}
		d.State.Pool.Insert(c)
		respondOk(a.Responder, rpcfront.Response{})
	case rpcfront.ReqGetStatus:
		respondOk(a.Responder, rpcfront.Response{Status: d.statusView()})
	case rpcfront.ReqGetPeers:
		respondOk(a.Responder, rpcfront.Response{Peers: d.peersView()})
	case rpcfront.ReqGetPool:
		respondOk(a.Responder, rpcfront.Response{Pool: d.poolView()})
	case rpcfront.ReqSetAutoCommit:
		d.State.Config.AutoCommit = req.AutoCommit
		respondOk(a.Responder, rpcfront.Response{})
	case rpcfront.ReqSubscribeEvents:
		capacity := req.Capacity
		if capacity <= 0 {
			capacity = 1
		}
		d.State.Rpc[a.Id] = PendingRpc{
			Responder: a.Responder,
			Deadline:  d.State.Clock.Now().Add(DefaultSubscriptionTTL),
			Remaining: capacity,
		}
	default:
		respondErr(a.Responder, "unknown request kind")
	}
}

func (d *Dispatcher) onPeerReconnectDue(a PeerReconnectDue) {
	peer, ok := d.State.Peers[a.Peer]
	if !ok || len(peer.Addresses) == 0 {
		return
	}
	log.Debug("redialing peer", "peer", a.Peer)
	d.Transport.Dial(peer.Addresses[0])
}

func (d *Dispatcher) onRpcTimedOut(a RpcTimedOut) {
	pending, ok := d.State.Rpc[a.Id]
	if !ok {
		return
	}
	delete(d.State.Rpc, a.Id)
	respondErr(pending.Responder, "request timed out")
}

func (d *Dispatcher) onBestTipRefreshDue() {
	for id, peer := range d.State.Peers {
		if peer.Phase != PhaseConnected {
			continue
		}
		driver := peer.Channels[ChannelBestTip]
		if driver != nil && driver.ReadyForGetNext() {
			if err := driver.SendGetNext(); err == nil {
				d.Transport.SendGetNext(id, ChannelBestTip, 1)
			}
		}
	}
}

func (d *Dispatcher) onCheckTimeouts() {
	now := d.State.Clock.Now()

	for _, c := range d.State.Pool.Evict(now) {
		log.Debug("commitment expired", "job", c.JobId, "peer", c.ReceivedFrom)
		if d.State.Worker.Phase == WorkerWorking && d.State.Worker.CurrentJob != nil && *d.State.Worker.CurrentJob == c.JobId {
			d.Dispatch(ExternalWorkerCancel{})
		}
	}

	if now.Sub(d.State.lastPeerSweepAt) >= DefaultPeerSweepInterval {
		d.State.lastPeerSweepAt = now
		for id, peer := range d.State.Peers {
			if peer.Phase == PhaseDisconnected && now >= peer.ReconnectAt {
				d.Dispatch(PeerReconnectDue{Peer: id})
			}
		}
		for id, pending := range d.State.Rpc {
			if now >= pending.Deadline {
				d.Dispatch(RpcTimedOut{Id: id})
			}
		}
	}

	if now.Sub(d.State.lastBestTipAt) >= DefaultBestTipInterval {
		d.State.lastBestTipAt = now
		d.Dispatch(BestTipRefreshDue{})
	}
}

func (d *Dispatcher) statusView() *rpcfront.StatusView {
	return &rpcfront.StatusView{
		ChainId:     d.State.Config.ChainId,
		PeerCount:   len(d.State.Peers),
		WorkerPhase: d.State.Worker.Phase.String(),
		PoolSize:    d.State.Pool.Len(),
		AutoCommit:  d.State.Config.AutoCommit,
		WorkerJobId: d.State.Worker.CurrentJob,
	}
}

func (d *Dispatcher) peersView() []rpcfront.PeerView {
	out := make([]rpcfront.PeerView, 0, len(d.State.Peers))
	for id, peer := range d.State.Peers {
		out = append(out, rpcfront.PeerView{Id: id, Phase: peer.Phase.String()})
	}
	return out
}

func (d *Dispatcher) poolView() []rpcfront.PoolEntryView {
	all := d.State.Pool.Iterate()
	out := make([]rpcfront.PoolEntryView, 0, len(all))
	for _, c := range all {
		out = append(out, rpcfront.PoolEntryView{JobId: c.JobId, PublicKey: c.SnarkerPublicKey, TimestampMs: c.TimestampMs})
	}
	return out
}
