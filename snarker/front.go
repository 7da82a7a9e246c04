package snarker

import (
	"snarker-node/common"
	"snarker-node/snarker/equeue"
	"snarker-node/snarker/rpcfront"
)

// Front bridges inbound RPC requests (from the HTTP/IPC transport or the
// operator console) into the reactor's event queue, assigning each
// request a fresh RpcId as it enters the single-writer world (spec
// §4.6). Safe for concurrent use by multiple listener goroutines.
type Front struct {
	producer *equeue.Producer[Action]
	ids      chan common.RpcId
}

// NewFront registers a new producer on r's queue and starts the id
// generator. One Front is shared by every transport the node exposes.
func NewFront(r *Reactor) *Front {
	f := &Front{producer: r.NewProducer(), ids: make(chan common.RpcId)}
	go func() {
		var next common.RpcId
		for {
			next++
			f.ids <- next
		}
	}()
	return f
}

// Submit enqueues req for the reactor. respond is called once
// (single-shot requests) or up to req.Capacity times (ReqSubscribeEvents)
// before the reactor closes it (spec §4.6).
func (f *Front) Submit(req rpcfront.Request, respond rpcfront.Responder) {
	id := <-f.ids
	f.producer.Send(RpcRequestReceived{Id: id, Request: req, Responder: respond})
}

// Close releases this Front's producer handle, e.g. on node shutdown.
func (f *Front) Close() { f.producer.Close() }
