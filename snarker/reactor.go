package snarker

import (
	"context"
	"time"

	"snarker-node/log"
	"snarker-node/snarker/equeue"
	"snarker-node/snarker/workerproc"
)

// TickInterval is the reactor's wall-clock timer period (spec §5).
const TickInterval = 100 * time.Millisecond

// Reactor is the single goroutine that drains the event queue and folds
// every event into the Dispatcher's State (spec §5: "the reactor
// suspends on exactly one of: the event queue, the 100ms timer, the
// worker's I/O, or an RPC connection's I/O" -- the latter two resolve to
// queue sends from their own goroutines, so this loop only ever waits on
// the queue itself).
type Reactor struct {
	Queue      *equeue.Queue[Action]
	Dispatcher *Dispatcher
}

// NewReactor wires a Reactor around an already-constructed Dispatcher.
func NewReactor(d *Dispatcher) *Reactor {
	return &Reactor{Queue: equeue.New[Action](), Dispatcher: d}
}

// NewProducer registers one more external event source with the
// reactor's queue (spec §4.1: peer connections, the RPC front, and the
// worker bridge each get their own producer handle).
func (r *Reactor) NewProducer() *equeue.Producer[Action] {
	return r.Queue.NewProducer()
}

// BindWorker constructs the external worker supervisor wired to feed this
// reactor's queue through its own dedicated producer (spec §4.3).
func (r *Reactor) BindWorker(path string) *workerproc.Supervisor {
	p := r.Queue.NewProducer()
	return workerproc.New(path, func(ev workerproc.Event) {
		p.Send(WorkerEvent{Inner: ev})
	})
}

// Run starts the 100ms timer producer and drains the queue until every
// registered producer has closed (spec §5). Cancelling ctx stops and
// closes the timer producer only; the loop keeps draining while any other
// producer is still open.
func (r *Reactor) Run(ctx context.Context) {
	tp := r.Queue.NewProducer()
	go r.tickLoop(ctx, tp)

	for {
		if err := r.Queue.AwaitNonempty(); err != nil {
			log.Info("reactor stopped: event queue closed")
			return
		}
		for _, action := range r.Queue.DrainAvailable() {
			r.Dispatcher.Dispatch(action)
		}
	}
}

func (r *Reactor) tickLoop(ctx context.Context, p *equeue.Producer[Action]) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	defer p.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Send(TimerTick{})
		}
	}
}
