// Package p2pchan implements the credit-based GetNext/WillSend/Deliver
// flow control described in spec §4.5, one instance per open gossip
// channel (commitments / snarks / best-tip) per peer. There is no
// per-item cost model, only a per-batch promise/deliver count.
package p2pchan

import (
	"fmt"
	"sync"
)

// ErrCreditViolation is returned when a peer violates the credit
// invariants of spec §4.5; the caller must treat this as a terminal
// channel error.
type ErrCreditViolation struct {
	Reason string
}

func (e *ErrCreditViolation) Error() string { return "p2pchan: credit violation: " + e.Reason }

// Driver tracks the half-duplex credit loops of one channel, one per
// direction: outstanding_credit_out / promised_in / delivered_in (spec
// §4.5).
type Driver struct {
	mu sync.Mutex

	// Outbound direction: the remote peer has granted us credit via
	// GetNext, and we reply with WillSend then must deliver exactly that
	// many items before promising again.
	outstandingCreditOut uint8 // limit offered by the peer's last GetNext
	outPromised          uint8 // count we committed to in our last WillSend
	outDelivered         uint8 // items actually sent since that WillSend
	outHasPendingGetNext bool  // true until we reply with WillSend

	// Inbound direction: mirrors the same state machine from our side as
	// the requester (we send GetNext, peer replies WillSend, we count
	// Deliver messages against that promise).
	inPromised  uint8
	inDelivered uint8
	inOutstanding bool // true from our GetNext until the peer's WillSend arrives
}

// New constructs a Driver with no outstanding credit in either direction.
func New() *Driver { return &Driver{} }

// OnGetNext handles a GetNext{limit} received from the peer (we are the
// sender on this direction). It is a protocol violation to receive a new
// GetNext before the previous promised batch has been fully delivered.
func (d *Driver) OnGetNext(limit uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.outHasPendingGetNext {
		return &ErrCreditViolation{Reason: "duplicate GetNext before WillSend"}
	}
	if d.outDelivered < d.outPromised {
		return &ErrCreditViolation{Reason: "GetNext received before prior WillSend batch fully delivered"}
	}
	d.outstandingCreditOut = limit
	d.outHasPendingGetNext = true
	return nil
}

// WillSend commits to sending count items (count <= the limit from the
// most recent GetNext), and returns the count to actually promise.
func (d *Driver) WillSend(count uint8) (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.outHasPendingGetNext {
		return 0, &ErrCreditViolation{Reason: "WillSend without a pending GetNext"}
	}
	if count > d.outstandingCreditOut {
		return 0, &ErrCreditViolation{Reason: fmt.Sprintf("WillSend count %d exceeds granted credit %d", count, d.outstandingCreditOut)}
	}
	d.outPromised = count
	d.outDelivered = 0
	d.outHasPendingGetNext = false
	return count, nil
}

// OnDeliverSent records that one more promised item was actually sent.
// Sending more than outPromised is a local programming error, not a peer
// violation, and panics to surface it immediately in tests.
func (d *Driver) OnDeliverSent() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.outDelivered >= d.outPromised {
		panic("p2pchan: delivered more items than promised by WillSend")
	}
	d.outDelivered++
}

// ReadyForGetNext reports whether the outbound direction may grant a new
// GetNext to the peer (i.e. the last promised batch, if any, is done).
func (d *Driver) ReadyForGetNext() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.outHasPendingGetNext && d.outDelivered >= d.outPromised
}

// SendGetNext marks that we have sent the peer a GetNext; we may not send
// another GetNext until the peer's WillSend promise for this one is fully
// delivered. The limit sent with it is not recorded, so OnWillSend does
// not check the peer's promised count against it.
func (d *Driver) SendGetNext() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inOutstanding {
		return &ErrCreditViolation{Reason: "local GetNext sent before prior promise fully delivered"}
	}
	if d.inDelivered < d.inPromised {
		return &ErrCreditViolation{Reason: "local GetNext sent before prior WillSend batch fully delivered"}
	}
	d.inOutstanding = true
	return nil
}

// OnWillSend handles the peer's WillSend{count} reply to our GetNext.
func (d *Driver) OnWillSend(count uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.inOutstanding {
		return &ErrCreditViolation{Reason: "WillSend received without an outstanding local GetNext"}
	}
	d.inPromised = count
	d.inDelivered = 0
	d.inOutstanding = false
	return nil
}

// OnDeliverReceived records one more item delivered by the peer against
// its last WillSend promise. Delivering more than promised (property 4:
// delivered_in <= promised_in) is a peer violation.
func (d *Driver) OnDeliverReceived() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inDelivered >= d.inPromised {
		return &ErrCreditViolation{Reason: "peer delivered more items than its own WillSend promised"}
	}
	d.inDelivered++
	return nil
}

// Counters is a snapshot for diagnostics/tests.
type Counters struct {
	OutstandingCreditOut uint8
	PromisedIn           uint8
	DeliveredIn          uint8
}

func (d *Driver) Counters() Counters {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Counters{
		OutstandingCreditOut: d.outstandingCreditOut,
		PromisedIn:           d.inPromised,
		DeliveredIn:          d.inDelivered,
	}
}
