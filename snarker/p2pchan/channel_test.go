package p2pchan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestGetNextZeroLimit exercises boundary behavior 8 from spec.md §8: a
// GetNext{limit: 0} elicits WillSend{count: 0} and no item messages.
func TestGetNextZeroLimit(t *testing.T) {
	d := New()
	require.NoError(t, d.OnGetNext(0))
	count, err := d.WillSend(0)
	require.NoError(t, err)
	require.Equal(t, uint8(0), count)
	require.True(t, d.ReadyForGetNext())
}

func TestWillSendCannotExceedGrantedCredit(t *testing.T) {
	d := New()
	require.NoError(t, d.OnGetNext(3))
	_, err := d.WillSend(4)
	require.Error(t, err)
}

func TestDuplicateGetNextBeforeWillSendIsViolation(t *testing.T) {
	d := New()
	require.NoError(t, d.OnGetNext(5))
	err := d.OnGetNext(5)
	require.Error(t, err)
}

func TestGetNextBeforeBatchDeliveredIsViolation(t *testing.T) {
	d := New()
	require.NoError(t, d.OnGetNext(2))
	_, err := d.WillSend(2)
	require.NoError(t, err)
	d.OnDeliverSent()
	// Only 1 of 2 promised items delivered.
	err = d.OnGetNext(1)
	require.Error(t, err)
}

func TestReadyForGetNextAfterFullDelivery(t *testing.T) {
	d := New()
	require.NoError(t, d.OnGetNext(2))
	_, err := d.WillSend(2)
	require.NoError(t, err)
	require.False(t, d.ReadyForGetNext())
	d.OnDeliverSent()
	require.False(t, d.ReadyForGetNext())
	d.OnDeliverSent()
	require.True(t, d.ReadyForGetNext())
	require.NoError(t, d.OnGetNext(1))
}

// TestCreditConservationInbound exercises the delivered_in <= promised_in
// half of property 4 from spec.md §8; the Driver does not record the
// inbound GetNext limit, so promised_in <= limit is not checked here.
func TestCreditConservationInbound(t *testing.T) {
	d := New()
	require.NoError(t, d.SendGetNext())
	require.NoError(t, d.OnWillSend(3))
	require.NoError(t, d.OnDeliverReceived())
	require.NoError(t, d.OnDeliverReceived())
	require.NoError(t, d.OnDeliverReceived())

	// A 4th delivery would violate promised_in: peer misbehavior.
	err := d.OnDeliverReceived()
	require.Error(t, err)

	counters := d.Counters()
	require.LessOrEqual(t, counters.DeliveredIn, counters.PromisedIn)
}

func TestLocalGetNextBeforePriorPromiseDeliveredIsViolation(t *testing.T) {
	d := New()
	require.NoError(t, d.SendGetNext())
	require.NoError(t, d.OnWillSend(2))
	require.NoError(t, d.OnDeliverReceived())

	err := d.SendGetNext()
	require.Error(t, err)
}
