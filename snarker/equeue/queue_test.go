package equeue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestS6EventOrdering exercises scenario S6 from spec.md §8: events from
// a single producer arrive in send order; interleaving across producers
// is allowed to vary but every event is seen exactly once.
func TestS6EventOrdering(t *testing.T) {
	q := New[string]()
	pa := q.NewProducer()
	pb := q.NewProducer()

	pa.Send("E1")
	pa.Send("E2")
	pb.Send("E3")

	require.NoError(t, q.AwaitNonempty())
	got := q.DrainAvailable()

	require.Len(t, got, 3)
	idxE1, idxE2 := -1, -1
	for i, ev := range got {
		switch ev {
		case "E1":
			idxE1 = i
		case "E2":
			idxE2 = i
		}
	}
	require.NotEqual(t, -1, idxE1)
	require.NotEqual(t, -1, idxE2)
	require.Less(t, idxE1, idxE2, "E1 must precede E2: same-producer order must be preserved")
}

func TestAwaitNonemptyBlocksUntilSend(t *testing.T) {
	q := New[int]()
	p := q.NewProducer()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, q.AwaitNonempty())
	}()

	p.Send(1)
	wg.Wait()
	require.Equal(t, []int{1}, q.DrainAvailable())
}

func TestProducerClosedOnceAllProducersClose(t *testing.T) {
	q := New[int]()
	p1 := q.NewProducer()
	p2 := q.NewProducer()

	p1.Close()
	require.Equal(t, 1, q.closers, "queue stays open while p2 is still live")

	p2.Close()
	err := q.AwaitNonempty()
	require.ErrorIs(t, err, ErrProducerClosed)
}
