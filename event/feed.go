// Package event implements one-to-many subscription fan-out: Subscribe
// returns a Subscription with Err()/Unsubscribe(), feeding a buffered
// channel. Used internally for notifying interested components of state
// changes without coupling them to the reducer; cmd/snarkerd's worker
// phase logger is the one subscriber.
package event

import "sync"

// Subscription represents a feed subscription.
type Subscription interface {
	// Unsubscribe stops the delivery of events and closes the Err channel.
	Unsubscribe()
	// Err returns a channel closed when Unsubscribe is called.
	Err() <-chan error
}

type feedSub struct {
	feed   *Feed
	ch     interface{}
	errC   chan error
	once   sync.Once
}

func (s *feedSub) Unsubscribe() {
	s.once.Do(func() {
		s.feed.remove(s)
		close(s.errC)
	})
}

func (s *feedSub) Err() <-chan error { return s.errC }

// Feed implements one-to-many subscription fan-out for a single event
// type T, delivered over a buffered channel per subscriber. A slow
// subscriber never blocks Send indefinitely: Send drops the event for any
// subscriber whose channel is currently full, mirroring the
// best-effort, never-block contract the reactor needs when notifying
// non-critical observers (console, metrics).
type Feed struct {
	mu   sync.Mutex
	subs []*feedSub
}

// Subscribe registers ch to receive every value later passed to Send. The
// channel should be buffered; Feed never blocks waiting for it to drain.
func Subscribe(f *Feed, ch interface{}) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &feedSub{feed: f, ch: ch, errC: make(chan error)}
	f.subs = append(f.subs, sub)
	return sub
}

func (f *Feed) remove(s *feedSub) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, sub := range f.subs {
		if sub == s {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return
		}
	}
}

// Send delivers value to every live subscriber's channel, dropping it for
// subscribers whose channel is full. A subscriber whose channel is not of
// type chan T is skipped. The type check is a plain type assertion rather
// than reflection, since every producer here sends exactly one concrete
// type per Feed. Send returns the number of subscribers that received
// value.
func Send[T any](f *Feed, value T) int {
	f.mu.Lock()
	subs := make([]*feedSub, len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()

	n := 0
	for _, sub := range subs {
		ch, ok := sub.ch.(chan T)
		if !ok {
			continue
		}
		select {
		case ch <- value:
			n++
		default:
		}
	}
	return n
}
