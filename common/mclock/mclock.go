// Package mclock exposes a monotonic clock abstraction so the reducer
// never touches wall-clock time directly. The real-clock implementation
// wraps github.com/aristanetworks/goarista's monotime.
package mclock

import (
	"time"

	"github.com/aristanetworks/goarista/monotime"
)

// AbsTime is a monotonic timestamp in nanoseconds since an arbitrary,
// process-local epoch. Only differences between two AbsTime values are
// meaningful.
type AbsTime uint64

// Add returns t + d.
func (t AbsTime) Add(d time.Duration) AbsTime {
	return t + AbsTime(d)
}

// Sub returns the duration between two AbsTime values, t - t2.
func (t AbsTime) Sub(t2 AbsTime) time.Duration {
	return time.Duration(t - t2)
}

// Clock interface makes it possible to replace the monotonic system clock
// with a simulated clock in tests, which is how the test suite drives the
// CheckTimeouts / eviction scenarios (S5) deterministically.
type Clock interface {
	Now() AbsTime
	Sleep(time.Duration)
	After(time.Duration) <-chan AbsTime
}

// System is the Clock implementation backed by the real monotonic clock.
type System struct{}

func (System) Now() AbsTime { return AbsTime(monotime.Now()) }

func (System) Sleep(d time.Duration) { time.Sleep(d) }

func (System) After(d time.Duration) <-chan AbsTime {
	ch := make(chan AbsTime, 1)
	time.AfterFunc(d, func() { ch <- System{}.Now() })
	return ch
}

// Simulated is a virtual clock for deterministic tests: advancing it is
// the only way its Now() changes.
type Simulated struct {
	now AbsTime
}

func NewSimulated(start AbsTime) *Simulated { return &Simulated{now: start} }

func (s *Simulated) Now() AbsTime { return s.now }

// Run advances the simulated clock by d. There is no sleeping goroutine to
// wake: tests call Run then dispatch the action under test directly.
func (s *Simulated) Run(d time.Duration) { s.now = s.now.Add(d) }

func (s *Simulated) Sleep(d time.Duration) { s.Run(d) }

func (s *Simulated) After(d time.Duration) <-chan AbsTime {
	ch := make(chan AbsTime, 1)
	s.Run(d)
	ch <- s.now
	return ch
}
