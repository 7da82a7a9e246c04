// Package verifypool runs commitment signature verification off the
// caller's goroutine on a small bounded worker pool (SPEC_FULL.md §5). A
// caller that waits for the result, as cmd/snarkerd's Verifier does,
// still blocks until it arrives.
package verifypool

import (
	"github.com/JekaMas/workerpool"
	"github.com/shirou/gopsutil/cpu"

	"snarker-node/log"
	"snarker-node/snarker/snarkpool"
	"snarker-node/snarker/verify"
)

// Pool verifies commitments concurrently, each result delivered back via
// a caller-supplied callback (in cmd/snarkerd, a send on a one-shot
// channel).
type Pool struct {
	wp    *workerpool.WorkerPool
	cache *verify.Cache
}

// New sizes the pool to max(2, ncpu)-1 via gopsutil, leaving one core
// free for the reactor goroutine itself.
func New() *Pool {
	n, err := cpu.Counts(true)
	if err != nil || n < 2 {
		n = 2
	}
	width := n - 1
	if width < 1 {
		width = 1
	}
	log.Debug("verifier pool sized", "workers", width)
	return &Pool{wp: workerpool.New(width), cache: verify.NewCache()}
}

// Verify schedules signature verification for c and calls done(ok) once
// complete, from a pool worker goroutine (never from the caller's own
// goroutine, so done must hand its result back through a producer rather
// than touch State directly).
func (p *Pool) Verify(c snarkpool.Commitment, done func(ok bool)) {
	p.wp.Submit(func() {
		done(p.cache.Verify(c))
	})
}

// Stop drains in-flight verifications and releases the pool's workers.
func (p *Pool) Stop() { p.wp.StopWait() }
