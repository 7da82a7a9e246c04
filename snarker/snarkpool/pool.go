// Package snarkpool implements the commitment pool of spec §4.4: an
// indexed multiset of outstanding proof-work commitments, at most one per
// job id, aged out by a secondary deadline index and merged from peers
// under a first-to-commit-wins conflict rule. Per-peer re-gossip dedup
// uses a bloom filter (github.com/holiman/bloomfilter/v2) keyed by job
// id, so a re-send only costs a rare false-positive skip, never a
// correctness violation.
package snarkpool

import (
	"container/heap"
	"sync"
	"time"

	"github.com/holiman/bloomfilter/v2"

	"snarker-node/common"
	"snarker-node/common/mclock"
)

// Commitment is the signed promise described in spec §3. Signatures are
// assumed verified by the caller before Insert/Merge (spec §4.4); the
// pool never inspects Signature.
type Commitment struct {
	JobId            common.JobId
	SnarkerPublicKey common.PublicKey
	Signature        common.Signature
	TimestampMs      int64
	ReceivedFrom     *common.PeerId
}

type deadlineEntry struct {
	jobId    common.JobId
	deadline int64 // timestamp_ms + commit_timeout_ms
	version  uint64
}

type deadlineHeap []deadlineEntry

func (h deadlineHeap) Len() int            { return len(h) }
func (h deadlineHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h deadlineHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *deadlineHeap) Push(x interface{}) { *h = append(*h, x.(deadlineEntry)) }
func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Pool is the commitment multiset. Safe for concurrent use, but the
// reactor is its only caller (spec §5: single-writer), so no call
// blocks on contention in practice.
type Pool struct {
	mu            sync.Mutex
	commitTimeout time.Duration
	byJob         map[common.JobId]*Commitment
	version       map[common.JobId]uint64
	deadlines     deadlineHeap

	// seen is a per-peer bloom filter of job ids already re-gossiped to
	// that peer, so PendingForPeer does not offer a commitment the peer
	// has already been sent.
	seen map[common.PeerId]*bloomfilter.Filter
}

// New constructs an empty Pool with the given eviction timeout (spec §3
// default: 360s).
func New(commitTimeout time.Duration) *Pool {
	p := &Pool{
		commitTimeout: commitTimeout,
		byJob:         make(map[common.JobId]*Commitment),
		version:       make(map[common.JobId]uint64),
		seen:          make(map[common.PeerId]*bloomfilter.Filter),
	}
	heap.Init(&p.deadlines)
	return p
}

func (p *Pool) pushDeadlineLocked(jobId common.JobId, timestampMs int64) {
	p.version[jobId]++
	heap.Push(&p.deadlines, deadlineEntry{
		jobId:    jobId,
		deadline: timestampMs + p.commitTimeout.Milliseconds(),
		version:  p.version[jobId],
	})
}

// Insert unconditionally sets the pool's single entry for c.JobId. Used
// for locally-synthesized auto-commits (spec §4.4): there is no
// conflicting peer commitment to resolve against.
func (p *Pool) Insert(c Commitment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := c
	p.byJob[c.JobId] = &cp
	p.pushDeadlineLocked(c.JobId, c.TimestampMs)
}

// MergeResult reports what MergeFromPeer decided, for logging/testing.
type MergeResult int

const (
	MergeInserted MergeResult = iota // no prior commitment for this job
	MergeReplaced                    // incoming commitment won
	MergeDropped                     // existing commitment stands
)

// MergeFromPeer applies the conflict resolution rule of spec §4.4: given
// an existing commitment e and incoming i for the same job id,
//   - i.timestamp < e.timestamp: replace (earlier wins),
//   - timestamps equal: smaller snarker_public_key wins,
//   - otherwise: drop i.
func (p *Pool) MergeFromPeer(incoming Commitment) MergeResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, ok := p.byJob[incoming.JobId]
	if !ok {
		cp := incoming
		p.byJob[incoming.JobId] = &cp
		p.pushDeadlineLocked(incoming.JobId, incoming.TimestampMs)
		return MergeInserted
	}

	switch {
	case incoming.TimestampMs < existing.TimestampMs:
		cp := incoming
		p.byJob[incoming.JobId] = &cp
		p.pushDeadlineLocked(incoming.JobId, incoming.TimestampMs)
		return MergeReplaced
	case incoming.TimestampMs == existing.TimestampMs:
		if incoming.SnarkerPublicKey.Cmp(existing.SnarkerPublicKey) < 0 {
			cp := incoming
			p.byJob[incoming.JobId] = &cp
			p.pushDeadlineLocked(incoming.JobId, incoming.TimestampMs)
			return MergeReplaced
		}
		return MergeDropped
	default:
		return MergeDropped
	}
}

// Get returns the current commitment for jobId, if any.
func (p *Pool) Get(jobId common.JobId) (Commitment, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.byJob[jobId]
	if !ok {
		return Commitment{}, false
	}
	return *c, true
}

// Len reports the number of distinct job ids currently committed to.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byJob)
}

// Evict removes every commitment whose deadline (timestamp + timeout) is
// at or before now (inclusive, spec property 9) and returns them. Called
// from the CheckTimeouts effect (spec §4.2, §4.4).
func (p *Pool) Evict(now mclock.AbsTime) []Commitment {
	return p.EvictAt(int64(now) / int64(time.Millisecond))
}

// EvictAt is the millisecond-timestamp variant: nowMs is in the same unit
// as Commitment.TimestampMs. Evict converts the nanosecond mclock time
// before calling it; tests call it directly.
func (p *Pool) EvictAt(nowMs int64) []Commitment {
	p.mu.Lock()
	defer p.mu.Unlock()

	var evicted []Commitment
	for p.deadlines.Len() > 0 && p.deadlines[0].deadline <= nowMs {
		entry := heap.Pop(&p.deadlines).(deadlineEntry)
		if p.version[entry.jobId] != entry.version {
			continue // stale heap entry: job was re-merged since this was queued.
		}
		c, ok := p.byJob[entry.jobId]
		if !ok {
			continue
		}
		evicted = append(evicted, *c)
		delete(p.byJob, entry.jobId)
		delete(p.version, entry.jobId)
	}
	return evicted
}

// Iterate returns every current commitment, suitable for re-gossip.
func (p *Pool) Iterate() []Commitment {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Commitment, 0, len(p.byJob))
	for _, c := range p.byJob {
		out = append(out, *c)
	}
	return out
}

// PendingForPeer returns the commitments not yet marked seen for peer,
// without marking them (callers must call MarkSeenForPeer once the send
// actually happens, respecting the peer channel's credit — spec §4.5).
func (p *Pool) PendingForPeer(peer common.PeerId) []Commitment {
	p.mu.Lock()
	defer p.mu.Unlock()
	filter := p.seen[peer]
	out := make([]Commitment, 0, len(p.byJob))
	for jobId, c := range p.byJob {
		if filter != nil && filter.Contains(jobKeyHash(jobId)) {
			continue
		}
		out = append(out, *c)
	}
	return out
}

// MarkSeenForPeer records that jobId has now been gossiped to peer, so a
// later PendingForPeer call does not resend it.
func (p *Pool) MarkSeenForPeer(peer common.PeerId, jobId common.JobId) {
	p.mu.Lock()
	defer p.mu.Unlock()
	filter := p.seen[peer]
	if filter == nil {
		// Sized generously for a single peer's lifetime commitment count;
		// false positives only cost a missed re-gossip, never correctness.
		filter, _ = bloomfilter.New(1<<16, 4)
		p.seen[peer] = filter
	}
	filter.Add(jobKeyHash(jobId))
}

// ForgetPeer drops a disconnected peer's dedup filter.
func (p *Pool) ForgetPeer(peer common.PeerId) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.seen, peer)
}

// jobKey implements bloomfilter.Hasher so a JobId can key the per-peer
// dedup filter without a separate hashing dependency: its four
// constituent hashes are already uniformly distributed, so folding them
// with FNV-1a into the two uint64s bloomfilter.Hasher wants is enough.
type jobKey common.JobId

func (k jobKey) Hash() (uint64, uint64) {
	var h1, h2 uint64 = 14695981039346656037, 1099511628211
	fold := func(b []byte, acc *uint64) {
		for _, c := range b {
			*acc ^= uint64(c)
			*acc *= 1099511628211
		}
	}
	fold(k.Source.FirstPass.Bytes(), &h1)
	fold(k.Source.SecondPass.Bytes(), &h1)
	fold(k.Target.FirstPass.Bytes(), &h2)
	fold(k.Target.SecondPass.Bytes(), &h2)
	return h1, h2
}

func jobKeyHash(jobId common.JobId) jobKey {
	return jobKey(jobId)
}
