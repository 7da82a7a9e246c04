// Package common holds the small value types shared by every snarker-node
// package: peer and job identifiers, ledger hashes and the snarker's public
// key/address pair.
package common

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// HashLength is the size of a ledger hash, in bytes.
const HashLength = 32

// Hash is an opaque 32-byte ledger hash.
type Hash [HashLength]byte

// BytesToHash right-aligns b into a Hash, truncating from the left if b is
// longer than HashLength.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func (h Hash) Bytes() []byte   { return h[:] }
func (h Hash) String() string  { return hex.EncodeToString(h[:]) }
func (h Hash) IsZero() bool    { return h == Hash{} }
func (h Hash) Cmp(o Hash) int  { return bytes.Compare(h[:], o[:]) }

// LedgerHashPair is the (first_pass, second_pass) ledger hash pair that
// identifies one side of a snark job.
type LedgerHashPair struct {
	FirstPass  Hash
	SecondPass Hash
}

// Cmp gives a total order over ledger hash pairs: first-pass, then
// second-pass, lexicographically.
func (p LedgerHashPair) Cmp(o LedgerHashPair) int {
	if c := p.FirstPass.Cmp(o.FirstPass); c != 0 {
		return c
	}
	return p.SecondPass.Cmp(o.SecondPass)
}

func (p LedgerHashPair) String() string {
	return fmt.Sprintf("%s/%s", p.FirstPass, p.SecondPass)
}

// JobId identifies a unit of snark work by its source and target ledger
// hash pairs. Equality and ordering are lexicographic on the four
// constituent hashes, source before target.
type JobId struct {
	Source LedgerHashPair
	Target LedgerHashPair
}

// Cmp gives a total order over job ids: source pair, then target pair.
func (j JobId) Cmp(o JobId) int {
	if c := j.Source.Cmp(o.Source); c != 0 {
		return c
	}
	return j.Target.Cmp(o.Target)
}

func (j JobId) String() string {
	return fmt.Sprintf("%s->%s", j.Source, j.Target)
}

// PeerIdLength is the size of a peer identifier, in bytes.
const PeerIdLength = 32

// PeerId is a 32-byte peer identifier, as handed out by the p2p transport.
type PeerId [PeerIdLength]byte

func BytesToPeerId(b []byte) PeerId {
	var p PeerId
	if len(b) > PeerIdLength {
		b = b[len(b)-PeerIdLength:]
	}
	copy(p[PeerIdLength-len(b):], b)
	return p
}

func (p PeerId) String() string { return hex.EncodeToString(p[:]) }
func (p PeerId) IsZero() bool   { return p == PeerId{} }

// RpcId identifies one locally-issued RPC request for the lifetime of its
// pending responder entry.
type RpcId uint64
