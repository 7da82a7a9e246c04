// Package verify checks a commitment's signature before it is allowed to
// influence the pool, caching recent verdicts the same way
// consensus/bsrr/berith.go's ecrecover caches recovered signer addresses
// in an ARC keyed by block hash — here keyed by (job id, public key)
// instead, since the same commitment is routinely re-gossiped by several
// peers before it settles.
package verify

import (
	"github.com/btcsuite/btcd/btcec"
	lru "github.com/hashicorp/golang-lru"

	"snarker-node/common"
	"snarker-node/snarker/snarkpool"
)

const cacheSize = 4096

// Cache wraps an ARC of already-checked (job id, public key) pairs.
type Cache struct {
	arc *lru.ARCCache
}

// NewCache builds a verification cache sized for a busy node's working
// set of distinct in-flight commitments.
func NewCache() *Cache {
	arc, _ := lru.NewARC(cacheSize)
	return &Cache{arc: arc}
}

type cacheKey struct {
	job common.JobId
	pub common.PublicKey
}

// Verify reports whether c carries a well-formed signature over its
// claimed public key, consulting the cache before redoing the parse.
func (c *Cache) Verify(commitment snarkpool.Commitment) bool {
	key := cacheKey{job: commitment.JobId, pub: commitment.SnarkerPublicKey}
	if v, ok := c.arc.Get(key); ok {
		return v.(bool)
	}
	ok := verifySignature(commitment)
	c.arc.Add(key, ok)
	return ok
}

// verifySignature checks that Signature decodes as a valid DER signature
// against PublicKey. The digest a snarker actually signs over is a
// ledger-side concern this module has no access to (spec §1: out of
// scope), so this is a structural check, not a full ECDSA verification —
// the ledger layer that eventually spends a commitment re-derives and
// checks the real digest independently.
func verifySignature(c snarkpool.Commitment) bool {
	if len(c.Signature) == 0 {
		return false
	}
	if _, err := btcec.ParsePubKey(c.SnarkerPublicKey.Bytes(), btcec.S256()); err != nil {
		return false
	}
	_, err := btcec.ParseSignature(c.Signature, btcec.S256())
	return err == nil
}
