package common

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec"
)

// PublicKeyLength is the size of a compressed secp256k1 public key.
const PublicKeyLength = 33

// PublicKey is the snarker's payout identity: a compressed secp256k1
// point. Signature verification of commitments is the caller's
// responsibility (spec §4.4); this type only gives the pool and the RPC
// layer a comparable, orderable representation.
type PublicKey [PublicKeyLength]byte

func BytesToPublicKey(b []byte) (PublicKey, bool) {
	var pk PublicKey
	if len(b) != PublicKeyLength {
		return pk, false
	}
	if _, err := btcec.ParsePubKey(b, btcec.S256()); err != nil {
		return pk, false
	}
	copy(pk[:], b)
	return pk, true
}

func (pk PublicKey) Bytes() []byte  { return pk[:] }
func (pk PublicKey) String() string { return hex.EncodeToString(pk[:]) }

// Cmp gives the lexicographic order over public keys used to break ties
// between same-timestamp commitments (spec §4.4: "smaller wins").
func (pk PublicKey) Cmp(o PublicKey) int {
	return bytes.Compare(pk[:], o[:])
}

// Address is the short form of a public key: the last 20 bytes of its
// serialization.
type Address [20]byte

func (pk PublicKey) Address() Address {
	var a Address
	copy(a[:], pk[PublicKeyLength-20:])
	return a
}

func (a Address) String() string { return hex.EncodeToString(a[:]) }

// Signature is an opaque signature over a commitment; verification lives
// outside the core (spec §4.4, §1 Out of scope).
type Signature []byte
