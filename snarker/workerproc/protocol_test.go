package workerproc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"snarker-node/common"
)

// TestWorkRequestRoundTrip exercises property 7 from spec.md §8: encoding
// a WorkRequest and decoding it yields the original fields bit-for-bit.
func TestWorkRequestRoundTrip(t *testing.T) {
	var pk common.PublicKey
	for i := range pk {
		pk[i] = byte(i)
	}
	req := WorkRequest{Instances: 3, Fee: 1_000_000, PublicKey: pk}

	encoded := encodeWorkRequest(req)
	got, err := decodeWorkRequest(encoded)
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestWorkResponseRoundTrip(t *testing.T) {
	resp := WorkResponse{Proofs: [][]byte{[]byte("proof-a"), {}, []byte("proof-c")}}
	encoded := encodeWorkResponse(resp)
	got, err := decodeWorkResponse(encoded)
	require.NoError(t, err)
	require.Equal(t, resp, got)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello frame")
	require.NoError(t, writeFrame(&buf, payload))

	got, err := readFrame(&buf, maxFrameBytes)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, make([]byte, 100)))

	_, err := readFrame(&buf, 10)
	require.Error(t, err)
}
