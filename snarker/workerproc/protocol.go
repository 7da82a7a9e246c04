// Package workerproc supervises the external proof-producing subprocess
// described in spec §4.3: it owns the child's lifecycle, frames the
// stdin/stdout binary protocol, and exposes submit/cancel/kill. The wire
// framing is a hand-rolled length-prefixed binary format over the
// child's stdin/stdout pipes.
package workerproc

import (
	"encoding/binary"
	"fmt"
	"io"

	"snarker-node/common"
)

// WorkRequest is sent parent -> child, bit-exact with spec §6: a
// length-prefixed structure carrying (instances, fee, public_key).
type WorkRequest struct {
	Instances uint32
	Fee       uint64
	PublicKey common.PublicKey
}

// WorkResponse is sent child -> parent: the produced proofs.
type WorkResponse struct {
	Proofs [][]byte
}

// writeFrame writes an 8-byte little-endian length L followed by L bytes.
func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readFrame reads one length-prefixed frame. maxFrame bounds the length to
// guard against a misbehaving child advertising an unreasonable size
// (spec §4.3: "frame-length overflow" funnels to Failed/BinprotError).
func readFrame(r io.Reader, maxFrame uint64) ([]byte, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint64(lenBuf[:])
	if n > maxFrame {
		return nil, fmt.Errorf("workerproc: frame length %d exceeds max %d", n, maxFrame)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// maxFrameBytes bounds a single frame to 256 MiB; proofs are large but
// bounded in practice.
const maxFrameBytes = 256 << 20

// encodeWorkRequest serializes a WorkRequest into its wire form:
// instances(4) | fee(8) | pubkey(33), all little-endian.
func encodeWorkRequest(req WorkRequest) []byte {
	buf := make([]byte, 4+8+common.PublicKeyLength)
	binary.LittleEndian.PutUint32(buf[0:4], req.Instances)
	binary.LittleEndian.PutUint64(buf[4:12], req.Fee)
	copy(buf[12:], req.PublicKey[:])
	return buf
}

func decodeWorkResponse(b []byte) (WorkResponse, error) {
	if len(b) < 4 {
		return WorkResponse{}, fmt.Errorf("workerproc: short work response (%d bytes)", len(b))
	}
	count := binary.LittleEndian.Uint32(b[0:4])
	off := 4
	var resp WorkResponse
	for i := uint32(0); i < count; i++ {
		if off+4 > len(b) {
			return WorkResponse{}, fmt.Errorf("workerproc: truncated proof %d header", i)
		}
		plen := binary.LittleEndian.Uint32(b[off : off+4])
		off += 4
		if uint64(off)+uint64(plen) > uint64(len(b)) {
			return WorkResponse{}, fmt.Errorf("workerproc: truncated proof %d body", i)
		}
		proof := make([]byte, plen)
		copy(proof, b[off:off+int(plen)])
		resp.Proofs = append(resp.Proofs, proof)
		off += int(plen)
	}
	return resp, nil
}

func encodeWorkResponse(resp WorkResponse) []byte {
	size := 4
	for _, p := range resp.Proofs {
		size += 4 + len(p)
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(resp.Proofs)))
	off := 4
	for _, p := range resp.Proofs {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(p)))
		off += 4
		copy(buf[off:], p)
		off += len(p)
	}
	return buf
}

func decodeWorkRequest(b []byte) (WorkRequest, error) {
	if len(b) != 4+8+common.PublicKeyLength {
		return WorkRequest{}, fmt.Errorf("workerproc: bad work request length %d", len(b))
	}
	var req WorkRequest
	req.Instances = binary.LittleEndian.Uint32(b[0:4])
	req.Fee = binary.LittleEndian.Uint64(b[4:12])
	copy(req.PublicKey[:], b[12:])
	return req, nil
}
