// Package ephemeral implements the Ephemeral Object Loader (spec.md §4.7):
// it resolves every checkpoint-map entry in an assembled checkpoint into its
// backing ephemeral block, and validates the result.
package ephemeral

import (
	"errors"
	"fmt"

	"github.com/apfsboot/apfs-checkpoint/internal/checksum"
	"github.com/apfsboot/apfs-checkpoint/internal/classify"
	"github.com/apfsboot/apfs-checkpoint/internal/container"
	"github.com/apfsboot/apfs-checkpoint/internal/device"
	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

// ErrInvalidChecksum is wrapped into the returned error when one of the
// loaded ephemeral buffers fails validation. The Orchestrator uses
// errors.Is against this sentinel to decide whether a failure is the kind
// that should trigger a rewind (spec.md §4.7, §4.9 S5).
var ErrInvalidChecksum = errors.New("ephemeral: checksum validation failed")

// Object is one ephemeral block paired with the checkpoint-map entry that
// located it, preserving document order (the order cpm entries were
// encountered while walking the checkpoint).
type Object struct {
	Mapping types.CheckpointMappingT
	Block   []byte
}

// Warner receives non-fatal diagnostics, matching container.Warner. Load
// uses it to surface checkpoint-map chaining (a checkpoint-map block that
// doesn't carry CheckpointMapLast implies more mapping blocks are expected
// later in the descriptor ring, per Apple's documented chaining behavior).
type Warner interface {
	Warnf(format string, args ...any)
}

// Load walks xp (the assembled checkpoint, spec.md §4.6) and reads every
// ephemeral block named by a checkpoint-map entry. It does not validate
// checksums itself; call Validate on the result, mirroring the source's
// separate load/validate steps so the Orchestrator can report "FAILED" for
// the validation phase specifically (spec.md §8 scenario 6).
//
// Invariant enforced here: the number of blocks read equals the sum of
// cpm_count across every checkpoint-map slot (spec.md P4; §9 flags the
// source's `assert(num_read = xp_obj_len)` as an assignment bug whose
// intent was equality — this is that equality check).
func Load(r device.BlockReader, xp [][]byte, warn Warner) ([]Object, error) {
	var mappings []types.CheckpointMappingT
	for i, block := range xp {
		if !classify.IsCheckpointMapPhys(block) {
			continue
		}
		cm, err := container.DecodeCheckpointMap(block)
		if err != nil {
			return nil, fmt.Errorf("ephemeral: decoding checkpoint-map at xp slot %d: %w", i, err)
		}
		if !container.IsLast(cm) {
			warn.Warnf("checkpoint-map at xp slot %d does not carry CheckpointMapLast, expecting more mapping blocks", i)
		}
		mappings = append(mappings, cm.CpmMap...)
	}

	expected := len(mappings)
	objects := make([]Object, 0, expected)
	for _, m := range mappings {
		block, err := r.ReadBlocks(uint64(m.CpmPaddr), 1)
		if err != nil {
			return nil, fmt.Errorf("ephemeral: reading block at paddr %d for oid %d: %w", m.CpmPaddr, m.CpmOid, err)
		}
		objects = append(objects, Object{Mapping: m, Block: block})
	}

	if len(objects) != expected {
		return nil, fmt.Errorf("ephemeral: num_read (%d) != expected count (%d)", len(objects), expected)
	}
	return objects, nil
}

// Validate checks is_cksum_valid on every loaded object in document order
// and returns an error naming the oid and paddr of the first one that fails. Per
// spec.md §4.7, the first failure is what matters: the caller does not need
// to know about later failures because the whole batch is about to be
// discarded and the Orchestrator will rewind.
func Validate(objects []Object) error {
	for i, obj := range objects {
		if !checksum.IsValid(obj.Block) {
			return fmt.Errorf("%w: ephemeral oid %d (checkpoint-map slot entry %d, paddr %d)",
				ErrInvalidChecksum, obj.Mapping.CpmOid, i, obj.Mapping.CpmPaddr)
		}
	}
	return nil
}
