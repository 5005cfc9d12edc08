package container

import (
	"errors"
	"fmt"

	"github.com/apfsboot/apfs-checkpoint/internal/device"
)

// ErrNonContiguousDescriptor is returned when the checkpoint-descriptor
// area is B-tree-backed. Resolving that B-tree is a known gap (spec.md §4.4,
// §9): the source treats nx_xp_desc_base as "the physical oid of a B-tree"
// but never implements walking it, and this port preserves that boundary
// rather than speculating about the tree's layout.
var ErrNonContiguousDescriptor = errors.New("container: non-contiguous (B-tree-backed) checkpoint descriptor area is not supported")

// LoadDescriptorArea reads the checkpoint-descriptor ring buffer named by
// sb into a slice of D block-sized slots, each still in raw form.
// Reference: spec.md §4.4.
func LoadDescriptorArea(r device.BlockReader, sb *Superblock) ([][]byte, error) {
	if !sb.DescriptorIsContiguous() {
		return nil, ErrNonContiguousDescriptor
	}

	d := sb.DescriptorBlockCount()
	if d == 0 {
		return nil, fmt.Errorf("container: empty checkpoint descriptor area")
	}

	blob, err := r.ReadBlocks(uint64(sb.Raw.NxXpDescBase), d)
	if err != nil {
		return nil, fmt.Errorf("container: reading %d descriptor block(s) at paddr %d: %w", d, sb.Raw.NxXpDescBase, err)
	}

	blockSize := int(r.BlockSize())
	slots := make([][]byte, d)
	for i := uint32(0); i < d; i++ {
		slots[i] = blob[int(i)*blockSize : int(i+1)*blockSize]
	}
	return slots, nil
}
