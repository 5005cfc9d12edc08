// Package omap implements the Object-Map Loader (spec.md §4.8): it reads
// the container's object map and the physical B-tree root it points at.
package omap

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/apfsboot/apfs-checkpoint/internal/checksum"
	"github.com/apfsboot/apfs-checkpoint/internal/device"
	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

// ErrInvalidChecksum is returned when the omap block itself fails
// validation. Like ephemeral.ErrInvalidChecksum, the Orchestrator matches
// on this to decide whether to rewind (spec.md §4.9 S6).
var ErrInvalidChecksum = errors.New("omap: checksum validation failed")

// ErrNonPhysicalTree is returned when the omap's tree is not of physical
// storage class. Per spec.md §4.8 this is a terminal "unimplemented"
// condition, not something a rewind can fix: a different superblock still
// names an omap of the same on-disk design.
var ErrNonPhysicalTree = errors.New("omap: tree storage class is not physical")

const omapHeaderSize = 32 + 4 + 4 + 4 + 4 + 8 + 8 + 8 + 8 + 8 // 88 bytes

func decodeObjHeader(block []byte) types.ObjPhysT {
	le := binary.LittleEndian
	var h types.ObjPhysT
	copy(h.OChecksum[:], block[0:8])
	h.OOid = types.OidT(le.Uint64(block[8:16]))
	h.OXid = types.XidT(le.Uint64(block[16:24]))
	h.OType = le.Uint32(block[24:28])
	h.OSubtype = le.Uint32(block[28:32])
	return h
}

// Decode parses an object-map block. Reference: spec.md §6's layout line for
// "Object map".
func Decode(block []byte) (*types.OmapPhysT, error) {
	if len(block) < omapHeaderSize {
		return nil, fmt.Errorf("omap: block too small: %d bytes, need %d", len(block), omapHeaderSize)
	}
	le := binary.LittleEndian

	om := &types.OmapPhysT{}
	om.OmO = decodeObjHeader(block)
	om.OmFlags = le.Uint32(block[32:36])
	om.OmSnapCount = le.Uint32(block[36:40])
	om.OmTreeType = le.Uint32(block[40:44])
	om.OmSnapshotTreeType = le.Uint32(block[44:48])
	om.OmTreeOid = types.OidT(le.Uint64(block[48:56]))
	om.OmSnapshotTreeOid = types.OidT(le.Uint64(block[56:64]))
	om.OmMostRecentSnap = types.XidT(le.Uint64(block[64:72]))
	om.OmPendingRevertMin = types.XidT(le.Uint64(block[72:80]))
	om.OmPendingRevertMax = types.XidT(le.Uint64(block[80:88]))
	return om, nil
}

// Root is the result of a successful object-map load: the decoded omap
// object plus its physical B-tree root block.
type Root struct {
	Omap     *types.OmapPhysT
	RootNode []byte
}

// Warner receives non-fatal diagnostics, matching container.Warner.
type Warner interface {
	Warnf(format string, args ...any)
}

// Load reads the object map named by nxsb's nx_omap_oid and, if its tree is
// physically addressable, the B-tree root it points at. Reference:
// spec.md §4.8.
func Load(r device.BlockReader, omapOid types.OidT, warn Warner) (*Root, error) {
	omapBlock, err := r.ReadBlocks(uint64(omapOid), 1)
	if err != nil {
		return nil, fmt.Errorf("omap: reading omap block at paddr %d: %w", omapOid, err)
	}
	if !checksum.IsValid(omapBlock) {
		return nil, fmt.Errorf("%w: omap block at paddr %d", ErrInvalidChecksum, omapOid)
	}

	om, err := Decode(omapBlock)
	if err != nil {
		return nil, fmt.Errorf("omap: decoding omap block: %w", err)
	}

	if om.OmTreeType&types.ObjStorageTypeMask != types.ObjPhysical {
		return nil, fmt.Errorf("%w: om_tree_type 0x%08X", ErrNonPhysicalTree, om.OmTreeType)
	}

	rootBlock, err := r.ReadBlocks(uint64(om.OmTreeOid), 1)
	if err != nil {
		return nil, fmt.Errorf("omap: reading B-tree root at paddr %d: %w", om.OmTreeOid, err)
	}
	if !checksum.IsValid(rootBlock) {
		warn.Warnf("omap B-tree root at paddr %d: checksum invalid, presenting anyway", om.OmTreeOid)
	}

	return &Root{Omap: om, RootNode: rootBlock}, nil
}
