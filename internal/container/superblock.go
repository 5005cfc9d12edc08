// Package container implements the Superblock Decoder, Checkpoint-Descriptor
// Loader, Checkpoint Selector, and Checkpoint Assembler (spec.md §4.4-4.6).
package container

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

// superblockEncodedSize is the byte length of nx_superblock_t decoded by
// DecodeSuperblock, from the object header through NxFusionWbc.
const superblockEncodedSize = 1384

// Superblock is the decoded form of a container superblock, carrying a few
// fields (UUIDs) as richer Go types than their raw on-disk encoding.
type Superblock struct {
	Raw types.NxSuperblockT

	// UUID and FusionUUID are Raw.NxUuid / Raw.NxFusionUuid parsed through
	// google/uuid, giving callers a String()-able value for diagnostics
	// instead of a bare [16]byte. FusionUUID is the zero UUID for
	// non-Fusion containers.
	UUID       uuid.UUID
	FusionUUID uuid.UUID
}

// DecodeSuperblock parses a container superblock out of a raw block buffer.
// It does not validate the checksum or magic; callers run those checks
// separately per spec.md §7's block-0 leniency policy.
func DecodeSuperblock(block []byte) (*Superblock, error) {
	if len(block) < superblockEncodedSize {
		return nil, fmt.Errorf("container: block too small for superblock: %d bytes, need %d", len(block), superblockEncodedSize)
	}
	le := binary.LittleEndian

	var sb types.NxSuperblockT
	sb.NxO = decodeObjHeader(block)

	sb.NxMagic = le.Uint32(block[32:36])
	sb.NxBlockSize = le.Uint32(block[36:40])
	sb.NxBlockCount = le.Uint64(block[40:48])
	sb.NxFeatures = le.Uint64(block[48:56])
	sb.NxReadonlyCompatibleFeatures = le.Uint64(block[56:64])
	sb.NxIncompatibleFeatures = le.Uint64(block[64:72])
	copy(sb.NxUuid[:], block[72:88])
	sb.NxNextOid = types.OidT(le.Uint64(block[88:96]))
	sb.NxNextXid = types.XidT(le.Uint64(block[96:104]))
	sb.NxXpDescBlocks = le.Uint32(block[104:108])
	sb.NxXpDataBlocks = le.Uint32(block[108:112])
	sb.NxXpDescBase = types.Paddr(le.Uint64(block[112:120]))
	sb.NxXpDataBase = types.Paddr(le.Uint64(block[120:128]))
	sb.NxXpDescNext = le.Uint32(block[128:132])
	sb.NxXpDataNext = le.Uint32(block[132:136])
	sb.NxXpDescIndex = le.Uint32(block[136:140])
	sb.NxXpDescLen = le.Uint32(block[140:144])
	sb.NxXpDataIndex = le.Uint32(block[144:148])
	sb.NxXpDataLen = le.Uint32(block[148:152])
	sb.NxSpacemanOid = types.OidT(le.Uint64(block[152:160]))
	sb.NxOmapOid = types.OidT(le.Uint64(block[160:168]))
	sb.NxReaperOid = types.OidT(le.Uint64(block[168:176]))
	sb.NxTestType = le.Uint32(block[176:180])
	sb.NxMaxFileSystems = le.Uint32(block[180:184])

	offset := 184
	for i := 0; i < types.NxMaxFileSystems; i++ {
		sb.NxFsOid[i] = types.OidT(le.Uint64(block[offset : offset+8]))
		offset += 8
	}
	for i := 0; i < types.NxNumCounters; i++ {
		sb.NxCounters[i] = le.Uint64(block[offset : offset+8])
		offset += 8
	}

	sb.NxBlockedOutPrange = decodePrange(block[offset:])
	offset += 16
	sb.NxEvictMappingTreeOid = types.OidT(le.Uint64(block[offset : offset+8]))
	offset += 8
	sb.NxFlags = le.Uint64(block[offset : offset+8])
	offset += 8
	sb.NxEfiJumpstart = types.Paddr(le.Uint64(block[offset : offset+8]))
	offset += 8
	copy(sb.NxFusionUuid[:], block[offset:offset+16])
	offset += 16
	sb.NxKeylocker = decodePrange(block[offset:])
	offset += 16
	for i := 0; i < types.NxEphInfoCount; i++ {
		sb.NxEphemeralInfo[i] = le.Uint64(block[offset : offset+8])
		offset += 8
	}
	sb.NxTestOid = types.OidT(le.Uint64(block[offset : offset+8]))
	offset += 8
	sb.NxFusionMtOid = types.OidT(le.Uint64(block[offset : offset+8]))
	offset += 8
	sb.NxFusionWbcOid = types.OidT(le.Uint64(block[offset : offset+8]))
	offset += 8
	sb.NxFusionWbc = decodePrange(block[offset:])

	parsedUUID, err := uuid.FromBytes(sb.NxUuid[:])
	if err != nil {
		return nil, fmt.Errorf("container: decoding container uuid: %w", err)
	}
	fusionUUID, err := uuid.FromBytes(sb.NxFusionUuid[:])
	if err != nil {
		return nil, fmt.Errorf("container: decoding fusion uuid: %w", err)
	}

	return &Superblock{Raw: sb, UUID: parsedUUID, FusionUUID: fusionUUID}, nil
}

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

func decodePrange(b []byte) types.Prange {
	le := binary.LittleEndian
	return types.Prange{
		PrStartPaddr: types.Paddr(le.Uint64(b[0:8])),
		PrBlockCount: le.Uint64(b[8:16]),
	}
}

// IsFusion reports whether the superblock advertises Fusion-drive support,
// either through the incompatible-feature bit or a non-zero Fusion UUID.
// Recognizing presence is explicitly in scope even though decoding
// Fusion-specific structures is not (spec.md §1).
func (sb *Superblock) IsFusion() bool {
	return sb.Raw.NxIncompatibleFeatures&types.NxIncompatFusion != 0 || sb.FusionUUID != uuid.Nil
}

// DescriptorBlockCount returns nx_xp_desc_blocks with its non-contiguous
// flag bit masked off.
func (sb *Superblock) DescriptorBlockCount() uint32 {
	return sb.Raw.NxXpDescBlocks & types.NxXpDescBlocksMask
}

// DescriptorIsContiguous reports whether the checkpoint-descriptor area is a
// plain ring buffer (true) or B-tree-backed (false). Reference: spec.md §4.4.
func (sb *Superblock) DescriptorIsContiguous() bool {
	return sb.Raw.NxXpDescBlocks&types.NxXpDescBlocksFlag == 0
}
