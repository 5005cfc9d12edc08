package types

// Container (pages 26-43)
// The container superblock and the checkpoint-descriptor structures used to
// locate and reconstruct it.

// NxSuperblockT is a container superblock (nx_superblock_t). Reference: page 27
type NxSuperblockT struct {
	// NxO is the object's header. (page 27)
	NxO ObjPhysT
	// NxMagic must equal NxMagic for a well-formed superblock. (page 27)
	NxMagic uint32
	// NxBlockSize is the logical block size used throughout the container. (page 29)
	NxBlockSize uint32
	// NxBlockCount is the total number of logical blocks in the container. (page 29)
	NxBlockCount uint64
	// NxFeatures is a bit field of optional features in use. (page 29)
	NxFeatures uint64
	// NxReadonlyCompatibleFeatures is a bit field of read-only-compatible features. (page 29)
	NxReadonlyCompatibleFeatures uint64
	// NxIncompatibleFeatures is a bit field of backward-incompatible features. (page 29)
	NxIncompatibleFeatures uint64
	// NxUuid is the container's UUID, stored as raw bytes on disk. (page 29)
	NxUuid UUID
	// NxNextOid is the next oid to assign to a new ephemeral or virtual object. (page 30)
	NxNextOid OidT
	// NxNextXid is the next transaction identifier to be used. (page 30)
	NxNextXid XidT
	// NxXpDescBlocks is the checkpoint-descriptor area's block count; its
	// high bit flags a non-contiguous, B-tree-backed layout. (page 30)
	NxXpDescBlocks uint32
	// NxXpDataBlocks mirrors NxXpDescBlocks for the checkpoint-data area. (page 30)
	NxXpDataBlocks uint32
	// NxXpDescBase is the descriptor area's base paddr, or (if the high bit
	// of NxXpDescBlocks is set) the physical oid of a locator B-tree. (page 30)
	NxXpDescBase Paddr
	// NxXpDataBase mirrors NxXpDescBase for the checkpoint-data area. (page 30)
	NxXpDataBase Paddr
	// NxXpDescNext is the next index to use in the descriptor area. (page 31)
	NxXpDescNext uint32
	// NxXpDataNext is the next index to use in the data area. (page 31)
	NxXpDataNext uint32
	// NxXpDescIndex is the index of the checkpoint this superblock belongs to. (page 31)
	NxXpDescIndex uint32
	// NxXpDescLen is that checkpoint's length, in descriptor-area blocks. (page 31)
	NxXpDescLen uint32
	// NxXpDataIndex is the index of the first valid item in the data area. (page 31)
	NxXpDataIndex uint32
	// NxXpDataLen is the checkpoint's length in data-area blocks. (page 31)
	NxXpDataLen uint32
	// NxSpacemanOid is the ephemeral oid of the space manager. (page 32)
	NxSpacemanOid OidT
	// NxOmapOid is the physical oid of the container's object map. (page 32)
	NxOmapOid OidT
	// NxReaperOid is the ephemeral oid of the reaper. (page 32)
	NxReaperOid OidT
	// NxTestType is reserved for testing. (page 32)
	NxTestType uint32
	// NxMaxFileSystems bounds the number of populated entries in NxFsOid. (page 32)
	NxMaxFileSystems uint32
	// NxFsOid holds the volumes' virtual oids, zero-terminated. (page 32)
	NxFsOid [NxMaxFileSystems]OidT
	// NxCounters holds development/debugging counters. (page 33)
	NxCounters [NxNumCounters]uint64
	// NxBlockedOutPrange is a range excluded from allocation. (page 33)
	NxBlockedOutPrange Prange
	// NxEvictMappingTreeOid tracks objects being moved out of blocked-out storage. (page 33)
	NxEvictMappingTreeOid OidT
	// NxFlags holds other container flags. (page 33)
	NxFlags uint64
	// NxEfiJumpstart is the paddr of the EFI driver data extents object. (page 33)
	NxEfiJumpstart Paddr
	// NxFusionUuid is zero for non-Fusion containers. (page 34)
	NxFusionUuid UUID
	// NxKeylocker locates the container's keybag. (page 34)
	NxKeylocker Prange
	// NxEphemeralInfo holds fields used to manage ephemeral data. (page 34)
	NxEphemeralInfo [NxEphInfoCount]uint64
	// NxTestOid is reserved for testing. (page 34)
	NxTestOid OidT
	// NxFusionMtOid is the Fusion middle tree's physical oid, or zero. (page 34)
	NxFusionMtOid OidT
	// NxFusionWbcOid is the Fusion write-back cache's ephemeral oid, or zero. (page 35)
	NxFusionWbcOid OidT
	// NxFusionWbc is the Fusion write-back cache's block range. (page 35)
	NxFusionWbc Prange
}

// NxMagic is the nx_magic value, 'NXSB' read as a little-endian uint32.
// Reference: page 35
const NxMagic uint32 = 'N' | 'X'<<8 | 'S'<<16 | 'B'<<24

const (
	// NxMaxFileSystems is the maximum number of volumes a container can hold. Reference: page 35
	NxMaxFileSystems = 100
	// NxEphInfoCount is the length of NxEphemeralInfo. Reference: page 35
	NxEphInfoCount = 4
	// NxNumCounters is the length of NxCounters. Reference: page 33
	NxNumCounters = 32
)

// NxXpDescBlocksMask isolates the block count from the high-bit
// non-contiguous flag in nx_xp_desc_blocks / nx_xp_data_blocks.
const NxXpDescBlocksMask uint32 = 0x7fffffff

// NxXpDescBlocksFlag, when set in nx_xp_desc_blocks, means nx_xp_desc_base
// names a B-tree's physical oid rather than the area's first block.
const NxXpDescBlocksFlag uint32 = 0x80000000

// Incompatible-feature bits relevant to presence reporting (§S7 of the
// bootstrap, which recognizes but does not decode Fusion/encrypted state).
// Reference: page 37
const (
	NxIncompatVersion2 uint64 = 0x00000002
	NxIncompatFusion   uint64 = 0x00000100
)

// CheckpointMappingT maps one ephemeral oid to its physical location within
// the current checkpoint. Reference: page 40
type CheckpointMappingT struct {
	// CpmType mirrors o_type of the object the mapping describes. (page 40)
	CpmType uint32
	// CpmSubtype mirrors o_subtype of the object the mapping describes. (page 41)
	CpmSubtype uint32
	// CpmSize is the object's size in bytes. (page 41)
	CpmSize uint32
	// CpmPad is reserved and must be preserved, not interpreted. (page 41)
	CpmPad uint32
	// CpmFsOid is the virtual oid of the volume the object belongs to, or zero. (page 41)
	CpmFsOid OidT
	// CpmOid is the ephemeral oid being mapped. (page 41)
	CpmOid OidT
	// CpmPaddr is the physical block address the object is currently stored at. (page 41)
	CpmPaddr Paddr
}

// CheckpointMapPhysT is a checkpoint-mapping block. Reference: page 41
type CheckpointMapPhysT struct {
	// CpmO is the object's header. (page 42)
	CpmO ObjPhysT
	// CpmFlags carries CheckpointMapLast among other bits. (page 42)
	CpmFlags uint32
	// CpmCount is the number of entries in CpmMap. (page 42)
	CpmCount uint32
	// CpmMap holds the mappings themselves, decoded separately from the
	// fixed-size header above.
	CpmMap []CheckpointMappingT
}

// CheckpointMapLast flags the last checkpoint-mapping block of a checkpoint.
// Reference: page 42
const CheckpointMapLast uint32 = 0x00000001
