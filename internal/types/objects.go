package types

// Objects (pages 10-21)
// Depending on how they're stored, objects have some differences, the most
// important of which is the way an object identifier is resolved to an
// on-disk location.

// OidT is an object identifier. For a physical object its identifier is the
// block address where the object is stored; for an ephemeral object it is
// resolved through a checkpoint map; for a virtual object through an object
// map. Reference: page 12
type OidT uint64

// XidT is a transaction identifier. Transactions are uniquely identified by
// a monotonically increasing number; zero is never valid. Reference: page 12
type XidT uint64

// ObjPhysT is the header present at the start of every object block.
// Reference: page 10
type ObjPhysT struct {
	// OChecksum is the Fletcher-64 checksum of the rest of the block. (page 10)
	OChecksum [MaxCksumSize]byte
	// OOid is the object's identifier. (page 11)
	OOid OidT
	// OXid is the most recent transaction in which the object was modified. (page 11)
	OXid XidT
	// OType holds the object's type in the low 16 bits and flags (including
	// storage class) in the high 16 bits. (page 11)
	OType uint32
	// OSubtype indicates the type of data a container structure holds. (page 11)
	OSubtype uint32
}

const (
	// XidInvalid is never a valid transaction identifier. Reference: page 12
	XidInvalid XidT = 0
	// OidInvalid is never a valid object identifier. Reference: page 13
	OidInvalid OidT = 0
	// OidNxSuperblock is the fixed ephemeral oid of the container superblock. Reference: page 13
	OidNxSuperblock OidT = 1
)

// Object type/flag masks. Reference: pages 13-14
const (
	ObjectTypeMask             uint32 = 0x0000ffff
	ObjectTypeFlagsMask        uint32 = 0xffff0000
	ObjStorageTypeMask         uint32 = 0xc0000000
	ObjectTypeFlagsDefinedMask uint32 = 0xf8000000
)

// Storage-class values carved out of ObjStorageTypeMask. Reference: page 14
const (
	ObjVirtual   uint32 = 0x00000000
	ObjEphemeral uint32 = 0x80000000
	ObjPhysical  uint32 = 0x40000000
)

// MaxCksumSize is the number of bytes used for an object checksum. Reference: page 11
const MaxCksumSize = 8

// Object types relevant to the checkpoint/omap bootstrap path. Reference: pages 14-19
const (
	ObjectTypeNxSuperblock   uint32 = 0x00000001
	ObjectTypeBtree          uint32 = 0x00000002
	ObjectTypeBtreeNode      uint32 = 0x00000003
	ObjectTypeOmap           uint32 = 0x0000000b
	ObjectTypeCheckpointMap  uint32 = 0x0000000c
	ObjectTypeFs             uint32 = 0x0000000d
)
