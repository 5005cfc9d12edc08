package types

// Object Maps (pages 44-50)
// An object map uses a B-tree to map virtual object identifiers and
// transaction identifiers to the physical addresses where objects are
// stored. Only the fields needed to locate and validate the B-tree root are
// modeled here; traversing the tree itself is out of scope (spec.md §1).

// OmapPhysT is an object map. Reference: page 44
type OmapPhysT struct {
	// OmO is the object's header. (page 45)
	OmO ObjPhysT
	// OmFlags holds the object map's flags. (page 45)
	OmFlags uint32
	// OmSnapCount is the number of snapshots this object map tracks. (page 45)
	OmSnapCount uint32
	// OmTreeType is the storage type of the object-mapping tree, whose low
	// 16 bits give its object type and whose storage-class bits (masked by
	// ObjStorageTypeMask) this bootstrap checks before following OmTreeOid. (page 45)
	OmTreeType uint32
	// OmSnapshotTreeType mirrors OmTreeType for the snapshot tree. (page 45)
	OmSnapshotTreeType uint32
	// OmTreeOid is the oid of the object-mapping tree's root node. (page 45)
	OmTreeOid OidT
	// OmSnapshotTreeOid is the oid of the snapshot tree's root node. (page 45)
	OmSnapshotTreeOid OidT
	// OmMostRecentSnap is the xid of the most recent snapshot recorded here. (page 45)
	OmMostRecentSnap XidT
	// OmPendingRevertMin is the smallest xid of an in-progress revert. (page 46)
	OmPendingRevertMin XidT
	// OmPendingRevertMax is the largest xid of an in-progress revert. (page 46)
	OmPendingRevertMax XidT
}
