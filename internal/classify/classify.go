// Package classify implements the Object Classifier (spec.md §4.3): given a
// raw block buffer, it reports the object kind and storage class encoded in
// its header's type word, without decoding the rest of the block.
package classify

import (
	"encoding/binary"

	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

// StorageClass is the value carved out of a type word by ObjStorageTypeMask.
type StorageClass uint32

const (
	StoragePhysical  StorageClass = StorageClass(types.ObjPhysical)
	StorageVirtual   StorageClass = StorageClass(types.ObjVirtual)
	StorageEphemeral StorageClass = StorageClass(types.ObjEphemeral)
)

func (s StorageClass) String() string {
	switch s {
	case StoragePhysical:
		return "physical"
	case StorageEphemeral:
		return "ephemeral"
	default:
		return "virtual"
	}
}

// Kind is a coarse object-kind classification, matching the registry
// approach of the teacher's StaticObjectTypeResolver
// (internal/middleware/objects/object_type_resolver.go) but limited to the
// kinds the bootstrap pipeline needs to distinguish.
type Kind int

const (
	KindOther Kind = iota
	KindNxSuperblock
	KindCheckpointMap
	KindOmap
	KindBtreeNode
)

func (k Kind) String() string {
	switch k {
	case KindNxSuperblock:
		return "container superblock"
	case KindCheckpointMap:
		return "checkpoint map"
	case KindOmap:
		return "object map"
	case KindBtreeNode:
		return "B-tree node"
	default:
		return "other"
	}
}

// typeWordOffset is the byte offset of obj_phys_t's o_type field.
const typeWordOffset = 24

// TypeWord reads the raw 4-byte type word (low 16 bits type, high 16 bits
// flags) out of a block buffer without further interpretation.
func TypeWord(block []byte) (uint32, bool) {
	if len(block) < typeWordOffset+4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(block[typeWordOffset : typeWordOffset+4]), true
}

// Classify reports the object kind and storage class of block's header.
func Classify(block []byte) (Kind, StorageClass, bool) {
	typeWord, ok := TypeWord(block)
	if !ok {
		return KindOther, 0, false
	}
	storage := StorageClass(typeWord & types.ObjStorageTypeMask)
	switch typeWord & types.ObjectTypeMask {
	case types.ObjectTypeNxSuperblock:
		return KindNxSuperblock, storage, true
	case types.ObjectTypeCheckpointMap:
		return KindCheckpointMap, storage, true
	case types.ObjectTypeOmap:
		return KindOmap, storage, true
	case types.ObjectTypeBtree, types.ObjectTypeBtreeNode:
		return KindBtreeNode, storage, true
	default:
		return KindOther, storage, true
	}
}

// IsNxSuperblock reports whether block's type word names a container
// superblock. Reference: spec.md §4.3.
func IsNxSuperblock(block []byte) bool {
	k, _, ok := Classify(block)
	return ok && k == KindNxSuperblock
}

// IsCheckpointMapPhys reports whether block's type word names a
// checkpoint-map object. Reference: spec.md §4.3.
func IsCheckpointMapPhys(block []byte) bool {
	k, _, ok := Classify(block)
	return ok && k == KindCheckpointMap
}
