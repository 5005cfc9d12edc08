package container

import (
	"encoding/binary"
	"fmt"

	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

const (
	checkpointMapHeaderSize  = 40 // ObjPhysT (32) + CpmFlags (4) + CpmCount (4)
	checkpointMappingEncoded = 40
)

// DecodeCheckpointMap parses a checkpoint-mapping block, including its
// array of (ephemeral oid, physical address, type, subtype, size) entries.
// Reference: spec.md §3 "Checkpoint Map", §6 on-disk layout.
func DecodeCheckpointMap(block []byte) (*types.CheckpointMapPhysT, error) {
	if len(block) < checkpointMapHeaderSize {
		return nil, fmt.Errorf("container: block too small for checkpoint map: %d bytes", len(block))
	}
	le := binary.LittleEndian

	cm := &types.CheckpointMapPhysT{}
	cm.CpmO = decodeObjHeader(block)
	cm.CpmFlags = le.Uint32(block[32:36])
	cm.CpmCount = le.Uint32(block[36:40])

	need := checkpointMapHeaderSize + int(cm.CpmCount)*checkpointMappingEncoded
	if len(block) < need {
		return nil, fmt.Errorf("container: block too small for %d checkpoint mappings: have %d bytes, need %d", cm.CpmCount, len(block), need)
	}

	cm.CpmMap = make([]types.CheckpointMappingT, cm.CpmCount)
	for i := uint32(0); i < cm.CpmCount; i++ {
		off := checkpointMapHeaderSize + int(i)*checkpointMappingEncoded
		entry := block[off : off+checkpointMappingEncoded]
		cm.CpmMap[i] = types.CheckpointMappingT{
			CpmType:    le.Uint32(entry[0:4]),
			CpmSubtype: le.Uint32(entry[4:8]),
			CpmSize:    le.Uint32(entry[8:12]),
			CpmPad:     le.Uint32(entry[12:16]),
			CpmFsOid:   types.OidT(le.Uint64(entry[16:24])),
			CpmOid:     types.OidT(le.Uint64(entry[24:32])),
			CpmPaddr:   types.Paddr(le.Uint64(entry[32:40])),
		}
	}
	return cm, nil
}

// IsLast reports whether cm is the final checkpoint-mapping block of its
// checkpoint (types.CheckpointMapLast). A checkpoint whose mapping blocks
// never carry this flag is itself malformed, but detecting that is left to
// the caller since it requires seeing every mapping block in the checkpoint.
func IsLast(cm *types.CheckpointMapPhysT) bool {
	return cm.CpmFlags&types.CheckpointMapLast != 0
}
