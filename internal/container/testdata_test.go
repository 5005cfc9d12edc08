package container

import (
	"encoding/binary"

	"github.com/apfsboot/apfs-checkpoint/internal/checksum"
	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

// buildSuperblockBlock encodes a minimal, checksum-valid container
// superblock into a block of the given size. Only the fields exercised by
// the Selector/Assembler/Decoder tests are populated; everything else is
// zero, which decodes cleanly because DecodeSuperblock never rejects zero
// fields on its own (the caller is responsible for the validity checks
// spec.md §7 describes).
func buildSuperblockBlock(blockSize int, xid types.XidT, descIndex, descLen uint32) []byte {
	block := make([]byte, blockSize)
	le := binary.LittleEndian

	le.PutUint64(block[8:16], uint64(types.OidNxSuperblock))
	le.PutUint64(block[16:24], uint64(xid))
	le.PutUint32(block[24:28], types.ObjectTypeNxSuperblock)

	le.PutUint32(block[32:36], types.NxMagic)
	le.PutUint32(block[36:40], uint32(blockSize))
	le.PutUint64(block[40:48], 1024)
	le.PutUint32(block[104:108], 8) // NxXpDescBlocks
	le.PutUint32(block[136:140], descIndex)
	le.PutUint32(block[140:144], descLen)
	le.PutUint64(block[160:168], 42) // NxOmapOid

	sum, err := checksum.Compute(block)
	if err != nil {
		panic(err)
	}
	copy(block[:8], sum[:])
	return block
}

// buildCheckpointMapBlock encodes a checksum-valid checkpoint-map block
// carrying the given ephemeral mappings.
func buildCheckpointMapBlock(blockSize int, mappings []types.CheckpointMappingT, last bool) []byte {
	block := make([]byte, blockSize)
	le := binary.LittleEndian

	le.PutUint32(block[24:28], types.ObjectTypeCheckpointMap)
	flags := uint32(0)
	if last {
		flags = types.CheckpointMapLast
	}
	le.PutUint32(block[32:36], flags)
	le.PutUint32(block[36:40], uint32(len(mappings)))

	for i, m := range mappings {
		off := 40 + i*40
		le.PutUint32(block[off:off+4], m.CpmType)
		le.PutUint32(block[off+4:off+8], m.CpmSubtype)
		le.PutUint32(block[off+8:off+12], m.CpmSize)
		le.PutUint32(block[off+12:off+16], m.CpmPad)
		le.PutUint64(block[off+16:off+24], uint64(m.CpmFsOid))
		le.PutUint64(block[off+24:off+32], uint64(m.CpmOid))
		le.PutUint64(block[off+32:off+40], uint64(m.CpmPaddr))
	}

	sum, err := checksum.Compute(block)
	if err != nil {
		panic(err)
	}
	copy(block[:8], sum[:])
	return block
}

func corruptChecksum(block []byte) []byte {
	out := append([]byte(nil), block...)
	out[0] ^= 0xFF
	return out
}

type nullWarner struct{ warnings []string }

func (n *nullWarner) Warnf(format string, args ...any) {
	n.warnings = append(n.warnings, format)
}
