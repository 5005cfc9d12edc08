package bootstrap

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apfsboot/apfs-checkpoint/internal/checksum"
	"github.com/apfsboot/apfs-checkpoint/internal/diag"
	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

const testBlockSize = 4096

// superblockFields collects everything a synthetic superblock block needs,
// mirroring container.DecodeSuperblock's field set without depending on
// container's unexported test helpers.
type superblockFields struct {
	xid          types.XidT
	descBase     types.Paddr
	descBlocks   uint32
	descIndex    uint32
	descLen      uint32
	omapOid      types.OidT
	fsOids       []types.OidT
}

func stampChecksum(block []byte) {
	sum, err := checksum.Compute(block)
	if err != nil {
		panic(err)
	}
	copy(block[0:8], sum[:])
}

func buildSuperblock(blockSize int, f superblockFields) []byte {
	block := make([]byte, blockSize)
	le := binary.LittleEndian

	le.PutUint64(block[8:16], uint64(types.OidNxSuperblock))
	le.PutUint64(block[16:24], uint64(f.xid))
	le.PutUint32(block[24:28], types.ObjectTypeNxSuperblock)

	le.PutUint32(block[32:36], types.NxMagic)
	le.PutUint32(block[36:40], uint32(blockSize))
	le.PutUint32(block[104:108], f.descBlocks)
	le.PutUint64(block[112:120], uint64(f.descBase))
	le.PutUint32(block[136:140], f.descIndex)
	le.PutUint32(block[140:144], f.descLen)
	le.PutUint64(block[160:168], uint64(f.omapOid))

	offset := 184
	for i := 0; i < types.NxMaxFileSystems; i++ {
		if i < len(f.fsOids) {
			le.PutUint64(block[offset:offset+8], uint64(f.fsOids[i]))
		}
		offset += 8
	}

	stampChecksum(block)
	return block
}

func buildCheckpointMap(blockSize int, mappings []types.CheckpointMappingT, last bool) []byte {
	block := make([]byte, blockSize)
	le := binary.LittleEndian

	le.PutUint32(block[24:28], types.ObjectTypeCheckpointMap)
	if last {
		le.PutUint32(block[32:36], types.CheckpointMapLast)
	}
	le.PutUint32(block[36:40], uint32(len(mappings)))

	for i, m := range mappings {
		off := 40 + i*40
		le.PutUint32(block[off+0:off+4], m.CpmType)
		le.PutUint64(block[off+24:off+32], uint64(m.CpmOid))
		le.PutUint64(block[off+32:off+40], uint64(m.CpmPaddr))
	}

	stampChecksum(block)
	return block
}

func buildOmap(blockSize int, treeType uint32, treeOid types.OidT) []byte {
	block := make([]byte, blockSize)
	le := binary.LittleEndian
	le.PutUint32(block[24:28], types.ObjectTypeOmap)
	le.PutUint32(block[40:44], treeType)
	le.PutUint64(block[48:56], uint64(treeOid))
	stampChecksum(block)
	return block
}

func wellFormedBlock(blockSize int) []byte {
	block := make([]byte, blockSize)
	stampChecksum(block)
	return block
}

// writeImage concatenates blocks (already block-sized) into a temp file and
// returns its path.
func writeImage(t *testing.T, blocks ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "container.img")
	var data []byte
	for _, b := range blocks {
		data = append(data, b...)
	}
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func newTestOrchestrator() *Orchestrator {
	cfg := &Config{ProvisionalBlockSize: testBlockSize, AutoDetectAPFS: false}
	return New(cfg, diag.New(os.Stdout, os.Stdout))
}

// buildHappyPathImage lays out: block 0 (stale copy of the superblock),
// descriptor area at blocks [1,3) holding a checkpoint-map and the live
// superblock, an ephemeral block, an omap block, and its B-tree root.
func buildHappyPathImage(t *testing.T) (path string, ephemeralPaddr, omapPaddr, rootPaddr types.Paddr) {
	ephemeralPaddr, omapPaddr, rootPaddr = 3, 4, 5

	sb := superblockFields{
		xid:        100,
		descBase:   1,
		descBlocks: 2,
		descIndex:  0,
		descLen:    2,
		omapOid:    types.OidT(omapPaddr),
		fsOids:     []types.OidT{42},
	}
	cpm := buildCheckpointMap(testBlockSize, []types.CheckpointMappingT{
		{CpmOid: 900, CpmPaddr: ephemeralPaddr},
	}, true)
	liveSB := buildSuperblock(testBlockSize, sb)

	block0 := buildSuperblock(testBlockSize, sb)
	ephemeralBlock := wellFormedBlock(testBlockSize)
	omapBlock := buildOmap(testBlockSize, types.ObjectTypeBtree|types.ObjPhysical, types.OidT(rootPaddr))
	rootBlock := wellFormedBlock(testBlockSize)

	path = writeImage(t, block0, cpm, liveSB, ephemeralBlock, omapBlock, rootBlock)
	return path, ephemeralPaddr, omapPaddr, rootPaddr
}

func TestRun_HappyPath(t *testing.T) {
	path, _, _, _ := buildHappyPathImage(t)

	report, err := newTestOrchestrator().Run(path)
	require.NoError(t, err)
	require.NotNil(t, report)
	require.EqualValues(t, 100, report.Xid)
	require.Equal(t, 1, report.CheckpointIndex)
	require.Equal(t, 1, report.EphemeralCount)
	require.Equal(t, []types.OidT{42}, report.VolumeOids)
}

func TestRun_NonContiguousDescriptorIsUnimplemented(t *testing.T) {
	sb := superblockFields{
		xid:        1,
		descBase:   1,
		descBlocks: types.NxXpDescBlocksFlag | 2,
	}
	block0 := buildSuperblock(testBlockSize, sb)
	path := writeImage(t, block0, wellFormedBlock(testBlockSize), wellFormedBlock(testBlockSize))

	_, err := newTestOrchestrator().Run(path)
	require.Error(t, err)
	var bootErr *Error
	require.ErrorAs(t, err, &bootErr)
	require.Equal(t, KindUnimplemented, bootErr.Kind)
}

func TestRun_StaleBlockZeroChecksumStillSucceeds(t *testing.T) {
	path, _, _, _ := buildHappyPathImage(t)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[0] ^= 0xFF // corrupt block 0's checksum only
	require.NoError(t, os.WriteFile(path, data, 0o600))

	report, err := newTestOrchestrator().Run(path)
	require.NoError(t, err)
	require.NotNil(t, report)
}

func TestRun_RewindsPastBadEphemeralThenExhausts(t *testing.T) {
	// A single candidate whose ephemeral object is corrupt: the first
	// rewind attempt excludes it, the Selector then finds nothing, and the
	// run terminates as an exhausted rewind path (Unimplemented).
	ephemeralPaddr, omapPaddr, rootPaddr := types.Paddr(3), types.Paddr(4), types.Paddr(5)
	sb := superblockFields{
		xid: 100, descBase: 1, descBlocks: 2, descIndex: 0, descLen: 2,
		omapOid: types.OidT(omapPaddr),
	}
	cpm := buildCheckpointMap(testBlockSize, []types.CheckpointMappingT{
		{CpmOid: 900, CpmPaddr: ephemeralPaddr},
	}, true)
	liveSB := buildSuperblock(testBlockSize, sb)

	badEphemeral := wellFormedBlock(testBlockSize)
	badEphemeral[0] ^= 0xFF

	block0 := buildSuperblock(testBlockSize, sb)
	omapBlock := buildOmap(testBlockSize, types.ObjectTypeBtree|types.ObjPhysical, types.OidT(rootPaddr))
	rootBlock := wellFormedBlock(testBlockSize)

	path := writeImage(t, block0, cpm, liveSB, badEphemeral, omapBlock, rootBlock)

	_, err := newTestOrchestrator().Run(path)
	require.Error(t, err)
	var bootErr *Error
	require.ErrorAs(t, err, &bootErr)
	require.Equal(t, KindUnimplemented, bootErr.Kind)
}

func TestRun_NonPhysicalOmapTreeIsUnimplemented(t *testing.T) {
	ephemeralPaddr, omapPaddr := types.Paddr(3), types.Paddr(4)
	sb := superblockFields{
		xid: 100, descBase: 1, descBlocks: 2, descIndex: 0, descLen: 2,
		omapOid: types.OidT(omapPaddr),
	}
	cpm := buildCheckpointMap(testBlockSize, []types.CheckpointMappingT{
		{CpmOid: 900, CpmPaddr: ephemeralPaddr},
	}, true)
	liveSB := buildSuperblock(testBlockSize, sb)

	block0 := buildSuperblock(testBlockSize, sb)
	ephemeralBlock := wellFormedBlock(testBlockSize)
	omapBlock := buildOmap(testBlockSize, types.ObjectTypeBtree|types.ObjVirtual, 0)

	path := writeImage(t, block0, cpm, liveSB, ephemeralBlock, omapBlock)

	_, err := newTestOrchestrator().Run(path)
	require.Error(t, err)
	var bootErr *Error
	require.ErrorAs(t, err, &bootErr)
	require.Equal(t, KindUnimplemented, bootErr.Kind)
}
