package container

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

func TestDecodeSuperblock_RoundTripsFields(t *testing.T) {
	block := buildSuperblockBlock(testBlockSize, 77, 5, 3)

	sb, err := DecodeSuperblock(block)
	require.NoError(t, err)
	require.Equal(t, types.NxMagic, sb.Raw.NxMagic)
	require.EqualValues(t, 77, sb.Raw.NxO.OXid)
	require.EqualValues(t, 5, sb.Raw.NxXpDescIndex)
	require.EqualValues(t, 3, sb.Raw.NxXpDescLen)
	require.EqualValues(t, testBlockSize, sb.Raw.NxBlockSize)
	require.EqualValues(t, 42, sb.Raw.NxOmapOid)
	require.True(t, sb.DescriptorIsContiguous())
	require.False(t, sb.IsFusion())
}

func TestDecodeSuperblock_RejectsUndersizedBlock(t *testing.T) {
	_, err := DecodeSuperblock(make([]byte, 32))
	require.Error(t, err)
}

func TestSuperblock_DescriptorBlockCountMasksFlagBit(t *testing.T) {
	sb := &Superblock{}
	sb.Raw.NxXpDescBlocks = types.NxXpDescBlocksFlag | 8
	require.EqualValues(t, 8, sb.DescriptorBlockCount())
	require.False(t, sb.DescriptorIsContiguous())
}
