package container

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

func TestDecodeCheckpointMap_RoundTripsMappings(t *testing.T) {
	mappings := []types.CheckpointMappingT{
		{CpmType: types.ObjectTypeOmap, CpmOid: 10, CpmPaddr: 1000, CpmSize: 4096},
		{CpmType: types.ObjectTypeBtreeNode, CpmOid: 11, CpmPaddr: 1001, CpmSize: 4096},
	}
	block := buildCheckpointMapBlock(testBlockSize, mappings, true)

	cm, err := DecodeCheckpointMap(block)
	require.NoError(t, err)
	require.EqualValues(t, 2, cm.CpmCount)
	require.Len(t, cm.CpmMap, 2)
	require.EqualValues(t, 10, cm.CpmMap[0].CpmOid)
	require.EqualValues(t, 1001, cm.CpmMap[1].CpmPaddr)
	require.True(t, IsLast(cm))
}

func TestDecodeCheckpointMap_RejectsTruncatedMappingArray(t *testing.T) {
	block := buildCheckpointMapBlock(testBlockSize, []types.CheckpointMappingT{{CpmOid: 1}}, false)
	truncated := block[:45]
	_, err := DecodeCheckpointMap(truncated)
	require.Error(t, err)
}
