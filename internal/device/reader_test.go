package device

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestOpen_ReadBlocksWithoutAutoDetect(t *testing.T) {
	const blockSize = 512
	data := make([]byte, blockSize*3)
	for i := range data[blockSize : 2*blockSize] {
		data[blockSize+i] = 0xAB
	}

	path := writeTempFile(t, data)
	r, err := Open(path, blockSize, false)
	require.NoError(t, err)
	defer r.Close()

	block, err := r.ReadBlocks(1, 1)
	require.NoError(t, err)
	require.Len(t, block, blockSize)
	require.Equal(t, byte(0xAB), block[0])
}

func TestReadBlocks_ShortReadIsError(t *testing.T) {
	const blockSize = 512
	path := writeTempFile(t, make([]byte, blockSize))

	r, err := Open(path, blockSize, false)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadBlocks(0, 2)
	require.Error(t, err)
}

func TestOpen_DetectsMagicWithoutGPT(t *testing.T) {
	const blockSize = 4096
	data := make([]byte, blockSize*2)
	// No GPT header; stamp the NXSB magic at the second block's magic
	// offset so the fallback scan finds it.
	binary.LittleEndian.PutUint32(data[blockSize+types.APFSMagicOffset:], types.NxMagic)

	path := writeTempFile(t, data)
	r, err := Open(path, blockSize, true)
	require.NoError(t, err)
	defer r.Close()

	block, err := r.ReadBlocks(0, 1)
	require.NoError(t, err)
	require.Equal(t, types.NxMagic, binary.LittleEndian.Uint32(block[types.APFSMagicOffset:]))
}

func TestOpen_NoSignatureFoundDefaultsToOffsetZero(t *testing.T) {
	const blockSize = 4096
	data := make([]byte, blockSize)
	path := writeTempFile(t, data)

	r, err := Open(path, blockSize, true)
	require.NoError(t, err)
	defer r.Close()

	block, err := r.ReadBlocks(0, 1)
	require.NoError(t, err)
	require.Len(t, block, blockSize)
}
