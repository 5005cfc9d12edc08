// Package device implements the Block Reader component (spec.md §4.1): a
// random-access, fixed-block-size reader over a container image, plus the
// GPT/DMG offset auto-detection the teacher's disk layer performs before
// assuming an APFS container begins at byte 0.
package device

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/apfsboot/apfs-checkpoint/internal/types"
)

// BlockReader is the bootstrap pipeline's only dependency on storage. It is
// deliberately narrow: callers ask for whole blocks by physical address and
// get back exactly that many bytes, or an error.
type BlockReader interface {
	// ReadBlocks reads count contiguous blocks starting at paddr and returns
	// them concatenated. A short read (less than count*BlockSize bytes) is
	// reported as an error rather than a partial result, per spec.md §4.1.
	ReadBlocks(paddr uint64, count uint32) ([]byte, error)
	// BlockSize returns the block size this reader was opened with.
	BlockSize() uint32
	// Close releases the underlying handle.
	Close() error
}

// FileReader is a BlockReader backed by an os.File, such as a raw container
// image, a device node, or a DMG wrapping either. Reference:
// internal/disk/dmg.go and internal/services/container_reader.go (teacher).
type FileReader struct {
	file      *os.File
	size      int64
	offset    int64 // byte offset of the APFS container within the backing file
	blockSize uint32
}

// Open opens path and, if autoDetect is true, scans it for a GPT-partitioned
// or raw APFS container before settling on an offset. provisionalBlockSize
// is used only to size the very first read of block 0 (spec.md §4.1); every
// subsequent read uses the block size the container superblock reports,
// set via SetBlockSize.
func Open(path string, provisionalBlockSize uint32, autoDetect bool) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("device: stat %s: %w", path, err)
	}

	r := &FileReader{file: f, size: info.Size(), blockSize: provisionalBlockSize}

	if autoDetect {
		if off, ok := detectAPFSOffset(f, info.Size()); ok {
			r.offset = off
		}
	}
	return r, nil
}

// SetBlockSize switches the reader to the container's real block size, once
// it has been decoded from the block-0 superblock. Reference: spec.md §4.1,
// "the initial read of block 0 uses a provisional size which must equal the
// superblock's stated nx_block_size".
func (r *FileReader) SetBlockSize(blockSize uint32) {
	r.blockSize = blockSize
}

// BlockSize implements BlockReader.
func (r *FileReader) BlockSize() uint32 { return r.blockSize }

// ReadBlocks implements BlockReader.
func (r *FileReader) ReadBlocks(paddr uint64, count uint32) ([]byte, error) {
	if count == 0 {
		return nil, nil
	}
	want := int64(count) * int64(r.blockSize)
	byteOffset := r.offset + int64(paddr)*int64(r.blockSize)

	buf := make([]byte, want)
	n, err := r.file.ReadAt(buf, byteOffset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("device: read %d block(s) at paddr %d: %w", count, paddr, err)
	}
	if int64(n) != want {
		return nil, fmt.Errorf("device: short read at paddr %d: got %d of %d bytes", paddr, n, want)
	}
	return buf, nil
}

// Close implements BlockReader.
func (r *FileReader) Close() error { return r.file.Close() }

// detectAPFSOffset looks for an embedded APFS container: first via a GPT
// partition table, then by scanning block-aligned offsets for the NXSB
// magic. It returns ok=false (offset 0) rather than an error when nothing
// is found, leaving the caller to try reading block 0 at offset 0 anyway —
// mirroring the teacher's fall-through-to-default behavior in
// internal/disk/dmg.go's detectAPFSOffset.
func detectAPFSOffset(f *os.File, size int64) (int64, bool) {
	scanLen := int64(2 * 1024 * 1024)
	if scanLen > size {
		scanLen = size
	}
	buf := make([]byte, scanLen)
	n, err := f.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return 0, false
	}
	buf = buf[:n]

	if off, ok := scanGPTForAPFS(buf); ok {
		return off, true
	}
	return scanForMagic(buf)
}

// scanGPTForAPFS parses a primary GPT header at types.GPTHeaderOffset and
// its partition entries, returning the byte offset of the first partition
// whose type GUID matches the APFS partition type.
func scanGPTForAPFS(buf []byte) (int64, bool) {
	if len(buf) < types.GPTHeaderOffset+8 {
		return 0, false
	}
	if string(buf[types.GPTHeaderOffset:types.GPTHeaderOffset+8]) != "EFI PART" {
		return 0, false
	}

	apfsTypeGUID := apfsPartitionTypeGUIDBytes()

	for i := 0; i < 128; i++ {
		entryOff := types.GPTEntriesStartOffset + i*types.GPTEntrySize
		if entryOff+types.GPTEntrySize > len(buf) {
			break
		}
		entry := buf[entryOff : entryOff+types.GPTEntrySize]
		if string(entry[0:16]) == string(apfsTypeGUID) {
			startLBA := binary.LittleEndian.Uint64(entry[32:40])
			return int64(startLBA) * 512, true
		}
	}
	return 0, false
}

// scanForMagic falls back to a 4096-byte-aligned scan for the NXSB magic,
// mirroring the teacher's "Method 3: Full scan at 4096-byte boundaries".
func scanForMagic(buf []byte) (int64, bool) {
	const blockStride = 4096
	for off := int64(0); off+int64(types.APFSMagicOffset)+4 <= int64(len(buf)); off += blockStride {
		magicBytes := buf[off+types.APFSMagicOffset : off+types.APFSMagicOffset+4]
		if binary.LittleEndian.Uint32(magicBytes) == types.NxMagic {
			return off, true
		}
	}
	return 0, false
}

// apfsPartitionTypeGUIDBytes returns the on-disk mixed-endian encoding of
// the APFS GPT partition type GUID 7C3457EF-0000-11AA-AA11-00306543ECAC.
func apfsPartitionTypeGUIDBytes() []byte {
	return []byte{
		0xEF, 0x57, 0x34, 0x7C, 0x00, 0x00, 0xAA, 0x11,
		0xAA, 0x11, 0x00, 0x30, 0x65, 0x43, 0xEC, 0xAC,
	}
}
