package groups

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-xfs/internal/testimage"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

// createTestDescriptor encodes a descriptor with every pointer split across
// the hi and lo halves when is64 is set.
func createTestDescriptor(endian binary.ByteOrder, is64 bool, blockBitmap, inodeBitmap, inodeTable uint64, freeBlocks, freeInodes uint32) []byte {
	size := types.GroupDescSize
	if is64 {
		size = types.GroupDesc64Size
	}
	d := make([]byte, size)
	endian.PutUint32(d[0:4], uint32(blockBitmap))
	endian.PutUint32(d[4:8], uint32(inodeBitmap))
	endian.PutUint32(d[8:12], uint32(inodeTable))
	endian.PutUint16(d[12:14], uint16(freeBlocks))
	endian.PutUint16(d[14:16], uint16(freeInodes))
	endian.PutUint16(d[16:18], 3)
	endian.PutUint16(d[18:20], types.GroupFlagInodeZeroed)
	if is64 {
		endian.PutUint32(d[32:36], uint32(blockBitmap>>32))
		endian.PutUint32(d[36:40], uint32(inodeBitmap>>32))
		endian.PutUint32(d[40:44], uint32(inodeTable>>32))
		endian.PutUint16(d[44:46], uint16(freeBlocks>>16))
		endian.PutUint16(d[46:48], uint16(freeInodes>>16))
	}
	return d
}

func TestNewGroupDescriptorReader(t *testing.T) {
	tests := []struct {
		name        string
		is64        bool
		blockBitmap uint64
		inodeBitmap uint64
		inodeTable  uint64
		freeBlocks  uint32
		freeInodes  uint32
	}{
		{
			name:        "32-bit descriptor",
			blockBitmap: 2,
			inodeBitmap: 3,
			inodeTable:  4,
			freeBlocks:  100,
			freeInodes:  20,
		},
		{
			name:        "64-bit descriptor with high halves",
			is64:        true,
			blockBitmap: 0x2_0000_0010,
			inodeBitmap: 0x2_0000_0011,
			inodeTable:  0xFFFF_FFFF_0000_0012,
			freeBlocks:  0x0001_0004,
			freeInodes:  0x0002_0000,
		},
		{
			name:        "64-bit descriptor with zero high halves",
			is64:        true,
			blockBitmap: 7,
			inodeBitmap: 8,
			inodeTable:  9,
		},
	}

	for _, tt := range tests {
		for _, endian := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
			t.Run(tt.name+"/"+endian.String(), func(t *testing.T) {
				data := createTestDescriptor(endian, tt.is64, tt.blockBitmap, tt.inodeBitmap, tt.inodeTable, tt.freeBlocks, tt.freeInodes)

				reader, err := NewGroupDescriptorReader(data, endian, tt.is64)
				require.NoError(t, err)

				assert.Equal(t, types.DaddrT(tt.blockBitmap), reader.BlockBitmap())
				assert.Equal(t, types.DaddrT(tt.inodeBitmap), reader.InodeBitmap())
				assert.Equal(t, types.DaddrT(tt.inodeTable), reader.InodeTable())
				assert.Equal(t, tt.freeBlocks, reader.FreeBlocksCount())
				assert.Equal(t, tt.freeInodes, reader.FreeInodesCount())
				assert.Equal(t, uint32(3), reader.UsedDirsCount())
				assert.Equal(t, types.GroupFlagInodeZeroed, reader.Flags())
				assert.Equal(t, tt.is64, reader.Is64Bit())
			})
		}
	}
}

// A 32-bit read ignores whatever follows the first 32 bytes.
func TestNewGroupDescriptorReaderIgnoresHighHalvesOn32Bit(t *testing.T) {
	data := createTestDescriptor(binary.BigEndian, true, 0x5_0000_0001, 2, 3, 0, 0)

	reader, err := NewGroupDescriptorReader(data, binary.BigEndian, false)
	require.NoError(t, err)
	assert.Equal(t, types.DaddrT(1), reader.BlockBitmap())
	assert.Equal(t, uint32(0), reader.Descriptor().BlockBitmapHi)
}

func TestNewGroupDescriptorReaderShortData(t *testing.T) {
	tests := []struct {
		name string
		size int
		is64 bool
	}{
		{"32-bit", types.GroupDescSize - 1, false},
		{"64-bit", types.GroupDesc64Size - 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewGroupDescriptorReader(make([]byte, tt.size), binary.BigEndian, tt.is64)
			assert.Nil(t, reader)
			assert.ErrorIs(t, err, types.ErrCorrupt)
			assert.Contains(t, err.Error(), "data too small for group descriptor")
		})
	}
}

func TestDescriptorSize(t *testing.T) {
	assert.Equal(t, types.GroupDescSize, DescriptorSize(testimage.Superblock(testimage.Options{})))
	assert.Equal(t, types.GroupDesc64Size, DescriptorSize(testimage.Superblock(testimage.Options{Incompat: types.SbFeatIncompatNrext64})))

	v4 := testimage.Superblock(testimage.Options{Version: types.SbVersion4, BlockSize: 512})
	v4.FeaturesIncompat = types.SbFeatIncompatNrext64
	assert.Equal(t, types.GroupDescSize, DescriptorSize(v4))
}

func TestCombine64(t *testing.T) {
	assert.Equal(t, uint64(0), combine64(0, 0))
	assert.Equal(t, uint64(0xFFFFFFFF), combine64(0, 0xFFFFFFFF))
	assert.Equal(t, uint64(0xFFFFFFFF_00000000), combine64(0xFFFFFFFF, 0))
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), combine64(0xFFFFFFFF, 0xFFFFFFFF))
}
