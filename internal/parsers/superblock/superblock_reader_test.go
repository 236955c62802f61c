package superblock

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-xfs/internal/testimage"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

func TestDetectByteOrder(t *testing.T) {
	sb := testimage.Superblock(testimage.Options{})

	tests := []struct {
		name     string
		data     []byte
		expected binary.ByteOrder
		errKind  types.ErrorKind
	}{
		{
			name:     "big-endian magic",
			data:     testimage.EncodeSuperblock(sb, binary.BigEndian),
			expected: binary.BigEndian,
		},
		{
			name:     "little-endian magic",
			data:     testimage.EncodeSuperblock(sb, binary.LittleEndian),
			expected: binary.LittleEndian,
		},
		{
			name:    "no magic",
			data:    make([]byte, types.SbSize),
			errKind: types.KindBadMagic,
		},
		{
			name:    "too short",
			data:    []byte{0x58, 0x46},
			errKind: types.KindBadMagic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := DetectByteOrder(tt.data)
			if tt.errKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errKind, types.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, order)
		})
	}
}

func TestNewSuperblockReader(t *testing.T) {
	for _, endian := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		t.Run(endian.String(), func(t *testing.T) {
			sb := testimage.Superblock(testimage.Options{Endian: endian})
			reader, err := NewSuperblockReader(testimage.EncodeSuperblock(sb, endian), endian)
			require.NoError(t, err)

			assert.Equal(t, uint16(5), reader.Version())
			assert.Equal(t, uint32(4096), reader.BlockSize())
			assert.Equal(t, uint16(512), reader.SectorSize())
			assert.Equal(t, uint16(256), reader.InodeSize())
			assert.Equal(t, uint16(16), reader.InodesPerBlock())
			assert.Equal(t, uint64(256), reader.BlockCount())
			assert.Equal(t, uint64(64), reader.InodeCount())
			assert.Equal(t, types.InumT(2), reader.RootInode())
			assert.Equal(t, uint32(2), reader.GroupCount())
			assert.Equal(t, uint32(128), reader.GroupBlocks())
			assert.Equal(t, testimage.FixtureUUID, reader.UUID())
			assert.Equal(t, testimage.FixtureUUID, reader.MetaUUID())
			assert.Equal(t, "synthetic", reader.Label())
			assert.Equal(t, endian, reader.Endian())
			assert.Empty(t, reader.Warnings())
		})
	}
}

func TestNewSuperblockReaderShortData(t *testing.T) {
	reader, err := NewSuperblockReader(make([]byte, types.SbSize-1), binary.BigEndian)
	assert.Nil(t, reader)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestValidateSuperblockFailures(t *testing.T) {
	tests := []struct {
		name     string
		opts     testimage.Options
		mutate   func(sb *types.SbT)
		expected *types.FSError
		errorMsg string
	}{
		{
			name:     "bad magic",
			mutate:   func(sb *types.SbT) { sb.Magicnum = 0x12345678 },
			expected: types.ErrBadMagic,
			errorMsg: "invalid superblock magic",
		},
		{
			name:     "unsupported version",
			mutate:   func(sb *types.SbT) { sb.Versionnum = 3 },
			expected: types.ErrUnsupportedVersion,
			errorMsg: "unsupported superblock version 3",
		},
		{
			name:     "unknown incompatible feature",
			mutate:   func(sb *types.SbT) { sb.FeaturesIncompat |= 1 << 20 },
			expected: types.ErrUnsupportedVersion,
			errorMsg: "unknown incompatible features 0x100000",
		},
		{
			name:     "zero group count",
			mutate:   func(sb *types.SbT) { sb.Agcount = 0 },
			expected: types.ErrCorrupt,
			errorMsg: "group count is zero",
		},
		{
			name:     "sector size out of range",
			mutate:   func(sb *types.SbT) { sb.Sectsize = 256; sb.Sectlog = 8 },
			expected: types.ErrCorrupt,
			errorMsg: "invalid sector size",
		},
		{
			name:     "block size disagrees with log",
			mutate:   func(sb *types.SbT) { sb.Blocklog = 11 },
			expected: types.ErrCorrupt,
			errorMsg: "invalid block size",
		},
		{
			name:     "directory block log too large",
			mutate:   func(sb *types.SbT) { sb.Dirblklog = 5 },
			expected: types.ErrCorrupt,
			errorMsg: "directory block log",
		},
		{
			name:     "inode size disagrees with log",
			mutate:   func(sb *types.SbT) { sb.Inodelog = 9 },
			expected: types.ErrCorrupt,
			errorMsg: "invalid inode size",
		},
		{
			name:     "log stripe unit too large",
			mutate:   func(sb *types.SbT) { sb.Logsunit = types.MaxLogRecordBSize + 1 },
			expected: types.ErrCorrupt,
			errorMsg: "log stripe unit",
		},
		{
			name:     "inodes per block mismatch",
			mutate:   func(sb *types.SbT) { sb.Inopblock = 8 },
			expected: types.ErrCorrupt,
			errorMsg: "inodes per block",
		},
		{
			name:     "inodes per block log mismatch",
			mutate:   func(sb *types.SbT) { sb.Inopblog = 3 },
			expected: types.ErrCorrupt,
			errorMsg: "inodes per block log",
		},
		{
			name:     "realtime extent size zero",
			mutate:   func(sb *types.SbT) { sb.Rextsize = 0 },
			expected: types.ErrCorrupt,
			errorMsg: "realtime extent size",
		},
		{
			name:     "inode percentage over 100",
			mutate:   func(sb *types.SbT) { sb.ImaxPct = 101 },
			expected: types.ErrCorrupt,
			errorMsg: "inode space percentage",
		},
		{
			name:     "zero block count",
			mutate:   func(sb *types.SbT) { sb.Dblocks = 0 },
			expected: types.ErrCorrupt,
			errorMsg: "block count is zero",
		},
		{
			name:     "block count above group bounds",
			mutate:   func(sb *types.SbT) { sb.Dblocks = 257 },
			expected: types.ErrCorrupt,
			errorMsg: "outside group bounds",
		},
		{
			name:     "block count below group bounds",
			mutate:   func(sb *types.SbT) { sb.Dblocks = 191 },
			expected: types.ErrCorrupt,
			errorMsg: "outside group bounds",
		},
		{
			name:     "shared version set",
			mutate:   func(sb *types.SbT) { sb.SharedVn = 1 },
			expected: types.ErrCorrupt,
			errorMsg: "shared version number",
		},
		{
			name:     "version 5 block size below minimum",
			opts:     testimage.Options{BlockSize: 512},
			expected: types.ErrCorrupt,
			errorMsg: "below version 5 minimum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb := testimage.Superblock(tt.opts)
			if tt.mutate != nil {
				tt.mutate(sb)
			}

			reader, err := NewSuperblockReader(testimage.EncodeSuperblock(sb, binary.BigEndian), binary.BigEndian)
			require.Error(t, err)
			assert.Nil(t, reader)
			assert.ErrorIs(t, err, tt.expected)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestValidateSuperblockWarnings(t *testing.T) {
	sb := testimage.Superblock(testimage.Options{})
	sb.FeaturesCompat = 1 << 3
	sb.FeaturesRoCompat = types.SbFeatRoCompatFinobt | 1<<10

	warnings, err := ValidateSuperblock(sb)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"unknown compatible features 0x8",
		"unknown read-only compatible features 0x400",
	}, warnings)
}

func TestValidateSuperblockVersion4(t *testing.T) {
	sb := testimage.Superblock(testimage.Options{Version: types.SbVersion4, BlockSize: 512})
	// Version 4 superblocks carry no feature masks, so these bits are ignored.
	sb.FeaturesIncompat = 1 << 20
	sb.FeaturesCompat = 1

	warnings, err := ValidateSuperblock(sb)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestValidateSuperblockPowerOfTwoSizes(t *testing.T) {
	fields := []struct {
		name   string
		mutate func(sb *types.SbT, size uint32)
	}{
		{"sector", func(sb *types.SbT, size uint32) { sb.Sectsize = uint16(size) }},
		{"block", func(sb *types.SbT, size uint32) { sb.Blocksize = size }},
		{"inode", func(sb *types.SbT, size uint32) { sb.Inodesize = uint16(size) }},
	}

	for _, f := range fields {
		for _, size := range []uint32{600, 1000, 1536, 3000} {
			sb := testimage.Superblock(testimage.Options{})
			f.mutate(sb, size)

			_, err := ValidateSuperblock(sb)
			assert.ErrorIs(t, err, types.ErrCorrupt, "%s size %d", f.name, size)
		}
	}
}

func TestValidateSuperblockSupportedInodeSizes(t *testing.T) {
	for _, size := range types.SupportedInodeSizes {
		sb := testimage.Superblock(testimage.Options{InodeSize: size})
		_, err := ValidateSuperblock(sb)
		assert.NoError(t, err, "inode size %d", size)
	}
}

func TestFeatureNames(t *testing.T) {
	v4 := testimage.Superblock(testimage.Options{Version: types.SbVersion4, BlockSize: 512})
	assert.Equal(t, []string{"v4"}, FeatureNames(v4))

	v5 := testimage.Superblock(testimage.Options{Incompat: types.SbFeatIncompatFtype | types.SbFeatIncompatNrext64})
	v5.FeaturesRoCompat = types.SbFeatRoCompatReflink
	assert.Equal(t, []string{"crc", "reflink", "ftype", "nrext64"}, FeatureNames(v5))
}
