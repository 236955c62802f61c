package inodes

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-xfs/internal/testimage"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

// inodeSlot writes ino into a one-inode image and returns the slot bytes.
func inodeSlot(t *testing.T, opts testimage.Options, ino testimage.Inode) []byte {
	t.Helper()
	b := testimage.New(opts)
	b.WriteInode(1, ino)
	data := b.Bytes()
	off := b.InodeOffset(1)
	return data[off : off+int64(b.Superblock().Inodesize)]
}

func TestNewInodeReader(t *testing.T) {
	fork := testimage.LeafNode(binary.BigEndian, 80, testimage.Extent(0, 1000, 8))

	tests := []struct {
		name        string
		opts        testimage.Options
		ino         testimage.Inode
		forkSize    int
		expectedCrt bool
	}{
		{
			name: "version 3 extents inode",
			ino: testimage.Inode{
				Mode:   types.ModeReg | 0o644,
				Format: types.DinodeFmtExtents,
				Size:   8 * 4096,
				Nlink:  1,
				UID:    1000,
				GID:    100,
				Mtime:  1700000000,
				Gen:    7,
				Fork:   fork,
			},
			forkSize:    256 - types.DinodeCoreSizeV3,
			expectedCrt: true,
		},
		{
			name: "version 2 directory",
			opts: testimage.Options{Version: types.SbVersion4, BlockSize: 512},
			ino: testimage.Inode{
				Mode:   types.ModeDir | 0o755,
				Format: types.DinodeFmtLocal,
				Size:   6,
				Nlink:  2,
				Fork:   []byte("inline"),
			},
			forkSize: 256 - types.DinodeCoreSizeV2,
		},
		{
			name: "fork offset limits data fork",
			ino: testimage.Inode{
				Mode:    types.ModeReg | 0o600,
				Format:  types.DinodeFmtExtents,
				Forkoff: 8,
				Fork:    fork[:64],
			},
			forkSize:    64,
			expectedCrt: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := inodeSlot(t, tt.opts, tt.ino)

			reader, err := NewInodeReader(slot, binary.BigEndian)
			require.NoError(t, err)

			core := reader.Core()
			assert.Equal(t, types.DinodeMagic, core.Magic)
			assert.Equal(t, tt.ino.Mode, reader.Mode())
			assert.Equal(t, tt.ino.Format, reader.Format())
			assert.Equal(t, tt.ino.Size, reader.Size())
			assert.Equal(t, tt.ino.Nlink, core.Nlink)
			assert.Equal(t, tt.ino.UID, core.UID)
			assert.Equal(t, tt.ino.GID, core.GID)
			assert.Equal(t, tt.ino.Gen, core.Gen)
			assert.Equal(t, tt.ino.Mtime, core.Mtime.Sec)
			assert.Equal(t, tt.ino.Mode&types.ModeFmt == types.ModeDir, reader.IsDir())
			assert.Len(t, reader.DataFork(), tt.forkSize)
			assert.Equal(t, tt.ino.Fork, reader.DataFork()[:len(tt.ino.Fork)])
			if tt.expectedCrt {
				assert.Equal(t, uint64(1), core.Ino)
				assert.Equal(t, testimage.FixtureUUID[:], core.UUID[:])
			}
		})
	}
}

func TestNewInodeReaderErrors(t *testing.T) {
	valid := inodeSlot(t, testimage.Options{}, testimage.Inode{Mode: types.ModeReg, Format: types.DinodeFmtExtents})

	tests := []struct {
		name     string
		data     func() []byte
		errorMsg string
	}{
		{
			name:     "too small for core",
			data:     func() []byte { return valid[:types.DinodeCoreSizeV2-1] },
			errorMsg: "data too small for inode core",
		},
		{
			name:     "zeroed slot",
			data:     func() []byte { return make([]byte, 256) },
			errorMsg: "invalid inode magic",
		},
		{
			name:     "truncated version 3 core",
			data:     func() []byte { return valid[:types.DinodeCoreSizeV3-1] },
			errorMsg: "data too small for version 3 inode core",
		},
		{
			name: "fork offset beyond slot",
			data: func() []byte {
				d := append([]byte(nil), valid...)
				d[82] = 20
				return d
			},
			errorMsg: "beyond inode size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewInodeReader(tt.data(), binary.BigEndian)
			require.Error(t, err)
			assert.Nil(t, reader)
			assert.ErrorIs(t, err, types.ErrCorrupt)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestNewInodeReaderVersion1LinkCount(t *testing.T) {
	slot := inodeSlot(t, testimage.Options{Version: types.SbVersion4, BlockSize: 512},
		testimage.Inode{Mode: types.ModeReg, Version: 1, Nlink: 99})
	binary.BigEndian.PutUint16(slot[6:8], 3)

	reader, err := NewInodeReader(slot, binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), reader.Core().Nlink)
}
