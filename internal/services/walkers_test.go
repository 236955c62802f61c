package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-xfs/internal/testimage"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

func collectBlocks(t *testing.T, fs *Filesystem, start, end types.DaddrT, flags types.BlockWalkFlags) []*types.Block {
	t.Helper()
	var blocks []*types.Block
	err := fs.WalkBlocks(start, end, flags, func(b *types.Block) error {
		blocks = append(blocks, b)
		return nil
	})
	require.NoError(t, err)
	return blocks
}

func TestWalkBlocksRangeValidation(t *testing.T) {
	fs := openImage(t, testimage.New(testimage.Options{}).Image())
	noop := func(*types.Block) error { return nil }

	tests := []struct {
		name       string
		start, end types.DaddrT
	}{
		{"start after end", 10, 5},
		{"end past last block", 0, fs.LastBlock() + 1},
		{"both past last block", fs.LastBlock() + 1, fs.LastBlock() + 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fs.WalkBlocks(tt.start, tt.end, 0, noop)
			assert.ErrorIs(t, err, types.ErrInvalidArgument)
		})
	}

	assert.ErrorIs(t, fs.WalkBlocks(0, 1, 0, nil), types.ErrInvalidArgument)
}

func TestWalkBlocksVisitsInOrder(t *testing.T) {
	b := testimage.New(testimage.Options{})
	fs := openImage(t, b.Image())

	blocks := collectBlocks(t, fs, fs.FirstBlock(), fs.LastBlock(), 0)
	require.Len(t, blocks, int(fs.LastBlock())+1)
	for i, blk := range blocks {
		assert.Equal(t, types.DaddrT(i), blk.Addr)
		assert.Equal(t, fs.BlockFlags(blk.Addr), blk.Flags)
	}
}

func TestWalkBlocksFilters(t *testing.T) {
	b := testimage.New(testimage.Options{})
	used := b.FirstFreeBlock(0)
	b.WriteBlock(used, []byte("payload"))
	fs := openImage(t, b.Image())

	// 2 groups of bitmap, inode bitmap and 2 inode table blocks, plus the
	// superblock and descriptor blocks.
	const metaBlocks = 2*4 + 2

	meta := collectBlocks(t, fs, fs.FirstBlock(), fs.LastBlock(), types.BlockWalkFlagMeta)
	assert.Len(t, meta, metaBlocks)
	for _, blk := range meta {
		assert.True(t, blk.Flags.Has(types.BlockFlagMeta))
	}

	allocCont := collectBlocks(t, fs, fs.FirstBlock(), fs.LastBlock(), types.BlockWalkFlagAlloc|types.BlockWalkFlagCont)
	require.Len(t, allocCont, 1)
	assert.Equal(t, types.DaddrT(used), allocCont[0].Addr)
	assert.Equal(t, []byte("payload"), allocCont[0].Data[:7])

	unalloc := collectBlocks(t, fs, fs.FirstBlock(), fs.LastBlock(), types.BlockWalkFlagUnalloc)
	assert.Len(t, unalloc, int(fs.LastBlock())+1-metaBlocks-1)
	for _, blk := range unalloc {
		assert.True(t, blk.Flags.Has(types.BlockFlagUnalloc|types.BlockFlagCont))
	}
}

func TestWalkBlocksAddrOnly(t *testing.T) {
	b := testimage.New(testimage.Options{})
	img := b.Image()
	fs := openImage(t, img)

	start := types.DaddrT(b.FirstFreeBlock(0))
	fs.BlockFlags(start)
	reads := img.Reads()

	blocks := collectBlocks(t, fs, start, start+9, types.BlockWalkFlagAddrOnly)
	require.Len(t, blocks, 10)
	for _, blk := range blocks {
		assert.Nil(t, blk.Data)
		assert.NoError(t, blk.Err)
	}
	assert.Equal(t, reads, img.Reads(), "address-only walks read no content")
}

func TestWalkBlocksReportsUnreadableBlocks(t *testing.T) {
	b := testimage.New(testimage.Options{})
	bad := b.FirstFreeBlock(0) + 3
	img := b.Image()
	img.FailReads(b.BlockOffset(bad), 1)
	fs := openImage(t, img)

	first := types.DaddrT(bad - 1)
	blocks := collectBlocks(t, fs, first, first+2, 0)
	require.Len(t, blocks, 3)

	assert.NotNil(t, blocks[0].Data)
	assert.Nil(t, blocks[1].Data)
	assert.ErrorIs(t, blocks[1].Err, types.ErrReadError)
	assert.Equal(t, types.DaddrT(bad), blocks[1].Addr)
	assert.NotNil(t, blocks[2].Data)
}

func TestWalkBlocksStop(t *testing.T) {
	fs := openImage(t, testimage.New(testimage.Options{}).Image())

	var visited int
	err := fs.WalkBlocks(0, fs.LastBlock(), 0, func(*types.Block) error {
		visited++
		if visited == 5 {
			return types.ErrStopWalk
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 5, visited)

	boom := errors.New("boom")
	err = fs.WalkBlocks(0, fs.LastBlock(), 0, func(*types.Block) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestWalkBlocksSingleBlock(t *testing.T) {
	fs := openImage(t, testimage.New(testimage.Options{}).Image())

	blocks := collectBlocks(t, fs, fs.LastBlock(), fs.LastBlock(), 0)
	require.Len(t, blocks, 1)
	assert.Equal(t, fs.LastBlock(), blocks[0].Addr)
}

func collectInodes(t *testing.T, fs *Filesystem, start, end types.InumT, flags types.MetaFlags) []*types.Meta {
	t.Helper()
	var metas []*types.Meta
	err := fs.WalkInodes(start, end, flags, func(m *types.Meta) error {
		metas = append(metas, m)
		return nil
	})
	require.NoError(t, err)
	return metas
}

func TestWalkInodes(t *testing.T) {
	b := testimage.New(testimage.Options{})
	b.WriteInode(2, testimage.Inode{Mode: types.ModeDir | 0o755, Format: types.DinodeFmtLocal})
	b.WriteInode(3, testimage.Inode{Mode: types.ModeReg | 0o644, Format: types.DinodeFmtExtents,
		Fork: testimage.LeafNode(b.Endian(), b.LiteralSize(3))})
	b.WriteInode(4, testimage.Inode{Mode: types.ModeReg | 0o644, Format: types.DinodeFmtExtents, Unallocated: true})
	// Inode 5 is marked allocated but its slot is empty.
	b.SetInodeAllocated(5, true)
	fs := openImage(t, b.Image())

	all := collectInodes(t, fs, 1, 6, 0)
	require.Len(t, all, 6)
	for i, m := range all {
		assert.Equal(t, types.InumT(i+1), m.Addr)
	}

	assert.Equal(t, types.MetaFlagUnalloc|types.MetaFlagUnused, all[0].Flags)
	assert.Equal(t, types.MetaFlagAlloc|types.MetaFlagUsed, all[1].Flags)
	assert.Equal(t, types.MetaFlagAlloc|types.MetaFlagUsed, all[2].Flags)
	assert.Equal(t, types.MetaFlagUnalloc|types.MetaFlagUsed, all[3].Flags)
	assert.Equal(t, types.MetaFlagAlloc|types.MetaFlagUnused, all[4].Flags)
	assert.Equal(t, types.MetaFlagUnalloc|types.MetaFlagUnused, all[5].Flags)

	alloc := collectInodes(t, fs, 1, 6, types.MetaFlagAlloc)
	require.Len(t, alloc, 3)
	assert.Equal(t, []types.InumT{2, 3, 5}, []types.InumT{alloc[0].Addr, alloc[1].Addr, alloc[2].Addr})

	allocUsed := collectInodes(t, fs, 1, 6, types.MetaFlagAlloc|types.MetaFlagUsed)
	require.Len(t, allocUsed, 2)

	unused := collectInodes(t, fs, 1, 6, types.MetaFlagUnused)
	require.Len(t, unused, 3)
	assert.Equal(t, types.InumT(5), unused[1].Addr)
}

func TestWalkInodesRangeValidation(t *testing.T) {
	fs := openImage(t, testimage.New(testimage.Options{}).Image())
	noop := func(*types.Meta) error { return nil }

	assert.ErrorIs(t, fs.WalkInodes(0, 5, 0, noop), types.ErrInvalidArgument)
	assert.ErrorIs(t, fs.WalkInodes(5, 4, 0, noop), types.ErrInvalidArgument)
	assert.ErrorIs(t, fs.WalkInodes(1, fs.LastInode()+1, 0, noop), types.ErrInvalidArgument)
	assert.ErrorIs(t, fs.WalkInodes(1, 2, 0, nil), types.ErrInvalidArgument)
}

func TestWalkInodesStop(t *testing.T) {
	fs := openImage(t, testimage.New(testimage.Options{}).Image())

	var visited []types.InumT
	err := fs.WalkInodes(fs.FirstInode(), fs.LastInode(), 0, func(m *types.Meta) error {
		visited = append(visited, m.Addr)
		if m.Addr == 3 {
			return types.ErrStopWalk
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []types.InumT{1, 2, 3}, visited)
}

func TestWalkInodesAcrossGroups(t *testing.T) {
	b := testimage.New(testimage.Options{})
	b.WriteInode(32, testimage.Inode{Mode: types.ModeReg, Format: types.DinodeFmtExtents})
	b.WriteInode(33, testimage.Inode{Mode: types.ModeReg, Format: types.DinodeFmtExtents})
	b.WriteInode(64, testimage.Inode{Mode: types.ModeReg, Format: types.DinodeFmtExtents})
	fs := openImage(t, b.Image())

	used := collectInodes(t, fs, fs.FirstInode(), fs.LastInode(), types.MetaFlagUsed)
	require.Len(t, used, 3)
	assert.Equal(t, []types.InumT{32, 33, 64}, []types.InumT{used[0].Addr, used[1].Addr, used[2].Addr})
}
