// Package testimage builds small synthetic filesystem images for tests.
package testimage

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/go-restruct/restruct"
	"github.com/google/uuid"

	"github.com/deploymenttheory/go-xfs/internal/types"
)

// FixtureUUID is the filesystem UUID written into every synthetic superblock.
var FixtureUUID = uuid.MustParse("4f1c2a9e-7b3d-4e58-9a61-0c2d8e7f5b14")

// Options describes the geometry of a synthetic image. Zero fields take the
// defaults noted on each field.
type Options struct {
	BlockSize   uint32           // 4096
	InodeSize   uint16           // 256
	GroupCount  uint32           // 2
	GroupBlocks uint32           // 128
	InodeCount  uint64           // 64
	Version     uint16           // 5
	Incompat    uint32           // none
	RootInode   uint64           // 2
	Endian      binary.ByteOrder // big-endian
}

func (o *Options) setDefaults() {
	if o.BlockSize == 0 {
		o.BlockSize = 4096
	}
	if o.InodeSize == 0 {
		o.InodeSize = 256
	}
	if o.GroupCount == 0 {
		o.GroupCount = 2
	}
	if o.GroupBlocks == 0 {
		o.GroupBlocks = 128
	}
	if o.InodeCount == 0 {
		o.InodeCount = 64
	}
	if o.Version == 0 {
		o.Version = types.SbVersion5
	}
	if o.RootInode == 0 {
		o.RootInode = 2
	}
	if o.Endian == nil {
		o.Endian = binary.BigEndian
	}
}

func log2(v uint64) uint8 {
	if v == 0 {
		return 0
	}
	return uint8(bits.Len64(v) - 1)
}

// Superblock returns a superblock that passes validation for the options.
func Superblock(o Options) *types.SbT {
	o.setDefaults()
	bs := uint64(o.BlockSize)

	sb := &types.SbT{
		Magicnum:   types.SbMagic,
		Blocksize:  o.BlockSize,
		Dblocks:    uint64(o.GroupCount) * uint64(o.GroupBlocks),
		Rootino:    o.RootInode,
		Rextsize:   uint32(types.Howmany(types.MinRtExtSize, bs)),
		Agblocks:   o.GroupBlocks,
		Agcount:    o.GroupCount,
		Versionnum: o.Version,
		Sectsize:   types.MinSectorSize,
		Inodesize:  o.InodeSize,
		Inopblock:  uint16(o.BlockSize / uint32(o.InodeSize)),
		Blocklog:   log2(bs),
		Sectlog:    types.MinSectorSizeLog,
		Inodelog:   log2(uint64(o.InodeSize)),
		Agblklog:   uint8(bits.Len32(o.GroupBlocks - 1)),
		ImaxPct:    25,
		Icount:     o.InodeCount,
		Ifree:      o.InodeCount,
	}
	sb.Inopblog = sb.Blocklog - sb.Inodelog
	sb.Fdblocks = sb.Dblocks
	copy(sb.UUID[:], FixtureUUID[:])
	copy(sb.Fname[:], "synthetic")
	if o.Version == types.SbVersion5 {
		sb.FeaturesIncompat = o.Incompat
	}
	return sb
}

// EncodeSuperblock packs sb in the given byte order.
func EncodeSuperblock(sb *types.SbT, endian binary.ByteOrder) []byte {
	data, err := restruct.Pack(endian, sb)
	if err != nil {
		panic(fmt.Sprintf("pack superblock: %v", err))
	}
	return data
}

// Builder lays out a complete image: superblock, descriptor table, and per
// group a block bitmap, an inode bitmap and an inode table, in that order at
// the start of the group.
type Builder struct {
	opts   Options
	sb     *types.SbT
	endian binary.ByteOrder
	data   []byte

	descSize         int
	descTableStart   uint64
	descTableBlocks  uint64
	firstData        uint64
	inodesPerGroup   uint64
	inodeTableBlocks uint64
}

// New builds an empty, valid image. The superblock may be adjusted through
// Superblock before Bytes or Image is called.
func New(o Options) *Builder {
	o.setDefaults()
	sb := Superblock(o)
	bs := uint64(o.BlockSize)

	b := &Builder{
		opts:     o,
		sb:       sb,
		endian:   o.Endian,
		data:     make([]byte, sb.Dblocks*bs),
		descSize: types.GroupDescSize,
	}
	if sb.HasIncompat(types.SbFeatIncompatNrext64) {
		b.descSize = types.GroupDesc64Size
	}
	b.descTableStart = types.Howmany(types.SbSize, bs)
	b.descTableBlocks = types.Howmany(uint64(sb.Agcount)*uint64(b.descSize), bs)
	b.firstData = b.descTableStart + b.descTableBlocks
	b.inodesPerGroup = types.Howmany(sb.Icount, uint64(sb.Agcount))
	b.inodeTableBlocks = types.Howmany(b.inodesPerGroup, uint64(sb.Inopblock))

	for g := uint32(0); g < sb.Agcount; g++ {
		b.SetBlockAllocated(b.BlockBitmap(g), true)
		b.SetBlockAllocated(b.InodeBitmap(g), true)
		for i := uint64(0); i < b.inodeTableBlocks; i++ {
			b.SetBlockAllocated(b.InodeTable(g)+i, true)
		}
	}
	return b
}

// Superblock returns the superblock that will be written.
func (b *Builder) Superblock() *types.SbT {
	return b.sb
}

// Endian returns the image byte order.
func (b *Builder) Endian() binary.ByteOrder {
	return b.endian
}

// BlockSize returns the block size in bytes.
func (b *Builder) BlockSize() int {
	return int(b.opts.BlockSize)
}

// FirstDataBlock returns the first block covered by a group.
func (b *Builder) FirstDataBlock() uint64 {
	return b.firstData
}

// GroupBase returns the first block of group g.
func (b *Builder) GroupBase(g uint32) uint64 {
	return b.firstData + uint64(g)*uint64(b.sb.Agblocks)
}

// BlockBitmap returns the block bitmap address of group g.
func (b *Builder) BlockBitmap(g uint32) uint64 {
	return b.GroupBase(g)
}

// InodeBitmap returns the inode bitmap address of group g.
func (b *Builder) InodeBitmap(g uint32) uint64 {
	return b.GroupBase(g) + 1
}

// InodeTable returns the first inode table block of group g.
func (b *Builder) InodeTable(g uint32) uint64 {
	return b.GroupBase(g) + 2
}

// InodeTableBlocks returns the length of each group's inode table.
func (b *Builder) InodeTableBlocks() uint64 {
	return b.inodeTableBlocks
}

// FirstFreeBlock returns the first block of group g after its metadata.
func (b *Builder) FirstFreeBlock(g uint32) uint64 {
	return b.InodeTable(g) + b.inodeTableBlocks
}

// BlockOffset returns the byte offset of a block.
func (b *Builder) BlockOffset(addr uint64) int64 {
	return int64(addr) * int64(b.opts.BlockSize)
}

// InodeOffset returns the byte offset of inode inum's slot.
func (b *Builder) InodeOffset(inum uint64) int64 {
	g := (inum - 1) / b.inodesPerGroup
	idx := (inum - 1) % b.inodesPerGroup
	return b.BlockOffset(b.InodeTable(uint32(g))) + int64(idx)*int64(b.sb.Inodesize)
}

// SetBlockAllocated sets or clears a block's bit in its group's block bitmap.
func (b *Builder) SetBlockAllocated(addr uint64, alloc bool) {
	g := uint32((addr - b.firstData) / uint64(b.sb.Agblocks))
	bit := addr - b.GroupBase(g)
	b.setBit(b.BlockBitmap(g), bit, alloc)
}

// SetInodeAllocated sets or clears an inode's bit in its group's inode bitmap.
func (b *Builder) SetInodeAllocated(inum uint64, alloc bool) {
	g := uint32((inum - 1) / b.inodesPerGroup)
	bit := (inum - 1) % b.inodesPerGroup
	b.setBit(b.InodeBitmap(g), bit, alloc)
}

func (b *Builder) setBit(bitmapBlock, bit uint64, set bool) {
	off := b.BlockOffset(bitmapBlock) + int64(bit/8)
	mask := byte(1) << (bit % 8)
	if set {
		b.data[off] |= mask
	} else {
		b.data[off] &^= mask
	}
}

// WriteBlock copies data to the start of block addr and marks it allocated.
func (b *Builder) WriteBlock(addr uint64, data []byte) {
	if len(data) > int(b.opts.BlockSize) {
		panic(fmt.Sprintf("block data of %d bytes exceeds block size", len(data)))
	}
	copy(b.data[b.BlockOffset(addr):], data)
	b.SetBlockAllocated(addr, true)
}

// WriteAt copies raw bytes to an absolute offset.
func (b *Builder) WriteAt(off int64, data []byte) {
	copy(b.data[off:], data)
}

// Inode describes an inode to write into the inode table.
type Inode struct {
	Mode    uint16
	Version uint8 // 3 on version 5 images, 2 otherwise
	Format  types.DinodeFormat
	Size    uint64
	Nblocks uint64
	Nlink   uint32
	UID     uint32
	GID     uint32
	Mtime   int32
	Gen     uint32
	Forkoff uint8
	Fork    []byte

	// Unallocated leaves the inode bitmap bit clear.
	Unallocated bool
}

// WriteInode encodes ino into inode inum's slot and marks it allocated.
func (b *Builder) WriteInode(inum uint64, ino Inode) {
	e := b.endian
	version := ino.Version
	if version == 0 {
		version = 2
		if b.sb.IsV5() {
			version = 3
		}
	}
	coreSize := types.DinodeCoreSizeV2
	if version >= 3 {
		coreSize = types.DinodeCoreSizeV3
	}

	slot := make([]byte, b.sb.Inodesize)
	e.PutUint16(slot[0:2], types.DinodeMagic)
	e.PutUint16(slot[2:4], ino.Mode)
	slot[4] = version
	slot[5] = byte(ino.Format)
	e.PutUint32(slot[8:12], ino.UID)
	e.PutUint32(slot[12:16], ino.GID)
	e.PutUint32(slot[16:20], ino.Nlink)
	for _, off := range []int{32, 40, 48} {
		e.PutUint32(slot[off:off+4], uint32(ino.Mtime))
	}
	e.PutUint64(slot[56:64], ino.Size)
	e.PutUint64(slot[64:72], ino.Nblocks)
	slot[82] = ino.Forkoff
	e.PutUint32(slot[92:96], ino.Gen)
	if version >= 3 {
		e.PutUint32(slot[144:148], uint32(ino.Mtime))
		e.PutUint64(slot[152:160], inum)
		copy(slot[160:176], FixtureUUID[:])
	}
	if len(ino.Fork) > len(slot)-coreSize {
		panic(fmt.Sprintf("fork of %d bytes does not fit the literal area", len(ino.Fork)))
	}
	copy(slot[coreSize:], ino.Fork)

	b.WriteAt(b.InodeOffset(inum), slot)
	b.SetInodeAllocated(inum, !ino.Unallocated)
}

// LiteralSize returns the literal area size of an inode of the given version.
func (b *Builder) LiteralSize(version uint8) int {
	if version >= 3 {
		return int(b.sb.Inodesize) - types.DinodeCoreSizeV3
	}
	return int(b.sb.Inodesize) - types.DinodeCoreSizeV2
}

// Bytes writes the superblock and descriptor table and returns the image.
func (b *Builder) Bytes() []byte {
	copy(b.data, EncodeSuperblock(b.sb, b.endian))
	for g := uint32(0); g < b.sb.Agcount; g++ {
		b.writeDescriptor(g)
	}
	return b.data
}

// Image returns the finished image as a MemImage.
func (b *Builder) Image() *MemImage {
	return NewMemImage(b.Bytes())
}

func (b *Builder) writeDescriptor(g uint32) {
	e := b.endian
	d := make([]byte, b.descSize)
	e.PutUint32(d[0:4], uint32(b.BlockBitmap(g)))
	e.PutUint32(d[4:8], uint32(b.InodeBitmap(g)))
	e.PutUint32(d[8:12], uint32(b.InodeTable(g)))
	e.PutUint16(d[12:14], uint16(b.freeBlocks(g)))
	e.PutUint16(d[14:16], uint16(b.freeInodes(g)))
	if b.descSize == types.GroupDesc64Size {
		e.PutUint32(d[32:36], uint32(b.BlockBitmap(g)>>32))
		e.PutUint32(d[36:40], uint32(b.InodeBitmap(g)>>32))
		e.PutUint32(d[40:44], uint32(b.InodeTable(g)>>32))
		e.PutUint16(d[44:46], uint16(b.freeBlocks(g)>>16))
		e.PutUint16(d[46:48], uint16(b.freeInodes(g)>>16))
	}
	off := b.BlockOffset(b.descTableStart) + int64(g)*int64(b.descSize)
	copy(b.data[off:], d)
}

func (b *Builder) groupLength(g uint32) uint64 {
	base := b.GroupBase(g)
	end := base + uint64(b.sb.Agblocks)
	if end > b.sb.Dblocks {
		end = b.sb.Dblocks
	}
	if base >= end {
		return 0
	}
	return end - base
}

func (b *Builder) countSet(bitmapBlock, n uint64) uint64 {
	var set uint64
	off := b.BlockOffset(bitmapBlock)
	for i := uint64(0); i < n; i++ {
		if b.data[off+int64(i/8)]&(1<<(i%8)) != 0 {
			set++
		}
	}
	return set
}

func (b *Builder) freeBlocks(g uint32) uint64 {
	n := b.groupLength(g)
	return n - b.countSet(b.BlockBitmap(g), n)
}

func (b *Builder) freeInodes(g uint32) uint64 {
	return b.inodesPerGroup - b.countSet(b.InodeBitmap(g), b.inodesPerGroup)
}
