package groups

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-xfs/internal/interfaces"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

// groupDescriptorReader implements the GroupDescriptorReader interface
type groupDescriptorReader struct {
	desc *types.GroupDescT
	is64 bool
}

// DescriptorSize returns the on-disk descriptor size for a superblock.
func DescriptorSize(sb *types.SbT) int {
	if sb.HasIncompat(types.SbFeatIncompatNrext64) {
		return types.GroupDesc64Size
	}
	return types.GroupDescSize
}

// NewGroupDescriptorReader decodes one group descriptor. When is64 is set the
// descriptor is GroupDesc64Size bytes and its pointers are split hi/lo pairs.
func NewGroupDescriptorReader(data []byte, endian binary.ByteOrder, is64 bool) (interfaces.GroupDescriptorReader, error) {
	size := types.GroupDescSize
	if is64 {
		size = types.GroupDesc64Size
	}
	if len(data) < size {
		return nil, types.NewError(types.KindCorrupt, "data too small for group descriptor: %d bytes, need %d", len(data), size)
	}

	return &groupDescriptorReader{
		desc: parseGroupDescriptor(data, endian, is64),
		is64: is64,
	}, nil
}

// parseGroupDescriptor parses raw bytes into a GroupDescT structure
func parseGroupDescriptor(data []byte, endian binary.ByteOrder, is64 bool) *types.GroupDescT {
	desc := &types.GroupDescT{}
	desc.BlockBitmapLo = endian.Uint32(data[0:4])
	desc.InodeBitmapLo = endian.Uint32(data[4:8])
	desc.InodeTableLo = endian.Uint32(data[8:12])
	desc.FreeBlocksCountLo = endian.Uint16(data[12:14])
	desc.FreeInodesCountLo = endian.Uint16(data[14:16])
	desc.UsedDirsCountLo = endian.Uint16(data[16:18])
	desc.Flags = endian.Uint16(data[18:20])

	if is64 {
		desc.BlockBitmapHi = endian.Uint32(data[32:36])
		desc.InodeBitmapHi = endian.Uint32(data[36:40])
		desc.InodeTableHi = endian.Uint32(data[40:44])
		desc.FreeBlocksCountHi = endian.Uint16(data[44:46])
		desc.FreeInodesCountHi = endian.Uint16(data[46:48])
		desc.UsedDirsCountHi = endian.Uint16(data[48:50])
	}

	return desc
}

// combine64 joins the high and low halves of a split descriptor pointer.
func combine64(hi, lo uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}

// combine32 joins the high and low halves of a split descriptor counter.
func combine32(hi, lo uint16) uint32 {
	return uint32(hi)<<16 | uint32(lo)
}

// Descriptor returns the raw decoded descriptor
func (gr *groupDescriptorReader) Descriptor() *types.GroupDescT {
	return gr.desc
}

// BlockBitmap returns the block address of the group's block bitmap
func (gr *groupDescriptorReader) BlockBitmap() types.DaddrT {
	return types.DaddrT(combine64(gr.desc.BlockBitmapHi, gr.desc.BlockBitmapLo))
}

// InodeBitmap returns the block address of the group's inode bitmap
func (gr *groupDescriptorReader) InodeBitmap() types.DaddrT {
	return types.DaddrT(combine64(gr.desc.InodeBitmapHi, gr.desc.InodeBitmapLo))
}

// InodeTable returns the first block of the group's inode table
func (gr *groupDescriptorReader) InodeTable() types.DaddrT {
	return types.DaddrT(combine64(gr.desc.InodeTableHi, gr.desc.InodeTableLo))
}

// FreeBlocksCount returns the group's free block count
func (gr *groupDescriptorReader) FreeBlocksCount() uint32 {
	return combine32(gr.desc.FreeBlocksCountHi, gr.desc.FreeBlocksCountLo)
}

// FreeInodesCount returns the group's free inode count
func (gr *groupDescriptorReader) FreeInodesCount() uint32 {
	return combine32(gr.desc.FreeInodesCountHi, gr.desc.FreeInodesCountLo)
}

// UsedDirsCount returns the number of directories in the group
func (gr *groupDescriptorReader) UsedDirsCount() uint32 {
	return combine32(gr.desc.UsedDirsCountHi, gr.desc.UsedDirsCountLo)
}

// Flags returns the group flags
func (gr *groupDescriptorReader) Flags() uint16 {
	return gr.desc.Flags
}

// Is64Bit reports whether the descriptor uses split 64-bit pointers
func (gr *groupDescriptorReader) Is64Bit() bool {
	return gr.is64
}
