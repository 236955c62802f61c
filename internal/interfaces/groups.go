// File: internal/interfaces/groups.go
package interfaces

import "github.com/deploymenttheory/go-xfs/internal/types"

// GroupDescriptorReader provides access to one group descriptor with the
// split pointer fields already combined
type GroupDescriptorReader interface {
	// Descriptor returns the raw decoded descriptor
	Descriptor() *types.GroupDescT

	// BlockBitmap returns the block address of the group's block bitmap
	BlockBitmap() types.DaddrT

	// InodeBitmap returns the block address of the group's inode bitmap
	InodeBitmap() types.DaddrT

	// InodeTable returns the first block of the group's inode table
	InodeTable() types.DaddrT

	// FreeBlocksCount returns the group's free block count
	FreeBlocksCount() uint32

	// FreeInodesCount returns the group's free inode count
	FreeInodesCount() uint32

	// UsedDirsCount returns the number of directories in the group
	UsedDirsCount() uint32

	// Flags returns the group flags
	Flags() uint16

	// Is64Bit reports whether the descriptor uses split 64-bit pointers
	Is64Bit() bool
}
