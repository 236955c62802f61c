package types

// Block Groups
// The volume is split into Agcount groups of Agblocks blocks. Each group is
// described by a descriptor in the table that follows the superblock. A
// descriptor locates the group's block bitmap, inode bitmap and inode table.

const (
	// GroupDescSize is the size of a descriptor with 32-bit pointers.
	GroupDescSize = 32

	// GroupDesc64Size is the size of a descriptor with split 64-bit pointers.
	GroupDesc64Size = 64

	// GroupNone marks an empty cache slot.
	GroupNone uint32 = 0xffffffff
)

// GroupDescT is a decoded group descriptor. On 32-bit volumes the Hi halves
// are zero.
type GroupDescT struct {
	// Low 32 bits of the block bitmap address.
	BlockBitmapLo uint32
	// Low 32 bits of the inode bitmap address.
	InodeBitmapLo uint32
	// Low 32 bits of the inode table address.
	InodeTableLo uint32
	// Low 16 bits of the free block count.
	FreeBlocksCountLo uint16
	// Low 16 bits of the free inode count.
	FreeInodesCountLo uint16
	// Low 16 bits of the directory count.
	UsedDirsCountLo uint16
	// Group flags.
	Flags uint16
	// High 32 bits of the block bitmap address.
	BlockBitmapHi uint32
	// High 32 bits of the inode bitmap address.
	InodeBitmapHi uint32
	// High 32 bits of the inode table address.
	InodeTableHi uint32
	// High 16 bits of the free block count.
	FreeBlocksCountHi uint16
	// High 16 bits of the free inode count.
	FreeInodesCountHi uint16
	// High 16 bits of the directory count.
	UsedDirsCountHi uint16
}

// Group descriptor flags.
const (
	// GroupFlagInodeUninit marks a group whose inode table is not initialized.
	GroupFlagInodeUninit uint16 = 0x0001
	// GroupFlagBlockUninit marks a group whose block bitmap is not initialized.
	GroupFlagBlockUninit uint16 = 0x0002
	// GroupFlagInodeZeroed marks a zeroed inode table.
	GroupFlagInodeZeroed uint16 = 0x0004
)
