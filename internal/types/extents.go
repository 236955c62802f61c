package types

// Extent Trees
// A file's content is mapped by an extent tree whose root lives in the inode's
// data fork. Every node starts with an ExtentHeaderT followed by either leaf
// extents (depth 0) or index entries pointing to child blocks.

const (
	// ExtentMagic is the value of eh_magic.
	ExtentMagic uint16 = 0xF30A

	// ExtentHeaderSize is the size of ExtentHeaderT on disk.
	ExtentHeaderSize = 12

	// ExtentEntrySize is the on-disk size of both ExtentT and ExtentIdxT.
	ExtentEntrySize = 12

	// ExtentMaxDepth is the deepest tree the format allows. A 32-bit logical
	// block space is covered by five levels at the smallest block size.
	ExtentMaxDepth = 5

	// ExtentRecursionLimit caps descent regardless of what headers claim.
	ExtentRecursionLimit = 8

	// ExtentInitMaxLen is the longest initialized extent. Larger ee_len values
	// mark unwritten extents of length ee_len - ExtentInitMaxLen.
	ExtentInitMaxLen = 32768
)

// ExtentHeaderT is the header of every extent tree node (ext4_extent_header).
type ExtentHeaderT struct {
	// Magic number, must be ExtentMagic.
	Magic uint16
	// Number of valid entries following the header.
	Entries uint16
	// Maximum number of entries that could follow the header.
	Max uint16
	// Height of this node above the leaves; zero for a leaf.
	Depth uint16
	// Tree generation, unused.
	Generation uint32
}

// ExtentT is a leaf entry mapping a run of logical blocks to physical blocks.
type ExtentT struct {
	// First logical block covered by this extent.
	Block uint32
	// Number of blocks covered. Values above ExtentInitMaxLen mark an unwritten extent.
	Len uint16
	// High 16 bits of the physical start block.
	StartHi uint16
	// Low 32 bits of the physical start block.
	StartLo uint32
}

// Length returns the number of blocks the extent covers.
func (e ExtentT) Length() uint32 {
	if e.Len > ExtentInitMaxLen {
		return uint32(e.Len) - ExtentInitMaxLen
	}
	return uint32(e.Len)
}

// Unwritten reports whether the extent is allocated but not yet written.
func (e ExtentT) Unwritten() bool {
	return e.Len > ExtentInitMaxLen
}

// ExtentIdxT is an interior entry pointing to the next level of the tree.
type ExtentIdxT struct {
	// First logical block covered by the child subtree.
	Block uint32
	// Low 32 bits of the child block address.
	LeafLo uint32
	// High 16 bits of the child block address.
	LeafHi uint16
	// Unused.
	Unused uint16
}
