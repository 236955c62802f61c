// File: internal/interfaces/filesystem.go
package interfaces

import (
	"io"

	"github.com/deploymenttheory/go-xfs/internal/types"
)

// BlockWalkFunc is called once per block selected by a block walk. Returning
// types.ErrStopWalk ends the walk without error.
type BlockWalkFunc func(block *types.Block) error

// InodeWalkFunc is called once per inode selected by an inode walk. Returning
// types.ErrStopWalk ends the walk without error.
type InodeWalkFunc func(meta *types.Meta) error

// FilesystemGeometry describes the address ranges of an open filesystem
type FilesystemGeometry interface {
	// BlockSize returns the filesystem block size in bytes
	BlockSize() uint32

	// FirstBlock returns the lowest valid block address
	FirstBlock() types.DaddrT

	// LastBlock returns the highest valid block address
	LastBlock() types.DaddrT

	// FirstDataBlock returns the first block described by a group
	FirstDataBlock() types.DaddrT

	// FirstInode returns the lowest valid inode number
	FirstInode() types.InumT

	// LastInode returns the highest valid inode number
	LastInode() types.InumT

	// RootInode returns the root directory inode number
	RootInode() types.InumT
}

// Filesystem is the read-only surface of an open filesystem handle
type Filesystem interface {
	FilesystemGeometry

	// Superblock returns the validated superblock
	Superblock() SuperblockReader

	// Warnings returns advisory diagnostics raised while opening
	Warnings() []string

	// BlockFlags classifies a block; it never fails
	BlockFlags(addr types.DaddrT) types.BlockFlags

	// InodeFlags classifies an inode; it never fails
	InodeFlags(inum types.InumT) types.MetaFlags

	// ReadBlock reads one filesystem block
	ReadBlock(addr types.DaddrT) ([]byte, error)

	// LookupInode decodes an inode into a generic metadata record
	LookupInode(inum types.InumT) (*types.Meta, error)

	// LoadAttributes builds the attribute list of a metadata record
	LoadAttributes(meta *types.Meta) error

	// WalkBlocks visits blocks in [start, end] that match flags
	WalkBlocks(start, end types.DaddrT, flags types.BlockWalkFlags, fn BlockWalkFunc) error

	// WalkInodes visits inodes in [start, end] that match flags
	WalkInodes(start, end types.InumT, flags types.MetaFlags, fn InodeWalkFunc) error

	// Close releases the handle
	Close() error
}

// FSStatter writes a filesystem summary report
type FSStatter interface {
	FSStat(w io.Writer) error
}

// InodeStatter writes a report about a single inode
type InodeStatter interface {
	IStat(w io.Writer, inum types.InumT) error
}
