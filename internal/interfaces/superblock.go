// File: internal/interfaces/superblock.go
package interfaces

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-xfs/internal/types"
)

// SuperblockReader provides access to a decoded and validated superblock
type SuperblockReader interface {
	// Superblock returns the raw decoded structure
	Superblock() *types.SbT

	// Endian returns the byte order the superblock was decoded with
	Endian() binary.ByteOrder

	// Version returns the superblock version (4 or 5)
	Version() uint16

	// BlockSize returns the filesystem block size in bytes
	BlockSize() uint32

	// SectorSize returns the sector size in bytes
	SectorSize() uint16

	// InodeSize returns the on-disk inode size in bytes
	InodeSize() uint16

	// InodesPerBlock returns the number of inodes that fit in one block
	InodesPerBlock() uint16

	// BlockCount returns the number of data blocks
	BlockCount() uint64

	// FreeBlockCount returns the number of free data blocks
	FreeBlockCount() uint64

	// InodeCount returns the number of inodes
	InodeCount() uint64

	// FreeInodeCount returns the number of free inodes
	FreeInodeCount() uint64

	// RootInode returns the root directory inode number
	RootInode() types.InumT

	// GroupBlocks returns the number of blocks per group
	GroupBlocks() uint32

	// GroupCount returns the number of groups
	GroupCount() uint32

	// UUID returns the filesystem UUID
	UUID() uuid.UUID

	// MetaUUID returns the metadata UUID, which equals UUID unless the
	// metadata UUID feature is enabled
	MetaUUID() uuid.UUID

	// Label returns the filesystem label
	Label() string

	// Features returns the names of the enabled feature bits
	Features() []string

	// Warnings returns advisory diagnostics raised during validation
	Warnings() []string
}
