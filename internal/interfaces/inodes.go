// File: internal/interfaces/inodes.go
package interfaces

import "github.com/deploymenttheory/go-xfs/internal/types"

// InodeReader provides access to a decoded on-disk inode
type InodeReader interface {
	// Core returns the decoded inode core
	Core() *types.DinodeCoreT

	// Format returns the data fork format
	Format() types.DinodeFormat

	// Mode returns the raw file mode
	Mode() uint16

	// Size returns the file size in bytes
	Size() uint64

	// IsDir reports whether the inode is a directory
	IsDir() bool

	// DataFork returns the bytes of the data fork held in the literal area
	DataFork() []byte
}
