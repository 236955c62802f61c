// Package types implements the on-disk and in-memory data structures used to
// interpret XFS-format filesystem images with extent-mapped file content.
package types

import "fmt"

// General-Purpose Types
// Basic types that are used in a variety of contexts, and aren't associated with
// any particular structure.

// DaddrT is a filesystem block address, counted in filesystem blocks from the
// start of the filesystem.
type DaddrT uint64

// InumT is an inode number. Inode numbers start at 1; zero is never valid.
type InumT uint64

// OffT is a byte offset into the image or into a file.
type OffT int64

// FSType identifies the filesystem type a caller expects to find in an image.
type FSType uint32

const (
	// FSTypeDetect asks open to accept any format this package understands.
	FSTypeDetect FSType = 0x00000000

	// FSTypeXFS is an XFS-format filesystem.
	FSTypeXFS FSType = 0x00080000

	// FSTypeExt4 is listed so callers can route an ext4 hint here and get a
	// clean rejection instead of a misparse.
	FSTypeExt4 FSType = 0x00002000
)

// IsXFS reports whether the type hint selects this parser.
func (t FSType) IsXFS() bool {
	return t == FSTypeXFS || t == FSTypeDetect
}

// String returns a human-readable name for the type hint.
func (t FSType) String() string {
	switch t {
	case FSTypeDetect:
		return "detect"
	case FSTypeXFS:
		return "xfs"
	case FSTypeExt4:
		return "ext4"
	default:
		return fmt.Sprintf("unknown(0x%08x)", uint32(t))
	}
}

// ParseFSType maps a CLI/config name onto a type hint.
func ParseFSType(name string) (FSType, error) {
	switch name {
	case "", "auto", "detect":
		return FSTypeDetect, nil
	case "xfs":
		return FSTypeXFS, nil
	case "ext4":
		return FSTypeExt4, nil
	default:
		return 0, fmt.Errorf("unknown filesystem type %q", name)
	}
}

// Roundup rounds v up to the next multiple of unit. unit must be non-zero.
func Roundup(v, unit uint64) uint64 {
	return (v + unit - 1) / unit * unit
}

// Howmany returns the number of unit-sized pieces needed to hold v.
func Howmany(v, unit uint64) uint64 {
	return (v + unit - 1) / unit
}
