package types

import "strings"

// BlockFlags classifies a filesystem block.
type BlockFlags uint32

const (
	// BlockFlagAlloc marks a block set in its group's block bitmap.
	BlockFlagAlloc BlockFlags = 1 << 0
	// BlockFlagUnalloc marks a block clear in its group's block bitmap.
	BlockFlagUnalloc BlockFlags = 1 << 1
	// BlockFlagMeta marks filesystem metadata (superblock, descriptors, bitmaps, inode tables).
	BlockFlagMeta BlockFlags = 1 << 2
	// BlockFlagCont marks ordinary content blocks.
	BlockFlagCont BlockFlags = 1 << 3
)

// Has reports whether all bits in mask are set.
func (f BlockFlags) Has(mask BlockFlags) bool {
	return f&mask == mask
}

func (f BlockFlags) String() string {
	var parts []string
	if f&BlockFlagAlloc != 0 {
		parts = append(parts, "alloc")
	}
	if f&BlockFlagUnalloc != 0 {
		parts = append(parts, "unalloc")
	}
	if f&BlockFlagMeta != 0 {
		parts = append(parts, "meta")
	}
	if f&BlockFlagCont != 0 {
		parts = append(parts, "content")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// BlockWalkFlags selects which blocks a block walk reports.
type BlockWalkFlags uint32

const (
	BlockWalkFlagAlloc   BlockWalkFlags = 1 << 0
	BlockWalkFlagUnalloc BlockWalkFlags = 1 << 1
	BlockWalkFlagMeta    BlockWalkFlags = 1 << 2
	BlockWalkFlagCont    BlockWalkFlags = 1 << 3
	// BlockWalkFlagAddrOnly skips reading block content.
	BlockWalkFlagAddrOnly BlockWalkFlags = 1 << 4
)

// Normalize fills in implied selections: asking for neither half of a pair
// means asking for both.
func (f BlockWalkFlags) Normalize() BlockWalkFlags {
	if f&(BlockWalkFlagAlloc|BlockWalkFlagUnalloc) == 0 {
		f |= BlockWalkFlagAlloc | BlockWalkFlagUnalloc
	}
	if f&(BlockWalkFlagMeta|BlockWalkFlagCont) == 0 {
		f |= BlockWalkFlagMeta | BlockWalkFlagCont
	}
	return f
}

// Matches reports whether a block with the given classification passes the filter.
// The receiver must be normalized.
func (f BlockWalkFlags) Matches(bf BlockFlags) bool {
	if bf&BlockFlagAlloc != 0 && f&BlockWalkFlagAlloc == 0 {
		return false
	}
	if bf&BlockFlagUnalloc != 0 && f&BlockWalkFlagUnalloc == 0 {
		return false
	}
	if bf&BlockFlagMeta != 0 && f&BlockWalkFlagMeta == 0 {
		return false
	}
	if bf&BlockFlagCont != 0 && f&BlockWalkFlagCont == 0 {
		return false
	}
	return true
}

// ParseBlockWalkFlags turns names such as "alloc", "meta" or "addr" into flags.
func ParseBlockWalkFlags(names []string) (BlockWalkFlags, bool) {
	var f BlockWalkFlags
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "alloc", "allocated":
			f |= BlockWalkFlagAlloc
		case "unalloc", "unallocated", "free":
			f |= BlockWalkFlagUnalloc
		case "meta", "metadata":
			f |= BlockWalkFlagMeta
		case "cont", "content":
			f |= BlockWalkFlagCont
		case "addr", "aonly":
			f |= BlockWalkFlagAddrOnly
		case "":
		default:
			return 0, false
		}
	}
	return f, true
}

// MetaFlags classifies an inode.
type MetaFlags uint32

const (
	// MetaFlagAlloc marks an inode set in its group's inode bitmap.
	MetaFlagAlloc MetaFlags = 1 << 0
	// MetaFlagUnalloc marks an inode clear in its group's inode bitmap.
	MetaFlagUnalloc MetaFlags = 1 << 1
	// MetaFlagUsed marks an inode slot holding a decodable inode core.
	MetaFlagUsed MetaFlags = 1 << 2
	// MetaFlagUnused marks an inode slot that has never held an inode or could not be decoded.
	MetaFlagUnused MetaFlags = 1 << 3
)

func (f MetaFlags) String() string {
	var parts []string
	if f&MetaFlagAlloc != 0 {
		parts = append(parts, "alloc")
	}
	if f&MetaFlagUnalloc != 0 {
		parts = append(parts, "unalloc")
	}
	if f&MetaFlagUsed != 0 {
		parts = append(parts, "used")
	}
	if f&MetaFlagUnused != 0 {
		parts = append(parts, "unused")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Normalize fills in implied selections the same way BlockWalkFlags does.
func (f MetaFlags) Normalize() MetaFlags {
	if f&(MetaFlagAlloc|MetaFlagUnalloc) == 0 {
		f |= MetaFlagAlloc | MetaFlagUnalloc
	}
	if f&(MetaFlagUsed|MetaFlagUnused) == 0 {
		f |= MetaFlagUsed | MetaFlagUnused
	}
	return f
}

// Matches reports whether an inode with flags mf passes the normalized filter f.
func (f MetaFlags) Matches(mf MetaFlags) bool {
	for _, bit := range []MetaFlags{MetaFlagAlloc, MetaFlagUnalloc, MetaFlagUsed, MetaFlagUnused} {
		if mf&bit != 0 && f&bit == 0 {
			return false
		}
	}
	return true
}

// ParseMetaFlags turns names such as "alloc" or "used" into flags.
func ParseMetaFlags(names []string) (MetaFlags, bool) {
	var f MetaFlags
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "alloc", "allocated":
			f |= MetaFlagAlloc
		case "unalloc", "unallocated", "free":
			f |= MetaFlagUnalloc
		case "used":
			f |= MetaFlagUsed
		case "unused":
			f |= MetaFlagUnused
		case "":
		default:
			return 0, false
		}
	}
	return f, true
}

// Block is the record passed to a block walk callback. Data is nil when the
// walk was asked for addresses only or when reading the block failed, in which
// case Err holds the failure.
type Block struct {
	Addr  DaddrT
	Flags BlockFlags
	Data  []byte
	Err   error
}
