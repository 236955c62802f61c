package types

import (
	"io/fs"
	"time"
)

// Inodes
// Each inode slot in a group's inode table holds a dinode: a fixed core
// followed by the literal area that carries the data fork.

const (
	// DinodeMagic is the value of di_magic ("IN").
	DinodeMagic uint16 = 0x494e

	// DinodeCoreSizeV2 is the size of a version 1/2 dinode core.
	DinodeCoreSizeV2 = 100

	// DinodeCoreSizeV3 is the size of a version 3 dinode core.
	DinodeCoreSizeV3 = 176

	// DinodeStructSize is the in-memory floor used for the handle's inode size.
	DinodeStructSize = DinodeCoreSizeV3
)

// DinodeFormat is the data fork format (di_format).
type DinodeFormat uint8

const (
	// DinodeFmtDev marks a device inode with no data fork content.
	DinodeFmtDev DinodeFormat = 0
	// DinodeFmtLocal marks inline data held in the literal area.
	DinodeFmtLocal DinodeFormat = 1
	// DinodeFmtExtents marks an extent tree rooted in the literal area.
	DinodeFmtExtents DinodeFormat = 2
	// DinodeFmtBtree marks a multi-level extent tree rooted in the literal area.
	DinodeFmtBtree DinodeFormat = 3
)

func (f DinodeFormat) String() string {
	switch f {
	case DinodeFmtDev:
		return "dev"
	case DinodeFmtLocal:
		return "local"
	case DinodeFmtExtents:
		return "extents"
	case DinodeFmtBtree:
		return "btree"
	default:
		return "unknown"
	}
}

// TimestampT is an on-disk timestamp.
type TimestampT struct {
	Sec  int32
	Nsec int32
}

// Time converts the timestamp to time.Time.
func (t TimestampT) Time() time.Time {
	return time.Unix(int64(t.Sec), int64(t.Nsec)).UTC()
}

// DinodeCoreT is the decoded dinode core.
type DinodeCoreT struct {
	Magic        uint16
	Mode         uint16
	Version      uint8
	Format       DinodeFormat
	Onlink       uint16
	UID          uint32
	GID          uint32
	Nlink        uint32
	ProjidLo     uint16
	ProjidHi     uint16
	Flushiter    uint16
	Atime        TimestampT
	Mtime        TimestampT
	Ctime        TimestampT
	Size         uint64
	Nblocks      uint64
	Extsize      uint32
	Nextents     uint32
	Anextents    uint16
	Forkoff      uint8
	Aformat      uint8
	Dmevmask     uint32
	Dmstate      uint16
	Flags        uint16
	Gen          uint32
	NextUnlinked uint32

	// Version 3 only.
	CRC         uint32
	Changecount uint64
	Lsn         uint64
	Flags2      uint64
	Cowextsize  uint32
	Crtime      TimestampT
	Ino         uint64
	UUID        [16]byte
}

// CoreSize returns the size of the core for this inode's version.
func (d *DinodeCoreT) CoreSize() int {
	if d.Version >= 3 {
		return DinodeCoreSizeV3
	}
	return DinodeCoreSizeV2
}

// File mode type bits.
const (
	ModeFmt  uint16 = 0xF000
	ModeFifo uint16 = 0x1000
	ModeChr  uint16 = 0x2000
	ModeDir  uint16 = 0x4000
	ModeBlk  uint16 = 0x6000
	ModeReg  uint16 = 0x8000
	ModeLnk  uint16 = 0xA000
	ModeSock uint16 = 0xC000
)

// FileMode converts an on-disk mode to fs.FileMode.
func FileMode(mode uint16) fs.FileMode {
	m := fs.FileMode(mode & 0o777)
	if mode&0o4000 != 0 {
		m |= fs.ModeSetuid
	}
	if mode&0o2000 != 0 {
		m |= fs.ModeSetgid
	}
	if mode&0o1000 != 0 {
		m |= fs.ModeSticky
	}
	switch mode & ModeFmt {
	case ModeDir:
		m |= fs.ModeDir
	case ModeLnk:
		m |= fs.ModeSymlink
	case ModeFifo:
		m |= fs.ModeNamedPipe
	case ModeSock:
		m |= fs.ModeSocket
	case ModeChr:
		m |= fs.ModeDevice | fs.ModeCharDevice
	case ModeBlk:
		m |= fs.ModeDevice
	}
	return m
}

// ContentType describes how a Meta's Content bytes are to be interpreted.
type ContentType uint8

const (
	// ContentTypeNone means there is no data fork content.
	ContentTypeNone ContentType = iota
	// ContentTypeExtents means Content holds an extent tree root.
	ContentTypeExtents
	// ContentTypeInline means Content holds the file bytes themselves.
	ContentTypeInline
)

// AttrState records how far a Meta's attribute list has been loaded.
type AttrState uint8

const (
	// AttrStateUnknown means the list has not been built.
	AttrStateUnknown AttrState = iota
	// AttrStateStudied means the list is complete and may be reused.
	AttrStateStudied
	// AttrStateError means building the list failed; the failure is cached.
	AttrStateError
)

func (s AttrState) String() string {
	switch s {
	case AttrStateStudied:
		return "studied"
	case AttrStateError:
		return "error"
	default:
		return "unknown"
	}
}

// Meta is the generic file metadata record. It is filled by inode lookup and
// owns the attribute list built from the inode's data fork.
type Meta struct {
	Addr    InumT
	Flags   MetaFlags
	Mode    uint16
	Nlink   uint32
	UID     uint32
	GID     uint32
	Size    uint64
	Nblocks uint64
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
	Crtime  time.Time
	Gen     uint32
	Format  DinodeFormat

	ContentType ContentType
	Content     []byte

	Attrs     *AttrList
	AttrState AttrState
	// AttrErr is the cached failure when AttrState is AttrStateError.
	AttrErr error
}

// IsDir reports whether the inode is a directory.
func (m *Meta) IsDir() bool {
	return m.Mode&ModeFmt == ModeDir
}
