package services

import (
	"github.com/deploymenttheory/go-xfs/internal/interfaces"
	"github.com/deploymenttheory/go-xfs/internal/parsers/groups"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

// bitmapKind selects which of a group's bitmaps a cache slot holds.
type bitmapKind int

const (
	blockBitmapKind bitmapKind = iota
	inodeBitmapKind
)

func (k bitmapKind) String() string {
	if k == inodeBitmapKind {
		return "inode"
	}
	return "block"
}

// groupEntry is an immutable snapshot of one group's descriptor and one of
// its bitmaps. Entries are replaced wholesale and never modified, so a reader
// may keep using an entry after releasing the handle lock.
type groupEntry struct {
	group  uint32
	desc   interfaces.GroupDescriptorReader
	bitmap []byte
}

// isSet reports whether bit i of the bitmap is set. ok is false when i lies
// beyond the bitmap.
func (e *groupEntry) isSet(i uint64) (set bool, ok bool) {
	if i/8 >= uint64(len(e.bitmap)) {
		return false, false
	}
	return e.bitmap[i/8]&(1<<(i%8)) != 0, true
}

// CacheStats reports group cache activity.
type CacheStats struct {
	BlockGroup  uint32 `json:"block_group" yaml:"block_group"`
	InodeGroup  uint32 `json:"inode_group" yaml:"inode_group"`
	BlockHits   int64  `json:"block_hits" yaml:"block_hits"`
	BlockMisses int64  `json:"block_misses" yaml:"block_misses"`
	InodeHits   int64  `json:"inode_hits" yaml:"inode_hits"`
	InodeMisses int64  `json:"inode_misses" yaml:"inode_misses"`
	Evictions   int64  `json:"evictions" yaml:"evictions"`
	LoadErrors  int64  `json:"load_errors" yaml:"load_errors"`
}

// groupCache holds one group per bitmap kind. It has no lock of its own; every
// method must be called with the owning handle's mutex held.
type groupCache struct {
	slots [2]*groupEntry
	stats CacheStats
}

func newGroupCache() *groupCache {
	return &groupCache{}
}

// get returns the cached entry for group, calling load on a miss and
// replacing the slot with its result.
func (c *groupCache) get(kind bitmapKind, group uint32, load func(uint32, bitmapKind) (*groupEntry, error)) (*groupEntry, error) {
	if e := c.slots[kind]; e != nil && e.group == group {
		c.hit(kind)
		return e, nil
	}
	c.miss(kind)

	e, err := load(group, kind)
	if err != nil {
		c.stats.LoadErrors++
		return nil, err
	}
	if c.slots[kind] != nil {
		c.stats.Evictions++
	}
	c.slots[kind] = e
	return e, nil
}

func (c *groupCache) hit(kind bitmapKind) {
	if kind == inodeBitmapKind {
		c.stats.InodeHits++
	} else {
		c.stats.BlockHits++
	}
}

func (c *groupCache) miss(kind bitmapKind) {
	if kind == inodeBitmapKind {
		c.stats.InodeMisses++
	} else {
		c.stats.BlockMisses++
	}
}

// snapshot returns a copy of the statistics with the cached group numbers.
func (c *groupCache) snapshot() CacheStats {
	s := c.stats
	s.BlockGroup, s.InodeGroup = types.GroupNone, types.GroupNone
	if e := c.slots[blockBitmapKind]; e != nil {
		s.BlockGroup = e.group
	}
	if e := c.slots[inodeBitmapKind]; e != nil {
		s.InodeGroup = e.group
	}
	return s
}

// reset empties both slots.
func (c *groupCache) reset() {
	c.slots = [2]*groupEntry{}
}

// CacheStats returns the group cache statistics.
func (fs *Filesystem) CacheStats() CacheStats {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.cache.snapshot()
}

// groupFor returns the cache entry for group, loading it on a miss. The
// caller must hold fs.mu.
func (fs *Filesystem) groupFor(kind bitmapKind, group uint32) (*groupEntry, error) {
	if fs.closed {
		return nil, types.NewError(types.KindInvalidArgument, "filesystem handle is closed")
	}
	return fs.cache.get(kind, group, fs.loadGroup)
}

// loadGroup reads a group descriptor and the requested bitmap block.
func (fs *Filesystem) loadGroup(group uint32, kind bitmapKind) (*groupEntry, error) {
	desc, err := fs.readGroupDescriptor(group)
	if err != nil {
		return nil, err
	}

	addr := desc.BlockBitmap()
	if kind == inodeBitmapKind {
		addr = desc.InodeBitmap()
	}
	if addr < fs.firstDataBlock || addr > fs.lastBlock {
		return nil, types.NewError(types.KindCorrupt, "group %d %s bitmap at block %d outside [%d, %d]",
			group, kind, addr, fs.firstDataBlock, fs.lastBlock)
	}

	bitmap, err := fs.readBlock(addr)
	if err != nil {
		return nil, err
	}

	fs.log.WithField("group", group).Debugf("loaded %s bitmap from block %d", kind, addr)
	return &groupEntry{group: group, desc: desc, bitmap: bitmap}, nil
}

// readGroupDescriptor reads and decodes the descriptor of group.
func (fs *Filesystem) readGroupDescriptor(group uint32) (interfaces.GroupDescriptorReader, error) {
	if group >= fs.groupCount {
		return nil, types.NewError(types.KindInvalidArgument, "group %d out of range, %d groups", group, fs.groupCount)
	}

	off := int64(fs.descTableStart)*int64(fs.blockSize) + int64(group)*int64(fs.descSize)
	data, err := fs.readAt(off, fs.descSize)
	if err != nil {
		return nil, err
	}
	return groups.NewGroupDescriptorReader(data, fs.endian, fs.descSize == types.GroupDesc64Size)
}

// GroupDescriptor returns the decoded descriptor of group g.
func (fs *Filesystem) GroupDescriptor(g uint32) (interfaces.GroupDescriptorReader, error) {
	if err := fs.checkOpen(); err != nil {
		return nil, err
	}
	return fs.readGroupDescriptor(g)
}
