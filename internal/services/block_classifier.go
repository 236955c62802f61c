package services

import (
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-xfs/internal/types"
)

// BlockFlags classifies addr as allocated or free and as metadata or content.
// It never fails: when the group's bitmap cannot be loaded the block is
// reported as unallocated and the failure is logged at debug level.
func (fs *Filesystem) BlockFlags(addr types.DaddrT) types.BlockFlags {
	// Blocks before the first group are not described by any bitmap.
	if addr == 0 || addr < fs.firstDataBlock {
		return types.BlockFlagAlloc | types.BlockFlagMeta
	}

	rel := uint64(addr - fs.firstDataBlock)
	group := uint32(rel / fs.groupBlocks)
	dbase := fs.firstDataBlock + types.DaddrT(uint64(group)*fs.groupBlocks)

	fs.mu.Lock()
	entry, err := fs.groupFor(blockBitmapKind, group)
	fs.mu.Unlock()
	if err != nil {
		fs.log.WithFields(logrus.Fields{"block": addr, "group": group}).WithError(err).Debug("block bitmap unavailable")
		return types.BlockFlagUnalloc
	}

	set, ok := entry.isSet(uint64(addr - dbase))
	if !ok {
		fs.log.WithFields(logrus.Fields{"block": addr, "group": group}).Debug("block beyond group bitmap")
		return types.BlockFlagUnalloc
	}

	flags := types.BlockFlagUnalloc
	if set {
		flags = types.BlockFlagAlloc
	}

	blockBitmap := entry.desc.BlockBitmap()
	inodeBitmap := entry.desc.InodeBitmap()
	inodeTable := entry.desc.InodeTable()
	inodeTableEnd := inodeTable + types.DaddrT(fs.inodeTableBlocks)

	if (addr >= dbase && addr < blockBitmap) ||
		addr == blockBitmap ||
		addr == inodeBitmap ||
		(addr >= inodeTable && addr < inodeTableEnd) {
		flags |= types.BlockFlagMeta
	} else {
		flags |= types.BlockFlagCont
	}
	return flags
}

// inodeLocation returns the group holding inum and its index in that group's
// inode table.
func (fs *Filesystem) inodeLocation(inum types.InumT) (uint32, uint64) {
	n := uint64(inum - fs.firstInode)
	return uint32(n / fs.inodesPerGroup), n % fs.inodesPerGroup
}

// InodeFlags reports whether inum is allocated in its group's inode bitmap.
// Like BlockFlags it never fails and falls back to unallocated.
func (fs *Filesystem) InodeFlags(inum types.InumT) types.MetaFlags {
	if inum < fs.firstInode || inum > fs.lastInode {
		return types.MetaFlagUnalloc
	}
	group, index := fs.inodeLocation(inum)

	fs.mu.Lock()
	entry, err := fs.groupFor(inodeBitmapKind, group)
	fs.mu.Unlock()
	if err != nil {
		fs.log.WithFields(logrus.Fields{"inode": inum, "group": group}).WithError(err).Debug("inode bitmap unavailable")
		return types.MetaFlagUnalloc
	}

	if set, ok := entry.isSet(index); ok && set {
		return types.MetaFlagAlloc
	}
	return types.MetaFlagUnalloc
}
