package services

import (
	"github.com/deploymenttheory/go-xfs/internal/interfaces"
	"github.com/deploymenttheory/go-xfs/internal/parsers/inodes"
	"github.com/deploymenttheory/go-xfs/internal/types"
)

// LookupInode reads inode inum and decodes it into a metadata record. The
// record's attribute list is not built; call LoadAttributes for that.
func (fs *Filesystem) LookupInode(inum types.InumT) (*types.Meta, error) {
	if inum < fs.firstInode || inum > fs.lastInode {
		return nil, types.NewError(types.KindInvalidArgument, "inode %d out of range [%d, %d]", inum, fs.firstInode, fs.lastInode)
	}
	group, index := fs.inodeLocation(inum)

	fs.mu.Lock()
	entry, err := fs.groupFor(inodeBitmapKind, group)
	fs.mu.Unlock()
	if err != nil {
		return nil, err
	}

	inodeTable := entry.desc.InodeTable()
	if inodeTable < fs.firstDataBlock || uint64(inodeTable)+fs.inodeTableBlocks-1 > uint64(fs.lastBlock) {
		return nil, types.NewError(types.KindCorrupt, "group %d inode table at block %d outside filesystem", group, inodeTable)
	}

	off := int64(inodeTable)*int64(fs.blockSize) + int64(index)*int64(fs.inodeSize)
	slot, err := fs.readAt(off, int(fs.inodeSize))
	if err != nil {
		return nil, err
	}

	reader, err := inodes.NewInodeReader(slot, fs.endian)
	if err != nil {
		return nil, types.WrapError(types.KindCorrupt, err, "inode %d", inum)
	}

	alloc := types.MetaFlagUnalloc
	if set, ok := entry.isSet(index); ok && set {
		alloc = types.MetaFlagAlloc
	}
	return metaFromInode(inum, reader, alloc|types.MetaFlagUsed), nil
}

// metaFromInode fills a metadata record from a decoded inode.
func metaFromInode(inum types.InumT, reader interfaces.InodeReader, flags types.MetaFlags) *types.Meta {
	core := reader.Core()
	meta := &types.Meta{
		Addr:    inum,
		Flags:   flags,
		Mode:    core.Mode,
		Nlink:   core.Nlink,
		UID:     core.UID,
		GID:     core.GID,
		Size:    core.Size,
		Nblocks: core.Nblocks,
		Atime:   core.Atime.Time(),
		Mtime:   core.Mtime.Time(),
		Ctime:   core.Ctime.Time(),
		Gen:     core.Gen,
		Format:  core.Format,
	}
	if core.Version >= 3 {
		meta.Crtime = core.Crtime.Time()
	}

	switch core.Format {
	case types.DinodeFmtExtents, types.DinodeFmtBtree:
		meta.ContentType = types.ContentTypeExtents
		meta.Content = append([]byte(nil), reader.DataFork()...)
	case types.DinodeFmtLocal:
		meta.ContentType = types.ContentTypeInline
		meta.Content = append([]byte(nil), reader.DataFork()...)
	default:
		meta.ContentType = types.ContentTypeNone
	}
	return meta
}
